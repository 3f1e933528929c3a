/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T, svc *MemoryService, indexName string) {
	t.Helper()
	err := svc.Index(context.Background(), indexName, []Entry{
		{ID: "u1", Fields: map[string]any{"name": "Ada Lovelace", "age": 36}},
		{ID: "u2", Fields: map[string]any{"name": "Grace Hopper", "age": 85}},
		{ID: "u3", Fields: map[string]any{"name": "Ada Yonath", "age": 86}},
	})
	require.NoError(t, err)
}

func TestMemoryQuerySubstringMatch(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")

	results, err := svc.Query(context.Background(), Request{
		IndexName: "users",
		Fields:    map[string]any{"name": "ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, results.ResultCount)
	assert.ElementsMatch(t, []string{"u1", "u3"}, results.IDs)
}

func TestMemoryQueryEqualityForNonStrings(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")

	results, err := svc.Query(context.Background(), Request{
		IndexName: "users",
		Fields:    map[string]any{"age": 85},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, results.IDs)
}

func TestMemoryQuerySortAndPage(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")

	results, err := svc.Query(context.Background(), Request{
		IndexName: "users",
		Sort:      &Sort{Field: "age", Descending: true},
		Page:      Page{Limit: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, results.ResultCount)
	assert.Equal(t, 2, results.Limit)
	assert.Equal(t, []string{"u3", "u2"}, results.IDs)

	results, err = svc.Query(context.Background(), Request{
		IndexName: "users",
		Sort:      &Sort{Field: "age", Descending: true},
		Page:      Page{Limit: 2, Offset: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, results.IDs)
}

func TestMemoryQueryDefaultLimit(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")

	results, err := svc.Query(context.Background(), Request{IndexName: "users"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, results.Limit)
}

func TestMemoryQueryMissingFieldNeverMatches(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")

	results, err := svc.Query(context.Background(), Request{
		IndexName: "users",
		Fields:    map[string]any{"email": "x"},
	})
	require.NoError(t, err)
	assert.Empty(t, results.IDs)
}

func TestMemoryDelete(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")

	require.NoError(t, svc.Delete(context.Background(), "users", "u1", "u3"))
	assert.Equal(t, 1, svc.Size("users"))

	require.NoError(t, svc.DeleteAll(context.Background(), "users"))
	assert.Equal(t, 0, svc.Size("users"))
}

func TestMemoryIndexesAreIndependent(t *testing.T) {
	svc := NewMemoryService()
	seedIndex(t, svc, "users")
	seedIndex(t, svc, "archive")

	require.NoError(t, svc.DeleteAll(context.Background(), "users"))
	assert.Equal(t, 0, svc.Size("users"))
	assert.Equal(t, 3, svc.Size("archive"))
}
