/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore_test

import (
	"context"
	"testing"

	ds "cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivekRajagopal/gae-js/datastore"
	"github.com/VivekRajagopal/gae-js/datastore/mock"
	"github.com/VivekRajagopal/gae-js/datastore/testmodels"
	"github.com/VivekRajagopal/gae-js/search"
)

const userIndex = "users-idx"

func newSearchRepo(t *testing.T) (*datastore.Repository[testmodels.User], *mock.Driver, *search.MemoryService) {
	t.Helper()
	svc := search.NewMemoryService()
	driver := mock.New()
	repo, err := datastore.NewRepository[testmodels.User](driver, "users",
		datastore.WithSearch[testmodels.User](svc, userIndex, map[string]datastore.IndexFieldFunc[testmodels.User]{
			"name": nil, // copied from the stored property
			"nameLength": func(u *testmodels.User) any {
				return len(u.Name)
			},
		}))
	require.NoError(t, err)
	return repo, driver, svc
}

func TestSaveIndexesEntities(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newSearchRepo(t)

	_, err := repo.SaveMulti(ctx, []*testmodels.User{
		testmodels.NewUser("u1", "Ada"),
		testmodels.NewUser("u2", "Grace"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, svc.Size(userIndex))

	entry, ok := svc.Entry(userIndex, "u1")
	require.True(t, ok)
	assert.Equal(t, "Ada", entry.Fields["name"])
	assert.Equal(t, 3, entry.Fields["nameLength"])
}

// countingSearch counts service calls on top of a real in-memory index.
type countingSearch struct {
	search.Service
	indexCalls int
	entrySizes []int
}

func (c *countingSearch) Index(ctx context.Context, indexName string, entries []search.Entry) error {
	c.indexCalls++
	c.entrySizes = append(c.entrySizes, len(entries))
	return c.Service.Index(ctx, indexName, entries)
}

func TestSaveMultiIndexesInOneCall(t *testing.T) {
	ctx := context.Background()
	svc := &countingSearch{Service: search.NewMemoryService()}
	repo, err := datastore.NewRepository[testmodels.User](mock.New(), "users",
		datastore.WithSearch[testmodels.User](svc, userIndex, map[string]datastore.IndexFieldFunc[testmodels.User]{
			"name": nil,
		}))
	require.NoError(t, err)

	_, err = repo.SaveMulti(ctx, []*testmodels.User{
		testmodels.NewUser("u1", "Ada"),
		testmodels.NewUser("u2", "Grace"),
		testmodels.NewUser("u3", "Linus"),
	})
	require.NoError(t, err)

	// One index call carrying the whole batch, not one call per entity.
	assert.Equal(t, 1, svc.indexCalls)
	assert.Equal(t, []int{3}, svc.entrySizes)

	_, err = repo.Save(ctx, testmodels.NewUser("u4", "Barbara"))
	require.NoError(t, err)
	assert.Equal(t, 2, svc.indexCalls)
	assert.Equal(t, []int{3, 1}, svc.entrySizes)
}

func TestReSaveReplacesIndexEntry(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newSearchRepo(t)

	_, err := repo.Save(ctx, testmodels.NewUser("u1", "Ada"))
	require.NoError(t, err)
	_, err = repo.Save(ctx, testmodels.NewUser("u1", "Ada Lovelace"))
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Size(userIndex))
	entry, _ := svc.Entry(userIndex, "u1")
	assert.Equal(t, "Ada Lovelace", entry.Fields["name"])
}

func TestDeleteRemovesIndexEntries(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newSearchRepo(t)

	_, err := repo.SaveMulti(ctx, []*testmodels.User{
		testmodels.NewUser("u1", "Ada"),
		testmodels.NewUser("u2", "Grace"),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "u1"))
	assert.Equal(t, 1, svc.Size(userIndex))

	require.NoError(t, repo.DeleteAll(ctx))
	assert.Equal(t, 0, svc.Size(userIndex))
}

func TestSearchRehydratesEntities(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newSearchRepo(t)

	_, err := repo.SaveMulti(ctx, []*testmodels.User{
		testmodels.NewUser("u1", "Ada Lovelace"),
		testmodels.NewUser("u2", "Grace Hopper"),
		testmodels.NewUser("u3", "Ada Yonath"),
	})
	require.NoError(t, err)

	result, err := repo.Search(ctx, map[string]any{"name": "ada"},
		&search.Sort{Field: "name"}, search.Page{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ResultCount)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Ada Lovelace", result.Results[0].Name)
	assert.Equal(t, "Ada Yonath", result.Results[1].Name)

	// The returned values are full entities, not index documents.
	assert.Equal(t, "u1", result.Results[0].ID)
}

func TestSearchDropsStaleMatches(t *testing.T) {
	ctx := context.Background()
	repo, driver, _ := newSearchRepo(t)

	_, err := repo.SaveMulti(ctx, []*testmodels.User{
		testmodels.NewUser("u1", "Ada"),
		testmodels.NewUser("u2", "Adara"),
	})
	require.NoError(t, err)

	// Remove u2 behind the repository's back so the index is stale.
	require.NoError(t, driver.Delete(ctx, []*ds.Key{repo.Key("u2")}))

	result, err := repo.Search(ctx, map[string]any{"name": "ada"}, nil, search.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ResultCount)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "u1", result.Results[0].ID)
}

func TestSearchFailureDoesNotFailSave(t *testing.T) {
	ctx := context.Background()
	driver := mock.New()
	repo, err := datastore.NewRepository[testmodels.User](driver, "users",
		datastore.WithSearch[testmodels.User](failingSearch{}, userIndex, map[string]datastore.IndexFieldFunc[testmodels.User]{
			"name": nil,
		}))
	require.NoError(t, err)

	_, err = repo.Save(ctx, testmodels.NewUser("u1", "Ada"))
	require.NoError(t, err)
	assert.Equal(t, 1, driver.Size("users"))
}

type failingSearch struct{}

func (failingSearch) Index(context.Context, string, []search.Entry) error { return assert.AnError }
func (failingSearch) Delete(context.Context, string, ...string) error     { return assert.AnError }
func (failingSearch) DeleteAll(context.Context, string) error             { return assert.AnError }
func (failingSearch) Query(context.Context, search.Request) (*search.Results, error) {
	return nil, assert.AnError
}
