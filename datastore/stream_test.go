/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivekRajagopal/gae-js/datastore"
	"github.com/VivekRajagopal/gae-js/datastore/testmodels"
)

func seedStreamUsers(t *testing.T, repo *datastore.Repository[testmodels.User], n int) {
	t.Helper()
	var users []*testmodels.User
	for i := 0; i < n; i++ {
		users = append(users, testmodels.NewUser(fmt.Sprintf("u%03d", i), fmt.Sprintf("User %03d", i)))
	}
	_, err := repo.SaveMulti(context.Background(), users)
	require.NoError(t, err)
}

func collectStream(ch <-chan datastore.StreamResult[testmodels.User]) ([]*testmodels.User, error) {
	var out []*testmodels.User
	for res := range ch {
		if res.Err != nil {
			return out, res.Err
		}
		out = append(out, res.Entity)
	}
	return out, nil
}

func TestStreamDeliversAllPages(t *testing.T) {
	ctx := context.Background()
	repo, _ := newUserRepo(t)
	seedStreamUsers(t, repo, 25)

	var pages []datastore.StreamProgress
	results, err := collectStream(repo.Stream(ctx,
		repo.NewQuery().OrderAsc(datastore.KeyField),
		datastore.WithPageSize(10),
		datastore.WithProgressHandler(func(p datastore.StreamProgress) {
			pages = append(pages, p)
		})))
	require.NoError(t, err)
	require.Len(t, results, 25)
	assert.Equal(t, "u000", results[0].ID)
	assert.Equal(t, "u024", results[24].ID)

	// 10 + 10 + 5; the short page ends the stream.
	require.Len(t, pages, 3)
	assert.Equal(t, int64(10), pages[0].ItemsProcessed)
	assert.Equal(t, int64(25), pages[2].ItemsProcessed)
	assert.Equal(t, 3, pages[2].PagesProcessed)
	assert.NotEmpty(t, pages[0].Cursor)
}

func TestStreamRespectsQueryLimit(t *testing.T) {
	ctx := context.Background()
	repo, _ := newUserRepo(t)
	seedStreamUsers(t, repo, 25)

	results, err := collectStream(repo.Stream(ctx,
		repo.NewQuery().OrderAsc(datastore.KeyField).WithLimit(12),
		datastore.WithPageSize(5)))
	require.NoError(t, err)
	assert.Len(t, results, 12)
}

func TestStreamMetadata(t *testing.T) {
	ctx := context.Background()
	repo, _ := newUserRepo(t)
	seedStreamUsers(t, repo, 6)

	var indexes []int64
	var lastPage int
	for res := range repo.Stream(ctx,
		repo.NewQuery().OrderAsc(datastore.KeyField),
		datastore.WithPageSize(4)) {
		require.NoError(t, res.Err)
		indexes = append(indexes, res.Meta.Index)
		lastPage = res.Meta.Page
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, indexes)
	assert.Equal(t, 2, lastPage)
}

func TestStreamPropagatesQueryError(t *testing.T) {
	ctx := context.Background()
	repo, _ := newUserRepo(t)

	_, err := collectStream(repo.Stream(ctx, repo.NewQuery().Filter("name", "!=", "x")))
	assert.Error(t, err)
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo, _ := newUserRepo(t)
	seedStreamUsers(t, repo, 20)

	// An unbuffered channel forces the worker to block on delivery, so
	// cancellation must release it.
	ch := repo.Stream(ctx, repo.NewQuery(), datastore.WithBufferSize(0), datastore.WithPageSize(5))
	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)

	cancel()
	count := 1
	for range ch {
		count++
	}
	assert.Less(t, count, 20)
}
