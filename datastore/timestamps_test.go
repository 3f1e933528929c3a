/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivekRajagopal/gae-js/datastore"
	"github.com/VivekRajagopal/gae-js/datastore/mock"
	"github.com/VivekRajagopal/gae-js/datastore/testmodels"
)

func newTaskRepo(t *testing.T) (*datastore.Repository[testmodels.Task], *mock.Driver) {
	t.Helper()
	driver := mock.New()
	repo, err := datastore.NewTimestampedRepository[testmodels.Task](driver, "tasks")
	require.NoError(t, err)
	return repo, driver
}

func TestFirstSaveSetsTimestamps(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTaskRepo(t)

	before := time.Now()
	saved, err := repo.Save(ctx, testmodels.NewTask("t1", "write tests"))
	require.NoError(t, err)

	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.CreatedAt.Equal(datastore.GenerateTimestamp))
	assert.False(t, saved.CreatedAt.Before(before))
	assert.False(t, saved.UpdatedAt.Before(saved.CreatedAt))

	loaded, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, loaded.CreatedAt.Equal(saved.CreatedAt))
	assert.True(t, loaded.UpdatedAt.Equal(saved.UpdatedAt))
}

func TestSecondSavePreservesCreationTime(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTaskRepo(t)

	first, err := repo.Save(ctx, testmodels.NewTask("t1", "write tests"))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	loaded, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	loaded.Done = true
	second, err := repo.Save(ctx, loaded)
	require.NoError(t, err)

	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestTimestampsDisabled(t *testing.T) {
	ctx := datastore.WithTimestampsDisabled(context.Background())
	repo, _ := newTaskRepo(t)

	task := testmodels.NewTask("t1", "migrated")
	task.CreatedAt = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	task.UpdatedAt = time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)

	saved, err := repo.Save(ctx, task)
	require.NoError(t, err)

	// With the hook disabled the entity's own values pass through
	// untouched, which is what a data migration wants.
	assert.True(t, saved.CreatedAt.Equal(task.CreatedAt))
	assert.True(t, saved.UpdatedAt.Equal(task.UpdatedAt))

	loaded, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, loaded.CreatedAt.Equal(task.CreatedAt))
}

func TestGenerateTimestampSentinelIsReplaced(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTaskRepo(t)

	// NewTimestampedEntity seeds CreatedAt with the sentinel; the hook
	// must treat it exactly like a zero value.
	task := testmodels.NewTask("t1", "write tests")
	require.True(t, task.CreatedAt.Equal(datastore.GenerateTimestamp))

	saved, err := repo.Save(ctx, task)
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.Equal(datastore.GenerateTimestamp))
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestExplicitCreationTimeIsKept(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTaskRepo(t)

	task := testmodels.NewTask("t1", "imported")
	want := time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC)
	task.CreatedAt = want

	saved, err := repo.Save(ctx, task)
	require.NoError(t, err)
	assert.True(t, saved.CreatedAt.Equal(want))
	assert.False(t, saved.UpdatedAt.Equal(want))
}
