/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"

	ds "cloud.google.com/go/datastore"
)

// Record is the storage form of an entity: a datastore key plus the
// property bag with the id stripped out.
type Record struct {
	Key        *ds.Key
	Properties ds.PropertyList
}

// Driver is the narrow contract the repository core consumes from the
// underlying database client. CloudDriver adapts the real Cloud Datastore
// client; the mock package provides an in-memory implementation for tests.
//
// All batch methods preserve input order. Get returns an entry per key,
// nil for keys with no stored document. Insert fails with
// errors.ErrAlreadyExists when any key is already taken; all other driver
// errors propagate unchanged.
type Driver interface {
	Get(ctx context.Context, keys []*ds.Key) ([]ds.PropertyList, error)
	Put(ctx context.Context, records []Record) error
	Insert(ctx context.Context, records []Record) error
	Update(ctx context.Context, records []Record) error
	Delete(ctx context.Context, keys []*ds.Key) error

	// RunQuery executes the query and returns the matched records along
	// with the end cursor of the result window.
	RunQuery(ctx context.Context, q *Query) ([]Record, string, error)

	// NewTransaction starts a driver-level transaction. Callers normally
	// use RunInTransaction instead of calling this directly.
	NewTransaction(ctx context.Context) (Transaction, error)
}

// Transaction is a driver-level transaction handle. Writes are deferred
// until Commit; reads observe the transaction's snapshot. Read-your-writes
// consistency within a transaction is layered on top by the Loader, not
// provided here.
type Transaction interface {
	Get(keys []*ds.Key) ([]ds.PropertyList, error)
	Put(records []Record) error
	Insert(records []Record) error
	Update(records []Record) error
	Delete(keys []*ds.Key) error

	// RunQuery executes a query within the transaction's snapshot.
	RunQuery(q *Query) ([]Record, string, error)

	// Commit flushes all buffered writes atomically. A buffered insert
	// whose key was taken in the meantime fails the whole transaction
	// with errors.ErrAlreadyExists.
	Commit() error
	Rollback() error
}
