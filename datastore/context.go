/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"
	"sync"

	ds "cloud.google.com/go/datastore"
)

type txContextKey struct{}

type timestampsDisabledKey struct{}

// pendingEntry is one slot in a transaction's accumulator: either a read
// snapshot, a pending write, or a tombstone for a pending delete.
type pendingEntry struct {
	props   ds.PropertyList
	deleted bool
}

// txState is the per-transaction accumulator shared by every Loader call
// issued within one RunInTransaction block. It exists for the lifetime of
// a single transaction and is discarded on commit or rollback.
type txState struct {
	tx Transaction

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

func newTxState(tx Transaction) *txState {
	return &txState{tx: tx, pending: make(map[string]*pendingEntry)}
}

func (s *txState) lookup(key *ds.Key) (*pendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key.Encode()]
	return e, ok
}

func (s *txState) record(key *ds.Key, props ds.PropertyList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key.Encode()] = &pendingEntry{props: props}
}

func (s *txState) tombstone(key *ds.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key.Encode()] = &pendingEntry{deleted: true}
}

func transactionState(ctx context.Context) (*txState, bool) {
	st, ok := ctx.Value(txContextKey{}).(*txState)
	return st, ok
}

// InTransaction reports whether ctx carries an active transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := transactionState(ctx)
	return ok
}

// RunInTransaction runs fn within a single datastore transaction. Every
// Loader call made with the context passed to fn participates in the
// transaction: reads see the transaction's own uncommitted writes, and all
// writes are flushed atomically on commit. If fn returns an error the
// transaction is rolled back and the error returned unchanged.
//
// If ctx already carries a transaction, fn joins it and commit/rollback is
// left to the outermost caller.
func RunInTransaction(ctx context.Context, d Driver, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := d.NewTransaction(ctx)
	if err != nil {
		return err
	}

	tctx := context.WithValue(ctx, txContextKey{}, newTxState(tx))
	if err := fn(tctx); err != nil {
		// The caller's error wins over any rollback failure.
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// WithTimestampsDisabled returns a context under which the timestamp
// persist hook leaves createdAt/updatedAt untouched, e.g. for migrations
// that must preserve historical timestamps.
func WithTimestampsDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, timestampsDisabledKey{}, true)
}

// TimestampsDisabled reports whether automatic timestamping is disabled
// for this context.
func TimestampsDisabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(timestampsDisabledKey{}).(bool)
	return disabled
}
