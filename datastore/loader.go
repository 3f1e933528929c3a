/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"

	ds "cloud.google.com/go/datastore"
)

// Loader is the transaction-aware read/write layer between the repository
// and the driver. Outside a transaction each call is a single driver round
// trip. Inside one (established by RunInTransaction), reads consult the
// transaction's accumulator before hitting the driver so a transaction
// always sees its own uncommitted writes, and writes are buffered into the
// driver transaction for an atomic commit.
//
// The Loader itself is stateless; all mutable state lives in the
// transaction accumulator carried by the context.
type Loader struct {
	driver Driver
}

// NewLoader wraps a driver in a transaction-aware loader.
func NewLoader(d Driver) *Loader {
	return &Loader{driver: d}
}

// Driver returns the underlying driver.
func (l *Loader) Driver() Driver { return l.driver }

// Get fetches the records for keys, in order. Entries for missing keys
// are nil.
func (l *Loader) Get(ctx context.Context, keys []*ds.Key) ([]ds.PropertyList, error) {
	st, ok := transactionState(ctx)
	if !ok {
		return l.driver.Get(ctx, keys)
	}

	out := make([]ds.PropertyList, len(keys))
	var misses []*ds.Key
	var missIdx []int
	for i, key := range keys {
		if entry, hit := st.lookup(key); hit {
			if !entry.deleted {
				out[i] = entry.props
			}
			continue
		}
		misses = append(misses, key)
		missIdx = append(missIdx, i)
	}

	if len(misses) > 0 {
		fetched, err := st.tx.Get(misses)
		if err != nil {
			return nil, err
		}
		for j, props := range fetched {
			out[missIdx[j]] = props
			// Snapshot the read so a repeated get in the same transaction
			// returns consistent state without another round trip.
			if props != nil {
				st.record(misses[j], props)
			} else {
				st.tombstone(misses[j])
			}
		}
	}
	return out, nil
}

// Save upserts records, overwriting any existing documents entirely.
func (l *Loader) Save(ctx context.Context, records []Record) error {
	if st, ok := transactionState(ctx); ok {
		if err := st.tx.Put(records); err != nil {
			return err
		}
		for _, rec := range records {
			st.record(rec.Key, rec.Properties)
		}
		return nil
	}
	return l.driver.Put(ctx, records)
}

// Insert writes records whose keys must not already exist. Conflicts are
// reported as errors.ErrAlreadyExists; inside a transaction they surface
// at commit and fail the transaction as a whole.
func (l *Loader) Insert(ctx context.Context, records []Record) error {
	if st, ok := transactionState(ctx); ok {
		if err := st.tx.Insert(records); err != nil {
			return err
		}
		for _, rec := range records {
			st.record(rec.Key, rec.Properties)
		}
		return nil
	}
	return l.driver.Insert(ctx, records)
}

// Update overwrites records whose keys must already exist.
func (l *Loader) Update(ctx context.Context, records []Record) error {
	if st, ok := transactionState(ctx); ok {
		if err := st.tx.Update(records); err != nil {
			return err
		}
		for _, rec := range records {
			st.record(rec.Key, rec.Properties)
		}
		return nil
	}
	return l.driver.Update(ctx, records)
}

// Delete removes the documents for keys. Missing keys are not an error.
func (l *Loader) Delete(ctx context.Context, keys []*ds.Key) error {
	if st, ok := transactionState(ctx); ok {
		if err := st.tx.Delete(keys); err != nil {
			return err
		}
		for _, key := range keys {
			st.tombstone(key)
		}
		return nil
	}
	return l.driver.Delete(ctx, keys)
}

// RunQuery executes q, joining the active transaction's snapshot when one
// is present. Query results do not observe the transaction's own
// uncommitted writes; that is a property of the underlying store.
func (l *Loader) RunQuery(ctx context.Context, q *Query) ([]Record, string, error) {
	if st, ok := transactionState(ctx); ok {
		return st.tx.RunQuery(q)
	}
	return l.driver.RunQuery(ctx, q)
}
