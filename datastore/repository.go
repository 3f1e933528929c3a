/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"
	"fmt"
	"log/slog"

	ds "cloud.google.com/go/datastore"

	"github.com/VivekRajagopal/gae-js/errors"
	"github.com/VivekRajagopal/gae-js/search"
)

// deleteAllBatchSize bounds a single DeleteAll page so no request carries
// an unbounded payload.
const deleteAllBatchSize = 100

// PersistHook transforms entities before they are validated and stored.
// Hooks run in registration order, exactly once per persist call; the
// pipeline's output, not the original input, is what gets persisted.
type PersistHook[T any] func(ctx context.Context, entities []*T) ([]*T, error)

// Repository provides typed CRUD, querying and search over a single kind.
// It is stateless and safe for concurrent use; per-transaction state lives
// in the context (see RunInTransaction).
type Repository[T any] struct {
	kind   string
	loader *Loader
	codec  codec[T]
	hooks  []PersistHook[T]
	search *searchSync[T]
	logger *slog.Logger
}

// Option configures a Repository.
type Option[T any] func(*Repository[T])

// WithValidator runs v over every entity decoded from or encoded to the
// datastore.
func WithValidator[T any](v Validator[T]) Option[T] {
	return func(r *Repository[T]) { r.codec.validator = v }
}

// WithPersistHook appends a hook to the persistence pipeline.
func WithPersistHook[T any](h PersistHook[T]) Option[T] {
	return func(r *Repository[T]) { r.hooks = append(r.hooks, h) }
}

// WithSearch mirrors persisted entities into the named index of the given
// search service. Each configured field is either copied verbatim from
// the stored property bag (nil IndexFieldFunc) or derived from the
// post-persist entity by the given function.
func WithSearch[T any](svc search.Service, indexName string, fields map[string]IndexFieldFunc[T]) Option[T] {
	return func(r *Repository[T]) {
		r.search = &searchSync[T]{service: svc, indexName: indexName, fields: fields}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(r *Repository[T]) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRepository creates a repository for kind backed by the given driver.
// *T must implement Entity; embedding BaseEntity is the usual way.
func NewRepository[T any](d Driver, kind string, opts ...Option[T]) (*Repository[T], error) {
	if d == nil {
		return nil, fmt.Errorf("repository driver is required")
	}
	if kind == "" {
		return nil, fmt.Errorf("repository kind is required")
	}
	var probe *T
	if _, ok := any(probe).(Entity); !ok {
		return nil, fmt.Errorf("*%T must implement datastore.Entity", *new(T))
	}

	r := &Repository[T]{
		kind:   kind,
		loader: NewLoader(d),
		codec:  codec[T]{kind: kind},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Kind returns the collection name the repository is fixed to.
func (r *Repository[T]) Kind() string { return r.kind }

// Key builds the storage key for an id.
func (r *Repository[T]) Key(id string) *ds.Key { return r.codec.key(id) }

// NewQuery starts a query over the repository's kind.
func (r *Repository[T]) NewQuery() *Query { return NewQuery(r.kind) }

// Exists reports whether a document with the given id is present. It never
// fails on absence.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	props, err := r.loader.Get(ctx, []*ds.Key{r.codec.key(id)})
	if err != nil {
		return false, err
	}
	return props[0] != nil, nil
}

// Get fetches one entity, or nil when absent. A configured validator runs
// over the loaded value; its failure is returned, never swallowed.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	results, err := r.GetMulti(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// GetMulti fetches entities in id order; missing documents yield nil in
// place.
func (r *Repository[T]) GetMulti(ctx context.Context, ids []string) ([]*T, error) {
	keys := make([]*ds.Key, len(ids))
	for i, id := range ids {
		keys[i] = r.codec.key(id)
	}
	propLists, err := r.loader.Get(ctx, keys)
	if err != nil {
		return nil, err
	}

	results := make([]*T, len(ids))
	for i, props := range propLists {
		if props == nil {
			continue
		}
		entity, err := r.codec.decode(keys[i], props)
		if err != nil {
			return nil, err
		}
		if err := r.codec.validate(entity, opLoad); err != nil {
			return nil, err
		}
		results[i] = entity
	}
	return results, nil
}

// GetRequired is Get, but absence is an errors.ErrNotFound failure naming
// the missing id.
func (r *Repository[T]) GetRequired(ctx context.Context, id string) (*T, error) {
	results, err := r.GetRequiredMulti(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// GetRequiredMulti is GetMulti, failing on the first missing id.
func (r *Repository[T]) GetRequiredMulti(ctx context.Context, ids []string) ([]*T, error) {
	results, err := r.GetMulti(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, entity := range results {
		if entity == nil {
			return nil, errors.NewNotFoundError(r.kind, ids[i])
		}
	}
	return results, nil
}

// Save upserts one entity, overwriting any existing document entirely.
// It returns the persisted entity, i.e. the persist pipeline's output.
func (r *Repository[T]) Save(ctx context.Context, entity *T) (*T, error) {
	results, err := r.SaveMulti(ctx, []*T{entity})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// SaveMulti upserts entities in one driver round trip.
func (r *Repository[T]) SaveMulti(ctx context.Context, entities []*T) ([]*T, error) {
	return r.persist(ctx, entities, r.loader.Save)
}

// Insert is Save for documents that must not already exist. The whole
// batch fails with errors.ErrAlreadyExists if any id is taken.
func (r *Repository[T]) Insert(ctx context.Context, entity *T) (*T, error) {
	results, err := r.InsertMulti(ctx, []*T{entity})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// InsertMulti inserts entities in one driver round trip.
func (r *Repository[T]) InsertMulti(ctx context.Context, entities []*T) ([]*T, error) {
	return r.persist(ctx, entities, r.loader.Insert)
}

// Update overwrites one existing document. This store has no
// partial-field update primitive; the document is replaced entirely.
func (r *Repository[T]) Update(ctx context.Context, entity *T) (*T, error) {
	results, err := r.UpdateMulti(ctx, []*T{entity})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// UpdateMulti overwrites existing documents in one driver round trip.
func (r *Repository[T]) UpdateMulti(ctx context.Context, entities []*T) ([]*T, error) {
	return r.persist(ctx, entities, r.loader.Update)
}

// persist runs the shared save/insert/update path: hook pipeline, then
// per-entity validate and encode, then a single loader call, then search
// index synchronization.
func (r *Repository[T]) persist(ctx context.Context, entities []*T, op func(context.Context, []Record) error) ([]*T, error) {
	var err error
	for _, hook := range r.hooks {
		entities, err = hook(ctx, entities)
		if err != nil {
			return nil, err
		}
	}

	records := make([]Record, len(entities))
	for i, entity := range entities {
		if err := r.codec.validate(entity, opSave); err != nil {
			return nil, err
		}
		rec, err := r.codec.encode(entity)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	if err := op(ctx, records); err != nil {
		return nil, err
	}

	if r.search != nil {
		r.search.index(ctx, r.logger, entities, records)
	}
	return entities, nil
}

// Delete removes the documents for the given ids, and their index entries
// when search is configured. Missing ids are not an error.
func (r *Repository[T]) Delete(ctx context.Context, ids ...string) error {
	keys := make([]*ds.Key, len(ids))
	for i, id := range ids {
		keys[i] = r.codec.key(id)
	}
	if err := r.loader.Delete(ctx, keys); err != nil {
		return err
	}
	if r.search != nil {
		r.search.delete(ctx, r.logger, ids)
	}
	return nil
}

// DeleteAll removes every document in the kind, paging through keys-only
// queries in fixed-size batches, and clears the search index when one is
// configured. Consistency against concurrent writers is best-effort.
//
// DeleteAll cannot run inside a transaction: transactional queries read
// the snapshot taken at transaction start, which never shrinks as deletes
// are buffered, so the paging loop would re-read the same page forever.
func (r *Repository[T]) DeleteAll(ctx context.Context) error {
	if InTransaction(ctx) {
		return fmt.Errorf("DeleteAll cannot run inside a transaction")
	}
	q := r.NewQuery().Select(KeyField).WithLimit(deleteAllBatchSize)
	for {
		records, _, err := r.loader.RunQuery(ctx, q)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}
		keys := make([]*ds.Key, len(records))
		for i, rec := range records {
			keys[i] = rec.Key
		}
		if err := r.loader.Delete(ctx, keys); err != nil {
			return err
		}
		if len(records) < deleteAllBatchSize {
			break
		}
	}
	if r.search != nil {
		r.search.deleteAll(ctx, r.logger)
	}
	return nil
}

// RunQuery executes q and decodes the matched records. Queries built with
// NewQuery carry the repository's kind already; a query for a different
// kind is rejected. Id-only projections return bare {id} entities and
// suppress the validator, which the projected shape could never satisfy.
func (r *Repository[T]) RunQuery(ctx context.Context, q *Query) ([]*T, QueryInfo, error) {
	if q.Kind == "" {
		c := q.clone()
		c.Kind = r.kind
		q = c
	} else if q.Kind != r.kind {
		return nil, QueryInfo{}, fmt.Errorf("query kind %q does not match repository kind %q", q.Kind, r.kind)
	}

	records, endCursor, err := r.loader.RunQuery(ctx, q)
	if err != nil {
		return nil, QueryInfo{}, err
	}

	keysOnly := q.KeysOnly()
	results := make([]*T, len(records))
	for i, rec := range records {
		if keysOnly {
			entity := new(T)
			any(entity).(Entity).SetEntityID(rec.Key.Name)
			results[i] = entity
			continue
		}
		entity, err := r.codec.decode(rec.Key, rec.Properties)
		if err != nil {
			return nil, QueryInfo{}, err
		}
		if err := r.codec.validate(entity, opLoad); err != nil {
			return nil, QueryInfo{}, err
		}
		results[i] = entity
	}
	return results, QueryInfo{EndCursor: endCursor}, nil
}
