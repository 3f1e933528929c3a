/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"
	"log/slog"

	"github.com/VivekRajagopal/gae-js/errors"
	"github.com/VivekRajagopal/gae-js/search"
)

// IndexFieldFunc derives one search index field from a post-persist
// entity. A nil function means "copy the stored property of the same name
// verbatim".
type IndexFieldFunc[T any] func(entity *T) any

// SearchResult is the typed result of Repository.Search: the match
// metadata reported by the search service plus the rehydrated entities.
// Matches whose documents were deleted after indexing are dropped.
type SearchResult[T any] struct {
	ResultCount int
	Limit       int
	Offset      int
	Results     []*T
}

// Search delegates full-text matching to the configured search service
// and rehydrates the matched ids through a batch get. It fails with
// errors.ErrNotConfigured when the repository has no search configuration.
func (r *Repository[T]) Search(ctx context.Context, fields map[string]any, sort *search.Sort, page search.Page) (*SearchResult[T], error) {
	if r.search == nil {
		return nil, errors.NewConfigurationError("search service")
	}

	matched, err := r.search.service.Query(ctx, search.Request{
		IndexName: r.search.indexName,
		Fields:    fields,
		Sort:      sort,
		Page:      page,
	})
	if err != nil {
		return nil, err
	}

	entities, err := r.GetMulti(ctx, matched.IDs)
	if err != nil {
		return nil, err
	}
	results := make([]*T, 0, len(entities))
	for _, entity := range entities {
		if entity != nil {
			results = append(results, entity)
		}
	}

	return &SearchResult[T]{
		ResultCount: matched.ResultCount,
		Limit:       matched.Limit,
		Offset:      matched.Offset,
		Results:     results,
	}, nil
}

// searchSync mirrors persisted entities into an external search index.
// Index maintenance runs synchronously within the persist call but its
// failure never rolls back the already-committed datastore write; it is
// logged and the index catches up on the next write.
type searchSync[T any] struct {
	service   search.Service
	indexName string
	fields    map[string]IndexFieldFunc[T]
}

// entries computes one index entry per entity from post-persist state.
// records is aligned with entities and supplies verbatim property copies.
func (s *searchSync[T]) entries(entities []*T, records []Record) []search.Entry {
	out := make([]search.Entry, len(entities))
	for i, entity := range entities {
		fields := make(map[string]any, len(s.fields))
		for name, derive := range s.fields {
			if derive != nil {
				fields[name] = derive(entity)
				continue
			}
			for _, prop := range records[i].Properties {
				if prop.Name == name {
					fields[name] = prop.Value
					break
				}
			}
		}
		out[i] = search.Entry{ID: records[i].Key.Name, Fields: fields}
	}
	return out
}

func (s *searchSync[T]) index(ctx context.Context, logger *slog.Logger, entities []*T, records []Record) {
	if err := s.service.Index(ctx, s.indexName, s.entries(entities, records)); err != nil {
		logger.Error("search index update failed", "index", s.indexName, "entries", len(entities), "err", err)
	}
}

func (s *searchSync[T]) delete(ctx context.Context, logger *slog.Logger, ids []string) {
	if err := s.service.Delete(ctx, s.indexName, ids...); err != nil {
		logger.Error("search index delete failed", "index", s.indexName, "ids", len(ids), "err", err)
	}
}

func (s *searchSync[T]) deleteAll(ctx context.Context, logger *slog.Logger) {
	if err := s.service.DeleteAll(ctx, s.indexName); err != nil {
		logger.Error("search index purge failed", "index", s.indexName, "err", err)
	}
}
