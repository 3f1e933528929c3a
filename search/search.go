/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package search

import (
	"context"
)

// Entry is one document in a search index: the entity id plus the
// computed index fields.
type Entry struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Sort orders matches by an index field.
type Sort struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Page bounds a result window. A zero Limit asks for the service default.
type Page struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Request describes one search: field predicates, an optional sort and a
// result window.
type Request struct {
	IndexName string         `json:"indexName"`
	Fields    map[string]any `json:"fields"`
	Sort      *Sort          `json:"sort,omitempty"`
	Page      Page           `json:"page"`
}

// Results carries the matched ids only; callers rehydrate entities from
// the primary store.
type Results struct {
	ResultCount int      `json:"resultCount"`
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`
	IDs         []string `json:"ids"`
}

// Service is the external search index capability consumed by the
// repository layer. Index replaces the entries for the given ids,
// Delete removes them, DeleteAll drops the whole index and Query returns
// matching ids with pagination metadata.
type Service interface {
	Index(ctx context.Context, indexName string, entries []Entry) error
	Delete(ctx context.Context, indexName string, ids ...string) error
	DeleteAll(ctx context.Context, indexName string) error
	Query(ctx context.Context, req Request) (*Results, error)
}
