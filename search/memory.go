/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultLimit is the page size used when a query requests no limit.
const DefaultLimit = 20

// MemoryService is an in-memory Service for tests and local development.
// String predicates match case-insensitively by substring; all other
// values match by equality.
type MemoryService struct {
	mu      sync.RWMutex
	indexes map[string]map[string]Entry
}

// NewMemoryService creates an empty in-memory search service.
func NewMemoryService() *MemoryService {
	return &MemoryService{indexes: make(map[string]map[string]Entry)}
}

// Index implements Service.
func (s *MemoryService) Index(ctx context.Context, indexName string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.indexes[indexName]
	if !ok {
		index = make(map[string]Entry)
		s.indexes[indexName] = index
	}
	for _, entry := range entries {
		index[entry.ID] = entry
	}
	return nil
}

// Delete implements Service.
func (s *MemoryService) Delete(ctx context.Context, indexName string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.indexes[indexName]
	for _, id := range ids {
		delete(index, id)
	}
	return nil
}

// DeleteAll implements Service.
func (s *MemoryService) DeleteAll(ctx context.Context, indexName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, indexName)
	return nil
}

// Query implements Service.
func (s *MemoryService) Query(ctx context.Context, req Request) (*Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Entry
	for _, entry := range s.indexes[req.IndexName] {
		if matchesFields(entry, req.Fields) {
			matches = append(matches, entry)
		}
	}

	sortMatches(matches, req.Sort)

	limit := req.Page.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := req.Page.Offset
	if offset < 0 {
		offset = 0
	}

	ids := make([]string, 0, limit)
	for i := offset; i < len(matches) && len(ids) < limit; i++ {
		ids = append(ids, matches[i].ID)
	}

	return &Results{
		ResultCount: len(matches),
		Limit:       limit,
		Offset:      offset,
		IDs:         ids,
	}, nil
}

// Size returns the number of entries in an index.
func (s *MemoryService) Size(indexName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexes[indexName])
}

// Entry returns an indexed entry.
func (s *MemoryService) Entry(indexName, id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.indexes[indexName][id]
	return entry, ok
}

func matchesFields(entry Entry, fields map[string]any) bool {
	for name, want := range fields {
		got, ok := entry.Fields[name]
		if !ok {
			return false
		}
		if !matchValue(got, want) {
			return false
		}
	}
	return true
}

func matchValue(got, want any) bool {
	ws, wok := want.(string)
	gs, gok := got.(string)
	if wok && gok {
		return strings.Contains(strings.ToLower(gs), strings.ToLower(ws))
	}
	return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
}

func sortMatches(matches []Entry, by *Sort) {
	sort.Slice(matches, func(i, j int) bool {
		if by != nil {
			c := compareValues(matches[i].Fields[by.Field], matches[j].Fields[by.Field])
			if c != 0 {
				if by.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		// Ties and unsorted queries fall back to id order for stability.
		return matches[i].ID < matches[j].ID
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return compareFloats(float64(av), float64(bv))
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return compareFloats(float64(av), float64(bv))
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return compareFloats(av, bv)
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
