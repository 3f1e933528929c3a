/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"
	"time"
)

// StreamResult is a single item delivered by Repository.Stream. Either
// Entity or Err is set; a result with Err ends the stream.
type StreamResult[T any] struct {
	Entity *T
	Err    error
	Meta   StreamMeta
}

// StreamMeta describes where an item sits in the stream.
type StreamMeta struct {
	// Index is the 0-based position of the item in the stream.
	Index int64
	// Page is the 1-based query page the item came from.
	Page int
	// Timestamp is when the item was decoded.
	Timestamp time.Time
}

// StreamProgress is reported to the progress handler after every page.
type StreamProgress struct {
	ItemsProcessed int64
	PagesProcessed int
	// Cursor resumes the stream from after the last processed page.
	Cursor string
	// StartTime is when the stream began.
	StartTime time.Time
	// CurrentRate is items per second since StartTime.
	CurrentRate float64
}

// StreamOptions configures Repository.Stream.
type StreamOptions struct {
	// BufferSize is the result channel capacity (default 100).
	BufferSize int
	// PageSize is the number of entities fetched per query page
	// (default 100).
	PageSize int
	// ProgressHandler, when set, is called after each page.
	ProgressHandler func(StreamProgress)
}

// StreamOption configures streaming behaviour.
type StreamOption func(*StreamOptions)

// WithBufferSize sets the result channel capacity.
func WithBufferSize(size int) StreamOption {
	return func(o *StreamOptions) { o.BufferSize = size }
}

// WithPageSize sets the number of entities fetched per query page.
func WithPageSize(size int) StreamOption {
	return func(o *StreamOptions) { o.PageSize = size }
}

// WithProgressHandler registers a per-page progress callback.
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(o *StreamOptions) { o.ProgressHandler = handler }
}

func defaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize: 100,
		PageSize:   100,
	}
}

// Stream runs the query in cursor-sized pages and delivers decoded
// entities on a channel, so large result sets can be processed without
// holding them in memory. The channel is closed when the results are
// exhausted, an error is delivered, or ctx is cancelled. The query's own
// Limit and cursors still apply; Stream pages within them.
func (r *Repository[T]) Stream(ctx context.Context, q *Query, opts ...StreamOption) <-chan StreamResult[T] {
	options := defaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	results := make(chan StreamResult[T], options.BufferSize)
	go r.streamWorker(ctx, q, options, results)
	return results
}

func (r *Repository[T]) streamWorker(ctx context.Context, q *Query, options StreamOptions, results chan<- StreamResult[T]) {
	defer close(results)

	var index int64
	var page int
	startTime := time.Now()
	remaining := q.Limit // 0 means unbounded

	reportProgress := func(cursor string) {
		if options.ProgressHandler == nil {
			return
		}
		progress := StreamProgress{
			ItemsProcessed: index,
			PagesProcessed: page,
			Cursor:         cursor,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(index) / elapsed
		}
		options.ProgressHandler(progress)
	}

	deliver := func(res StreamResult[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case results <- res:
			return true
		}
	}

	pageQuery := q.WithLimit(options.PageSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if remaining > 0 && remaining < options.PageSize {
			pageQuery = pageQuery.WithLimit(remaining)
		}

		entities, info, err := r.RunQuery(ctx, pageQuery)
		if err != nil {
			deliver(StreamResult[T]{Err: err, Meta: StreamMeta{Index: index, Page: page, Timestamp: time.Now()}})
			return
		}
		page++

		for _, entity := range entities {
			if !deliver(StreamResult[T]{
				Entity: entity,
				Meta:   StreamMeta{Index: index, Page: page, Timestamp: time.Now()},
			}) {
				return
			}
			index++
		}
		reportProgress(info.EndCursor)

		if len(entities) < pageQuery.Limit {
			return
		}
		if remaining > 0 {
			remaining -= len(entities)
			if remaining <= 0 {
				return
			}
		}
		// Offset applies only to the first page; cursors take over.
		pageQuery = pageQuery.WithOffset(0).Start(info.EndCursor)
	}
}
