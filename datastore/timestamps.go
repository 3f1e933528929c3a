/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"
	"time"
)

// timestamped is implemented by entities carrying createdAt/updatedAt,
// typically by embedding TimestampedEntity.
type timestamped interface {
	CreatedTime() time.Time
	SetCreatedTime(t time.Time)
	SetUpdatedTime(t time.Time)
}

// TimestampHook returns the persist hook that maintains createdAt and
// updatedAt. On every persist updatedAt is set to the current time;
// createdAt is assigned only when it is unset or carries the
// GenerateTimestamp sentinel, so re-saving never clobbers the original
// creation time. When the context carries the WithTimestampsDisabled flag
// entities pass through untouched.
func TimestampHook[T any]() PersistHook[T] {
	return func(ctx context.Context, entities []*T) ([]*T, error) {
		if TimestampsDisabled(ctx) {
			return entities, nil
		}
		now := time.Now().UTC()
		for _, entity := range entities {
			ts, ok := any(entity).(timestamped)
			if !ok {
				continue
			}
			ts.SetUpdatedTime(now)
			created := ts.CreatedTime()
			if created.IsZero() || created.Equal(GenerateTimestamp) {
				ts.SetCreatedTime(now)
			}
		}
		return entities, nil
	}
}

// NewTimestampedRepository creates a repository whose persist pipeline
// starts with the timestamp hook. *T should embed TimestampedEntity.
func NewTimestampedRepository[T any](d Driver, kind string, opts ...Option[T]) (*Repository[T], error) {
	opts = append([]Option[T]{WithPersistHook(TimestampHook[T]())}, opts...)
	return NewRepository[T](d, kind, opts...)
}
