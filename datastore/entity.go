/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all storable types. A repository for T
// requires *T to implement it; embedding BaseEntity is the usual way.
//
// The id lives only in the datastore key. On save it is stripped from the
// stored property bag and used to build the key; on load it is reconstituted
// from the key name. Ids are always caller-supplied; the library never asks
// the datastore to allocate one.
type Entity interface {
	// EntityID returns the caller-supplied id of the entity.
	EntityID() string

	// SetEntityID sets the id, typically from the key of a loaded document.
	SetEntityID(id string)
}

// BaseEntity provides the Entity implementation for embedding.
type BaseEntity struct {
	// ID is excluded from the stored properties; it is carried by the key.
	ID string `datastore:"-" json:"id"`
}

// EntityID returns the entity id.
func (e *BaseEntity) EntityID() string { return e.ID }

// SetEntityID sets the entity id.
func (e *BaseEntity) SetEntityID(id string) { e.ID = id }

// GenerateTimestamp is the reserved sentinel creation time meaning
// "assign on first save". Entity constructors set CreatedAt to this value
// so the timestamp hook stamps it once and preserves it afterwards.
var GenerateTimestamp = time.Unix(0, 0).UTC()

// TimestampedEntity extends BaseEntity with createdAt/updatedAt fields
// maintained by the timestamp persist hook.
type TimestampedEntity struct {
	BaseEntity
	CreatedAt time.Time `datastore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `datastore:"updatedAt" json:"updatedAt"`
}

// NewTimestampedEntity returns a TimestampedEntity whose creation time is
// assigned on first save.
func NewTimestampedEntity(id string) TimestampedEntity {
	return TimestampedEntity{
		BaseEntity: BaseEntity{ID: id},
		CreatedAt:  GenerateTimestamp,
	}
}

// CreatedTime returns the creation timestamp.
func (e *TimestampedEntity) CreatedTime() time.Time { return e.CreatedAt }

// SetCreatedTime sets the creation timestamp.
func (e *TimestampedEntity) SetCreatedTime(t time.Time) { e.CreatedAt = t }

// SetUpdatedTime sets the last-update timestamp.
func (e *TimestampedEntity) SetUpdatedTime(t time.Time) { e.UpdatedAt = t }

// NewID returns a random id for callers that have no natural key.
func NewID() string {
	return uuid.NewString()
}
