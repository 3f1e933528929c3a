/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	stderrors "errors"
	"fmt"

	ds "cloud.google.com/go/datastore"

	"github.com/VivekRajagopal/gae-js/errors"
)

// Operation directions passed to the validator and carried by
// validation errors.
const (
	opLoad = "load"
	opSave = "save"
)

// codec converts between the application form of an entity ({id, fields})
// and its storage form (key + property bag), and runs the configured
// validator over encoded/decoded values.
type codec[T any] struct {
	kind      string
	validator Validator[T]
}

// key builds the deterministic storage key for an id.
func (c *codec[T]) key(id string) *ds.Key {
	return ds.NameKey(c.kind, id, nil)
}

// encode strips the id from the entity and returns its storage form.
func (c *codec[T]) encode(entity *T) (Record, error) {
	id := any(entity).(Entity).EntityID()
	if id == "" {
		return Record{}, errors.NewValidationError(c.kind, "", opSave, fmt.Errorf("entity id is required"))
	}
	props, err := ds.SaveStruct(entity)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s %q: %w", c.kind, id, err)
	}
	return Record{Key: c.key(id), Properties: props}, nil
}

// decode merges the key's id into a freshly loaded entity. Property bags
// from projection queries are structurally incomplete; missing fields are
// simply left at their zero values.
func (c *codec[T]) decode(key *ds.Key, props ds.PropertyList) (*T, error) {
	entity := new(T)
	if err := ds.LoadStruct(entity, props); err != nil {
		var mismatch *ds.ErrFieldMismatch
		if !stderrors.As(err, &mismatch) {
			return nil, fmt.Errorf("decoding %s %q: %w", c.kind, key.Name, err)
		}
	}
	any(entity).(Entity).SetEntityID(key.Name)
	return entity, nil
}

// validate runs the configured validator, wrapping failures with the
// kind, id and operation direction. Without a validator it is a no-op.
func (c *codec[T]) validate(entity *T, op string) error {
	if c.validator == nil {
		return nil
	}
	if err := c.validator.Validate(entity); err != nil {
		return errors.NewValidationError(c.kind, any(entity).(Entity).EntityID(), op, err)
	}
	return nil
}
