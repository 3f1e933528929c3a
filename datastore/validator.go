/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"github.com/asaskevich/govalidator"
)

// Validator checks an entity's shape on load and save. Implementations
// are injected per repository instance via WithValidator; the core never
// depends on a specific validation library's types.
type Validator[T any] interface {
	Validate(entity *T) error
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc[T any] func(entity *T) error

// Validate calls f.
func (f ValidatorFunc[T]) Validate(entity *T) error { return f(entity) }

// StructValidator validates entities against their govalidator struct
// tags, e.g.
//
//	type User struct {
//	    datastore.BaseEntity
//	    Email string `datastore:"email" valid:"email,required"`
//	}
type StructValidator[T any] struct{}

// NewStructValidator returns a tag-driven validator for T.
func NewStructValidator[T any]() StructValidator[T] {
	return StructValidator[T]{}
}

// Validate checks the entity's struct tags.
func (StructValidator[T]) Validate(entity *T) error {
	_, err := govalidator.ValidateStruct(entity)
	return err
}
