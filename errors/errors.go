/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a required entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when inserting an entity whose id is already taken
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when schema validation fails on load or save
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured is returned when an optional capability is used without being configured
	ErrNotConfigured = errors.New("feature not configured")
)

// NotFoundError represents an error when a required entity is not found
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("invalid id: %s with id %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity id is already taken
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s already exists", e.Kind)
	}
	return fmt.Sprintf("%s with id %q already exists", e.Kind, e.ID)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents a schema validation failure on load or save.
// Op is the direction of the failed operation, either "load" or "save".
type ValidationError struct {
	Kind string
	ID   string
	Op   string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%q with id %q failed to %s: %v", e.Kind, e.ID, e.Op, e.Err)
	}
	return fmt.Sprintf("%q with id %q failed to %s", e.Kind, e.ID, e.Op)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConfigurationError represents use of an optional capability that was never configured
type ConfigurationError struct {
	Feature string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(kind, id string) error {
	return &AlreadyExistsError{Kind: kind, ID: id}
}

// NewValidationError creates a new ValidationError for the given operation direction
func NewValidationError(kind, id, op string, err error) error {
	return &ValidationError{Kind: kind, ID: id, Op: op, Err: err}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(feature string) error {
	return &ConfigurationError{Feature: feature}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotConfigured checks if an error is a configuration error
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
