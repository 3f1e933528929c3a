/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

// Package testmodels holds shared entity types for the library's tests.
package testmodels

import (
	"github.com/VivekRajagopal/gae-js/datastore"
)

// User is a plain entity with validator tags.
type User struct {
	datastore.BaseEntity
	Name  string   `datastore:"name" valid:"required"`
	Email string   `datastore:"email" valid:"email,optional"`
	Age   int64    `datastore:"age"`
	Tags  []string `datastore:"tags"`
}

// NewUser creates a user with the given id and name.
func NewUser(id, name string) *User {
	return &User{BaseEntity: datastore.BaseEntity{ID: id}, Name: name}
}

// Task is a timestamped entity.
type Task struct {
	datastore.TimestampedEntity
	Title string `datastore:"title" valid:"required"`
	Done  bool   `datastore:"done"`
}

// NewTask creates a task whose creation time is assigned on first save.
func NewTask(id, title string) *Task {
	return &Task{TimestampedEntity: datastore.NewTimestampedEntity(id), Title: title}
}
