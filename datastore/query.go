/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"fmt"
)

// KeyField is the sentinel property name addressing the entity key.
// Sorting by KeyField orders by key; selecting only KeyField runs an
// id-only (keys-only) projection.
const KeyField = "__key__"

// Operators accepted by Query.Filter. Equality against an array-valued
// property matches entities whose array contains the value.
var queryOperators = map[string]bool{
	"=":  true,
	"<":  true,
	"<=": true,
	">":  true,
	">=": true,
}

// Filter constrains a single property.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Order is one sort clause. Field may be KeyField to sort by key.
type Order struct {
	Field      string
	Descending bool
}

// Query is an immutable description of a read. Values are built fluently
// starting from NewQuery; each method returns a derived copy, so queries
// can be shared and extended safely.
type Query struct {
	Kind        string
	Filters     []Filter
	Projection  []string
	Orders      []Order
	Limit       int
	Offset      int
	StartCursor string
	EndCursor   string

	err error
}

// NewQuery creates a query for the given kind.
func NewQuery(kind string) *Query {
	return &Query{Kind: kind}
}

func (q *Query) clone() *Query {
	c := *q
	// Slices are append-only from the caller's perspective; copy them so
	// derived queries never alias the originals.
	c.Filters = append([]Filter(nil), q.Filters...)
	c.Projection = append([]string(nil), q.Projection...)
	c.Orders = append([]Order(nil), q.Orders...)
	return &c
}

// Filter returns a derived query constrained by "field op value".
// Valid operators are =, <, <=, > and >=.
func (q *Query) Filter(field, op string, value any) *Query {
	c := q.clone()
	if !queryOperators[op] {
		c.err = fmt.Errorf("invalid query operator %q for field %q", op, field)
		return c
	}
	c.Filters = append(c.Filters, Filter{Field: field, Op: op, Value: value})
	return c
}

// FilterEq returns a derived query with an equality filter.
func (q *Query) FilterEq(field string, value any) *Query {
	return q.Filter(field, "=", value)
}

// Select returns a derived query projecting only the given fields.
// The entity id is always included since it is carried by the key.
// Selecting only KeyField yields id-only entities.
func (q *Query) Select(fields ...string) *Query {
	c := q.clone()
	c.Projection = append(c.Projection, fields...)
	return c
}

// OrderAsc returns a derived query sorted ascending by field.
func (q *Query) OrderAsc(field string) *Query {
	c := q.clone()
	c.Orders = append(c.Orders, Order{Field: field})
	return c
}

// OrderDesc returns a derived query sorted descending by field.
func (q *Query) OrderDesc(field string) *Query {
	c := q.clone()
	c.Orders = append(c.Orders, Order{Field: field, Descending: true})
	return c
}

// WithLimit returns a derived query returning at most n results.
func (q *Query) WithLimit(n int) *Query {
	c := q.clone()
	c.Limit = n
	return c
}

// WithOffset returns a derived query skipping the first n results.
func (q *Query) WithOffset(n int) *Query {
	c := q.clone()
	c.Offset = n
	return c
}

// Start returns a derived query beginning at the given cursor.
func (q *Query) Start(cursor string) *Query {
	c := q.clone()
	c.StartCursor = cursor
	return c
}

// End returns a derived query ending at the given cursor.
func (q *Query) End(cursor string) *Query {
	c := q.clone()
	c.EndCursor = cursor
	return c
}

// KeysOnly reports whether the projection addresses only the entity key.
func (q *Query) KeysOnly() bool {
	return len(q.Projection) == 1 && q.Projection[0] == KeyField
}

// Validate reports the first construction error, if any. Drivers call it
// before translating the query.
func (q *Query) Validate() error {
	if q.err != nil {
		return q.err
	}
	if q.Kind == "" {
		return fmt.Errorf("query has no kind")
	}
	for _, p := range q.Projection {
		if p == KeyField && len(q.Projection) > 1 {
			return fmt.Errorf("%s cannot be combined with other projected fields", KeyField)
		}
	}
	return nil
}

// QueryInfo carries pagination metadata for an executed query. EndCursor
// is reusable as a Start or End cursor in a subsequent query with the
// same filters and sort.
type QueryInfo struct {
	EndCursor string
}
