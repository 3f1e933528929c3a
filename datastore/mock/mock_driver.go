/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

// Package mock provides an in-memory Driver implementation for testing.
package mock

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	ds "cloud.google.com/go/datastore"

	"github.com/VivekRajagopal/gae-js/datastore"
	"github.com/VivekRajagopal/gae-js/errors"
)

// Driver is an in-memory datastore.Driver for testing. It evaluates
// queries (filters including array-contains, multi-key sort, projections,
// offset/limit and cursors) against its own storage and supports
// transactions with commit-time insert-conflict detection.
type Driver struct {
	mu   sync.RWMutex
	data map[string]storedRecord // encoded key -> record

	getErr    error
	putErr    error
	deleteErr error
	queryErr  error
}

type storedRecord struct {
	key   *ds.Key
	props ds.PropertyList
}

var _ datastore.Driver = (*Driver)(nil)

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{data: make(map[string]storedRecord)}
}

// WithGetError makes read operations return err.
func (d *Driver) WithGetError(err error) *Driver {
	d.getErr = err
	return d
}

// WithPutError makes write operations return err.
func (d *Driver) WithPutError(err error) *Driver {
	d.putErr = err
	return d
}

// WithDeleteError makes delete operations return err.
func (d *Driver) WithDeleteError(err error) *Driver {
	d.deleteErr = err
	return d
}

// WithQueryError makes queries return err.
func (d *Driver) WithQueryError(err error) *Driver {
	d.queryErr = err
	return d
}

// Size returns the number of stored documents for a kind.
func (d *Driver) Size(kind string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, rec := range d.data {
		if rec.key.Kind == kind {
			n++
		}
	}
	return n
}

// Get implements datastore.Driver.
func (d *Driver) Get(ctx context.Context, keys []*ds.Key) ([]ds.PropertyList, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.getLocked(keys), nil
}

func (d *Driver) getLocked(keys []*ds.Key) []ds.PropertyList {
	out := make([]ds.PropertyList, len(keys))
	for i, key := range keys {
		if rec, ok := d.data[key.Encode()]; ok {
			out[i] = clonePropertyList(rec.props)
		}
	}
	return out
}

// Put implements datastore.Driver.
func (d *Driver) Put(ctx context.Context, records []datastore.Record) error {
	if d.putErr != nil {
		return d.putErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.putLocked(records)
	return nil
}

func (d *Driver) putLocked(records []datastore.Record) {
	for _, rec := range records {
		d.data[rec.Key.Encode()] = storedRecord{key: rec.Key, props: clonePropertyList(rec.Properties)}
	}
}

// Insert implements datastore.Driver. The whole batch fails without
// writing anything if any key is already taken.
func (d *Driver) Insert(ctx context.Context, records []datastore.Record) error {
	if d.putErr != nil {
		return d.putErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkInsertLocked(records); err != nil {
		return err
	}
	d.putLocked(records)
	return nil
}

func (d *Driver) checkInsertLocked(records []datastore.Record) error {
	for _, rec := range records {
		if _, exists := d.data[rec.Key.Encode()]; exists {
			return errors.NewAlreadyExistsError(rec.Key.Kind, rec.Key.Name)
		}
	}
	return nil
}

// Update implements datastore.Driver. Updating a missing key fails.
func (d *Driver) Update(ctx context.Context, records []datastore.Record) error {
	if d.putErr != nil {
		return d.putErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range records {
		if _, exists := d.data[rec.Key.Encode()]; !exists {
			return ds.ErrNoSuchEntity
		}
	}
	d.putLocked(records)
	return nil
}

// Delete implements datastore.Driver. Missing keys are not an error.
func (d *Driver) Delete(ctx context.Context, keys []*ds.Key) error {
	if d.deleteErr != nil {
		return d.deleteErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleteLocked(keys)
	return nil
}

func (d *Driver) deleteLocked(keys []*ds.Key) {
	for _, key := range keys {
		delete(d.data, key.Encode())
	}
}

// RunQuery implements datastore.Driver.
func (d *Driver) RunQuery(ctx context.Context, q *datastore.Query) ([]datastore.Record, string, error) {
	if d.queryErr != nil {
		return nil, "", d.queryErr
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.runQueryLocked(q)
}

func (d *Driver) runQueryLocked(q *datastore.Query) ([]datastore.Record, string, error) {
	if err := q.Validate(); err != nil {
		return nil, "", err
	}

	var matched []storedRecord
	for _, rec := range d.data {
		if rec.key.Kind != q.Kind {
			continue
		}
		if matchesFilters(rec, q.Filters) {
			matched = append(matched, rec)
		}
	}

	sortRecords(matched, q.Orders)

	// The result window is cut out of the full ordered match list so
	// cursors can be absolute positions.
	start := 0
	if q.StartCursor != "" {
		pos, err := decodeCursor(q.StartCursor)
		if err != nil {
			return nil, "", err
		}
		start = pos
	}
	end := len(matched)
	if q.EndCursor != "" {
		pos, err := decodeCursor(q.EndCursor)
		if err != nil {
			return nil, "", err
		}
		if pos < end {
			end = pos
		}
	}
	start += q.Offset
	if start > end {
		start = end
	}
	stop := end
	if q.Limit > 0 && start+q.Limit < stop {
		stop = start + q.Limit
	}

	records := make([]datastore.Record, 0, stop-start)
	for _, rec := range matched[start:stop] {
		records = append(records, datastore.Record{
			Key:        rec.key,
			Properties: projectProperties(rec.props, q),
		})
	}
	return records, encodeCursor(stop), nil
}

type txOpKind int

const (
	txInsert txOpKind = iota
	txPut
	txUpdate
	txDelete
)

// txOp is one buffered mutation. Ops are kept in issue order so a
// delete-then-put of the same key commits as present, like replaying the
// calls one by one.
type txOp struct {
	kind   txOpKind
	record datastore.Record
	key    *ds.Key
}

// mockTransaction buffers writes and applies them atomically on Commit
// while holding the driver lock. Reads and queries observe the state
// committed when they run, mirroring the snapshot semantics of the real
// store.
type mockTransaction struct {
	driver *Driver

	mu   sync.Mutex
	done bool
	ops  []txOp
}

// NewTransaction implements datastore.Driver.
func (d *Driver) NewTransaction(ctx context.Context) (datastore.Transaction, error) {
	return &mockTransaction{driver: d}, nil
}

func (t *mockTransaction) Get(keys []*ds.Key) ([]ds.PropertyList, error) {
	if t.driver.getErr != nil {
		return nil, t.driver.getErr
	}
	t.driver.mu.RLock()
	defer t.driver.mu.RUnlock()
	return t.driver.getLocked(keys), nil
}

func (t *mockTransaction) buffer(kind txOpKind, records []datastore.Record, keys []*ds.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range records {
		t.ops = append(t.ops, txOp{kind: kind, record: rec})
	}
	for _, key := range keys {
		t.ops = append(t.ops, txOp{kind: kind, key: key})
	}
}

func (t *mockTransaction) Put(records []datastore.Record) error {
	t.buffer(txPut, records, nil)
	return nil
}

func (t *mockTransaction) Insert(records []datastore.Record) error {
	t.buffer(txInsert, records, nil)
	return nil
}

func (t *mockTransaction) Update(records []datastore.Record) error {
	t.buffer(txUpdate, records, nil)
	return nil
}

func (t *mockTransaction) Delete(keys []*ds.Key) error {
	t.buffer(txDelete, nil, keys)
	return nil
}

func (t *mockTransaction) RunQuery(q *datastore.Query) ([]datastore.Record, string, error) {
	if t.driver.queryErr != nil {
		return nil, "", t.driver.queryErr
	}
	t.driver.mu.RLock()
	defer t.driver.mu.RUnlock()
	return t.driver.runQueryLocked(q)
}

// Commit replays the buffered ops in issue order against a staging copy
// of the store, then swaps it in, so either every op applies or none do.
func (t *mockTransaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true

	if t.driver.putErr != nil {
		return t.driver.putErr
	}

	t.driver.mu.Lock()
	defer t.driver.mu.Unlock()

	staged := make(map[string]storedRecord, len(t.driver.data))
	for enc, rec := range t.driver.data {
		staged[enc] = rec
	}
	for _, op := range t.ops {
		switch op.kind {
		case txInsert:
			enc := op.record.Key.Encode()
			if _, exists := staged[enc]; exists {
				return errors.NewAlreadyExistsError(op.record.Key.Kind, op.record.Key.Name)
			}
			staged[enc] = storedRecord{key: op.record.Key, props: clonePropertyList(op.record.Properties)}
		case txPut:
			staged[op.record.Key.Encode()] = storedRecord{key: op.record.Key, props: clonePropertyList(op.record.Properties)}
		case txUpdate:
			enc := op.record.Key.Encode()
			if _, exists := staged[enc]; !exists {
				return ds.ErrNoSuchEntity
			}
			staged[enc] = storedRecord{key: op.record.Key, props: clonePropertyList(op.record.Properties)}
		case txDelete:
			delete(staged, op.key.Encode())
		}
	}
	t.driver.data = staged
	return nil
}

func (t *mockTransaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.ops = nil
	return nil
}

// Query evaluation helpers.

func matchesFilters(rec storedRecord, filters []datastore.Filter) bool {
	for _, f := range filters {
		if !matchesFilter(rec, f) {
			return false
		}
	}
	return true
}

func matchesFilter(rec storedRecord, f datastore.Filter) bool {
	if f.Field == datastore.KeyField {
		want := ""
		switch v := f.Value.(type) {
		case string:
			want = v
		case *ds.Key:
			want = v.Name
		default:
			return false
		}
		return compareOp(rec.key.Name, want, f.Op)
	}

	value, ok := propertyValue(rec.props, f.Field)
	if !ok {
		return false
	}
	// A multi-valued property matches when any of its values does.
	if values, isSlice := value.([]any); isSlice {
		for _, v := range values {
			if compareOp(v, f.Value, f.Op) {
				return true
			}
		}
		return false
	}
	return compareOp(value, f.Value, f.Op)
}

func propertyValue(props ds.PropertyList, name string) (any, bool) {
	for _, p := range props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func compareOp(got, want any, op string) bool {
	c, ok := compareValues(got, want)
	if !ok {
		return false
	}
	switch op {
	case "=":
		return c == 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	default:
		return false
	}
}

// compareValues orders two property values. Integers widen to float64 so
// an int filter value compares against the int64 the codec stores.
func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortRecords(records []storedRecord, orders []datastore.Order) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range orders {
			c, ok := compareOrderValues(records[i], records[j], o.Field)
			if !ok || c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		// Natural key order breaks all remaining ties.
		return records[i].key.Name < records[j].key.Name
	})
}

func compareOrderValues(a, b storedRecord, field string) (int, bool) {
	if field == datastore.KeyField {
		return strings.Compare(a.key.Name, b.key.Name), true
	}
	av, aok := propertyValue(a.props, field)
	bv, bok := propertyValue(b.props, field)
	if !aok || !bok {
		// Entities missing the sorted property group before the rest.
		switch {
		case aok:
			return 1, true
		case bok:
			return -1, true
		default:
			return 0, true
		}
	}
	return compareValues(av, bv)
}

func projectProperties(props ds.PropertyList, q *datastore.Query) ds.PropertyList {
	if q.KeysOnly() {
		return nil
	}
	if len(q.Projection) == 0 {
		return clonePropertyList(props)
	}
	var out ds.PropertyList
	for _, p := range props {
		for _, name := range q.Projection {
			if p.Name == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func clonePropertyList(props ds.PropertyList) ds.PropertyList {
	out := make(ds.PropertyList, len(props))
	copy(out, props)
	for i, p := range out {
		if values, ok := p.Value.([]any); ok {
			cloned := make([]any, len(values))
			copy(cloned, values)
			out[i].Value = cloned
		}
	}
	return out
}

// Cursors are absolute positions in the full ordered match list, opaque
// to callers.

func encodeCursor(pos int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("pos:" + strconv.Itoa(pos)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	value, ok := strings.CutPrefix(string(raw), "pos:")
	if !ok {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	pos, err := strconv.Atoi(value)
	if err != nil || pos < 0 {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	return pos, nil
}
