/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package datastore

import (
	"context"
	stderrors "errors"
	"fmt"

	ds "cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/VivekRajagopal/gae-js/errors"
)

// CloudDriver adapts a Cloud Datastore client to the Driver interface.
type CloudDriver struct {
	client    *ds.Client
	namespace string
}

var _ Driver = (*CloudDriver)(nil)

// CloudOption configures a CloudDriver.
type CloudOption func(*CloudDriver)

// WithNamespace scopes every key and query issued by the driver to the
// given datastore namespace.
func WithNamespace(ns string) CloudOption {
	return func(d *CloudDriver) { d.namespace = ns }
}

// NewCloudDriver creates a driver backed by a real Cloud Datastore client.
// Client options are passed through, e.g. option.WithEndpoint for the
// emulator or option.WithCredentialsFile.
func NewCloudDriver(ctx context.Context, projectID string, opts []option.ClientOption, cloudOpts ...CloudOption) (*CloudDriver, error) {
	client, err := ds.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating datastore client: %w", err)
	}
	return NewCloudDriverWithClient(client, cloudOpts...), nil
}

// NewCloudDriverWithClient wraps an existing client.
func NewCloudDriverWithClient(client *ds.Client, cloudOpts ...CloudOption) *CloudDriver {
	d := &CloudDriver{client: client}
	for _, opt := range cloudOpts {
		opt(d)
	}
	return d
}

// Close closes the underlying client.
func (d *CloudDriver) Close() error {
	return d.client.Close()
}

func (d *CloudDriver) key(k *ds.Key) *ds.Key {
	if d.namespace == "" || k.Namespace == d.namespace {
		return k
	}
	c := *k
	c.Namespace = d.namespace
	return &c
}

func (d *CloudDriver) keys(keys []*ds.Key) []*ds.Key {
	if d.namespace == "" {
		return keys
	}
	out := make([]*ds.Key, len(keys))
	for i, k := range keys {
		out[i] = d.key(k)
	}
	return out
}

func splitRecords(records []Record) ([]*ds.Key, []ds.PropertyList) {
	keys := make([]*ds.Key, len(records))
	props := make([]ds.PropertyList, len(records))
	for i, rec := range records {
		keys[i] = rec.Key
		props[i] = rec.Properties
	}
	return keys, props
}

// Get implements Driver. Missing keys yield nil entries rather than an
// error; any other per-key failure fails the whole call.
func (d *CloudDriver) Get(ctx context.Context, keys []*ds.Key) ([]ds.PropertyList, error) {
	return cloudGet(d.keys(keys), func(ks []*ds.Key, dst []ds.PropertyList) error {
		return d.client.GetMulti(ctx, ks, dst)
	})
}

// cloudGet runs a driver-level batch get and normalizes per-key
// ErrNoSuchEntity entries to nil property lists.
func cloudGet(keys []*ds.Key, get func([]*ds.Key, []ds.PropertyList) error) ([]ds.PropertyList, error) {
	out := make([]ds.PropertyList, len(keys))
	err := get(keys, out)
	if err == nil {
		for i := range out {
			if out[i] == nil {
				out[i] = ds.PropertyList{}
			}
		}
		return out, nil
	}

	var multi ds.MultiError
	if !stderrors.As(err, &multi) {
		return nil, err
	}
	for i, e := range multi {
		switch {
		case e == nil:
			if out[i] == nil {
				out[i] = ds.PropertyList{}
			}
		case stderrors.Is(e, ds.ErrNoSuchEntity):
			out[i] = nil
		default:
			return nil, err
		}
	}
	return out, nil
}

// Put implements Driver.
func (d *CloudDriver) Put(ctx context.Context, records []Record) error {
	keys, props := splitRecords(records)
	_, err := d.client.PutMulti(ctx, d.keys(keys), props)
	return err
}

// Insert implements Driver. Key collisions are normalized to
// errors.ErrAlreadyExists, regardless of how many of the batch conflicted.
func (d *CloudDriver) Insert(ctx context.Context, records []Record) error {
	_, err := d.client.Mutate(ctx, d.insertMutations(records)...)
	return d.normalizeInsertErr(err, records)
}

func (d *CloudDriver) insertMutations(records []Record) []*ds.Mutation {
	muts := make([]*ds.Mutation, len(records))
	for i, rec := range records {
		props := rec.Properties
		muts[i] = ds.NewInsert(d.key(rec.Key), &props)
	}
	return muts
}

func (d *CloudDriver) updateMutations(records []Record) []*ds.Mutation {
	muts := make([]*ds.Mutation, len(records))
	for i, rec := range records {
		props := rec.Properties
		muts[i] = ds.NewUpdate(d.key(rec.Key), &props)
	}
	return muts
}

// normalizeInsertErr maps ALREADY_EXISTS driver failures onto the
// library's error taxonomy, naming the first conflicting key.
func (d *CloudDriver) normalizeInsertErr(err error, records []Record) error {
	if err == nil {
		return nil
	}
	var multi ds.MultiError
	if stderrors.As(err, &multi) {
		for i, e := range multi {
			if e != nil && status.Code(e) == codes.AlreadyExists {
				return errors.NewAlreadyExistsError(records[i].Key.Kind, records[i].Key.Name)
			}
		}
		return err
	}
	if status.Code(err) == codes.AlreadyExists {
		kind, id := "", ""
		if len(records) > 0 {
			kind, id = records[0].Key.Kind, records[0].Key.Name
		}
		return errors.NewAlreadyExistsError(kind, id)
	}
	return err
}

// Update implements Driver.
func (d *CloudDriver) Update(ctx context.Context, records []Record) error {
	_, err := d.client.Mutate(ctx, d.updateMutations(records)...)
	return err
}

// Delete implements Driver.
func (d *CloudDriver) Delete(ctx context.Context, keys []*ds.Key) error {
	return d.client.DeleteMulti(ctx, d.keys(keys))
}

// buildQuery translates the declarative query into the driver's native
// query object: filters and projections first, then sort clauses, then
// the cursor/offset/limit window.
func (d *CloudDriver) buildQuery(q *Query) (*ds.Query, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	nq := ds.NewQuery(q.Kind)
	if d.namespace != "" {
		nq = nq.Namespace(d.namespace)
	}

	for _, f := range q.Filters {
		value := f.Value
		if f.Field == KeyField {
			id, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%s filter value must be a string id, got %T", KeyField, value)
			}
			value = d.key(ds.NameKey(q.Kind, id, nil))
		}
		nq = nq.FilterField(f.Field, f.Op, value)
	}

	if q.KeysOnly() {
		nq = nq.KeysOnly()
	} else if len(q.Projection) > 0 {
		nq = nq.Project(q.Projection...)
	}

	for _, o := range q.Orders {
		field := o.Field
		if o.Descending {
			field = "-" + field
		}
		nq = nq.Order(field)
	}

	if q.Offset > 0 {
		nq = nq.Offset(q.Offset)
	}
	if q.Limit > 0 {
		nq = nq.Limit(q.Limit)
	}
	if q.StartCursor != "" {
		c, err := ds.DecodeCursor(q.StartCursor)
		if err != nil {
			return nil, fmt.Errorf("invalid start cursor: %w", err)
		}
		nq = nq.Start(c)
	}
	if q.EndCursor != "" {
		c, err := ds.DecodeCursor(q.EndCursor)
		if err != nil {
			return nil, fmt.Errorf("invalid end cursor: %w", err)
		}
		nq = nq.End(c)
	}
	return nq, nil
}

// RunQuery implements Driver.
func (d *CloudDriver) RunQuery(ctx context.Context, q *Query) ([]Record, string, error) {
	nq, err := d.buildQuery(q)
	if err != nil {
		return nil, "", err
	}
	return d.iterate(ctx, nq, q.KeysOnly())
}

func (d *CloudDriver) iterate(ctx context.Context, nq *ds.Query, keysOnly bool) ([]Record, string, error) {
	it := d.client.Run(ctx, nq)
	var records []Record
	for {
		var props ds.PropertyList
		var dst any
		if !keysOnly {
			dst = &props
		}
		key, err := it.Next(dst)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", err
		}
		records = append(records, Record{Key: key, Properties: props})
	}
	cursor, err := it.Cursor()
	if err != nil {
		return nil, "", err
	}
	return records, cursor.String(), nil
}

// NewTransaction implements Driver.
func (d *CloudDriver) NewTransaction(ctx context.Context) (Transaction, error) {
	tx, err := d.client.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return &cloudTransaction{driver: d, ctx: ctx, tx: tx}, nil
}

// cloudTransaction adapts *datastore.Transaction. The cloud client defers
// all transactional writes to commit, so insert conflicts surface there.
type cloudTransaction struct {
	driver  *CloudDriver
	ctx     context.Context
	tx      *ds.Transaction
	inserts []Record
}

func (t *cloudTransaction) Get(keys []*ds.Key) ([]ds.PropertyList, error) {
	return cloudGet(t.driver.keys(keys), func(ks []*ds.Key, dst []ds.PropertyList) error {
		return t.tx.GetMulti(ks, dst)
	})
}

func (t *cloudTransaction) Put(records []Record) error {
	keys, props := splitRecords(records)
	_, err := t.tx.PutMulti(t.driver.keys(keys), props)
	return err
}

func (t *cloudTransaction) Insert(records []Record) error {
	_, err := t.tx.Mutate(t.driver.insertMutations(records)...)
	if err != nil {
		return t.driver.normalizeInsertErr(err, records)
	}
	t.inserts = append(t.inserts, records...)
	return nil
}

func (t *cloudTransaction) Update(records []Record) error {
	_, err := t.tx.Mutate(t.driver.updateMutations(records)...)
	return err
}

func (t *cloudTransaction) Delete(keys []*ds.Key) error {
	return t.tx.DeleteMulti(t.driver.keys(keys))
}

func (t *cloudTransaction) RunQuery(q *Query) ([]Record, string, error) {
	nq, err := t.driver.buildQuery(q)
	if err != nil {
		return nil, "", err
	}
	return t.driver.iterate(t.ctx, nq.Transaction(t.tx), q.KeysOnly())
}

func (t *cloudTransaction) Commit() error {
	_, err := t.tx.Commit()
	return t.driver.normalizeInsertErr(err, t.inserts)
}

func (t *cloudTransaction) Rollback() error {
	return t.tx.Rollback()
}
