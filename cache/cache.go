/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

var (
	_ datastore.DataStore      = (*DataStore)(nil)
	_ datastore.ChangeListener = (*DataStore)(nil)
)

// result is the cached form of a read. gen is the generation of its
// relations when the fetch started.
type result struct {
	columns []string
	rows    []storagemodels.Row
	gen     uint64
}

// DataStore is a read-through cache in front of another DataStore. Reads are
// keyed by a hash of the query and tracked per relation; writes through the
// cache and change notifications drop every key of the touched relations.
type DataStore struct {
	inner  datastore.DataStore
	client *sturdyc.Client[result]
	keys   *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
	gens   *xsync.MapOf[string, *atomic.Uint64]
	logger *slog.Logger
}

// Option configures a DataStore.
type Option func(*DataStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DataStore) {
		d.logger = logger
	}
}

// New wraps inner with a cache built from cfg.
func New(inner datastore.DataStore, cfg Config, opts ...Option) (*DataStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigurationError("new cache", "", err)
	}

	d := &DataStore{
		inner:  inner,
		client: sturdyc.New[result](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, cfg.sturdycOptions()...),
		keys:   xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
		gens:   xsync.NewMapOf[string, *atomic.Uint64](),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// Inner returns the wrapped DataStore.
func (d *DataStore) Inner() datastore.DataStore { return d.inner }

// Size returns the number of cached result sets.
func (d *DataStore) Size() int { return d.client.Size() }

func (d *DataStore) Query(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error) {
	return d.read(ctx, queryKey(q), []string{q.Relation}, func(ctx context.Context) (storagemodels.Cursor, error) {
		return d.inner.Query(ctx, q)
	})
}

// RawQuery is cached only when the query names the relations it observes;
// otherwise nothing could invalidate it.
func (d *DataStore) RawQuery(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error) {
	relations := q.ObservedRelations()
	if len(relations) == 0 {
		return d.inner.RawQuery(ctx, q)
	}

	return d.read(ctx, rawKey(q), relations, func(ctx context.Context) (storagemodels.Cursor, error) {
		return d.inner.RawQuery(ctx, q)
	})
}

// read serves key from the cache, fetching on a miss. A result whose fetch
// started before an invalidation of its relations is dropped and the read
// goes to the inner store, so a write is never hidden by a fetch that was
// already in flight.
func (d *DataStore) read(ctx context.Context, key string, relations []string, fetch func(context.Context) (storagemodels.Cursor, error)) (storagemodels.Cursor, error) {
	res, err := d.client.GetOrFetch(ctx, key, func(ctx context.Context) (result, error) {
		gen := d.generation(relations)
		cur, err := fetch(ctx)
		if err != nil {
			return result{}, err
		}
		r, err := materialize(cur)
		r.gen = gen
		return r, err
	})
	if err != nil {
		return nil, err
	}

	if res.gen != d.generation(relations) {
		d.client.Delete(key)
		d.logger.Debug("cache entry outdated by a concurrent write",
			slog.String("key", key),
			slog.Any("relations", relations))
		return fetch(ctx)
	}
	d.track(key, relations...)
	return res.cursor(), nil
}

func (d *DataStore) Insert(ctx context.Context, q storagemodels.InsertQuery, row storagemodels.Row) (storagemodels.InsertResult, error) {
	res, err := d.inner.Insert(ctx, q, row)
	if err == nil {
		d.Invalidate(q.Relation)
	}
	return res, err
}

func (d *DataStore) Update(ctx context.Context, q storagemodels.UpdateQuery, row storagemodels.Row) (int64, error) {
	n, err := d.inner.Update(ctx, q, row)
	if err == nil && n > 0 {
		d.Invalidate(q.Relation)
	}
	return n, err
}

func (d *DataStore) Delete(ctx context.Context, q storagemodels.DeleteQuery) (int64, error) {
	n, err := d.inner.Delete(ctx, q)
	if err == nil && n > 0 {
		d.Invalidate(q.Relation)
	}
	return n, err
}

// Exec drops the keys of q.AffectsRelations, or the whole cache when the
// statement does not name them.
func (d *DataStore) Exec(ctx context.Context, q storagemodels.RawQuery) (int64, error) {
	n, err := d.inner.Exec(ctx, q)
	if err != nil {
		return n, err
	}
	if relations := storagemodels.NormalizeRelations(q.AffectsRelations); len(relations) > 0 {
		d.Invalidate(relations...)
	} else {
		d.InvalidateAll()
	}
	return n, nil
}

// OnChanges invalidates the relations of changes made elsewhere.
func (d *DataStore) OnChanges(changes storagemodels.Changes) {
	d.Invalidate(changes.Relations...)
	if l, ok := d.inner.(datastore.ChangeListener); ok {
		l.OnChanges(changes)
	}
}

// Invalidate drops every cached read of relations.
func (d *DataStore) Invalidate(relations ...string) {
	dropped := 0
	for _, rel := range relations {
		d.bump(rel)
		set, ok := d.keys.LoadAndDelete(rel)
		if !ok {
			continue
		}
		set.Range(func(key string, _ struct{}) bool {
			d.client.Delete(key)
			dropped++
			return true
		})
	}
	if dropped > 0 {
		d.logger.Debug("cache invalidated",
			slog.Any("relations", relations),
			slog.Int("keys", dropped))
	}
}

// InvalidateAll drops every cached read.
func (d *DataStore) InvalidateAll() {
	var relations []string
	d.gens.Range(func(rel string, _ *atomic.Uint64) bool {
		relations = append(relations, rel)
		return true
	})
	d.Invalidate(relations...)
}

func (d *DataStore) track(key string, relations ...string) {
	for _, rel := range relations {
		d.counter(rel)
		set, _ := d.keys.LoadOrCompute(rel, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		set.Store(key, struct{}{})
	}
}

// generation sums the counters of relations. Counters only grow, so any
// invalidation of one of them changes the sum.
func (d *DataStore) generation(relations []string) uint64 {
	var gen uint64
	for _, rel := range relations {
		if c, ok := d.gens.Load(rel); ok {
			gen += c.Load()
		}
	}
	return gen
}

func (d *DataStore) bump(rel string) {
	d.counter(rel).Add(1)
}

func (d *DataStore) counter(rel string) *atomic.Uint64 {
	c, _ := d.gens.LoadOrCompute(rel, func() *atomic.Uint64 {
		return new(atomic.Uint64)
	})
	return c
}

func materialize(cur storagemodels.Cursor) (result, error) {
	rows, err := storagemodels.CollectRows(cur)
	if err != nil {
		return result{}, err
	}
	return result{columns: cur.Columns(), rows: rows}, nil
}

// cursor returns a fresh cursor over copies of the cached rows.
func (r result) cursor() storagemodels.Cursor {
	rows := make([]storagemodels.Row, len(r.rows))
	for i, row := range r.rows {
		rows[i] = row.Clone()
	}
	return storagemodels.NewRowsCursor(r.columns, rows)
}

func queryKey(q storagemodels.Query) string {
	h := xxhash.New()
	fmt.Fprintf(h, "query\x00%s\x00%t\x00%q\x00%s\x00%#v\x00%s\x00%s\x00%s\x00%d\x00%d",
		q.Relation, q.Distinct, q.Columns, q.Where, q.WhereArgs, q.GroupBy, q.Having, q.OrderBy, q.Limit, q.Offset)
	return "q:" + strconv.FormatUint(h.Sum64(), 16)
}

func rawKey(q storagemodels.RawQuery) string {
	h := xxhash.New()
	fmt.Fprintf(h, "raw\x00%s\x00%#v", q.Statement, q.Args)
	return "r:" + strconv.FormatUint(h.Sum64(), 16)
}
