package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
	"github.com/kvplan/kvplan/pkg/value"
)

const DefaultFetchSize = 5000

// ErrUnsupportedQuery is returned for queries the store cannot run natively.
var ErrUnsupportedQuery = errors.New("query not supported by the store")

// Store is an in memory table partitioned by the partition key and kept sorted
// by the clustering columns within each partition. It only accepts the
// queries a partitioned, clustered store can run natively.
type Store struct {
	table  *store.Table
	order  []rows.SortSpec
	logger log.Logger

	mtx        sync.RWMutex
	partitions map[uint64][]*partition
	count      int

	queries     atomic.Int64
	pages       atomic.Int64
	openCursors atomic.Int64
}

var (
	_ store.Adapter         = (*Store)(nil)
	_ store.RangeDeleter    = (*Store)(nil)
	_ store.OptionsProvider = (*Store)(nil)
)

type partition struct {
	token uint64
	key   []value.Value
	// rows is sorted by the clustering columns and replaced, never modified,
	// on write so open cursors keep a consistent view.
	rows []rows.Row
}

// Stats are counters used by tests and the CLI.
type Stats struct {
	Queries      int64
	PagesFetched int64
	OpenCursors  int64
}

func New(table *store.Table, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	order := make([]rows.SortSpec, 0, len(table.Layout.ClusteringColumns))
	for _, c := range table.Layout.ClusteringColumns {
		order = append(order, rows.SortSpec{Column: c})
	}
	return &Store{
		table:      table,
		order:      order,
		logger:     log.With(logger, "table", table.Name),
		partitions: map[uint64][]*partition{},
	}
}

func (s *Store) Table() *store.Table {
	return s.table
}

func (s *Store) Layout() predicate.Layout {
	return s.table.Layout
}

func (s *Store) Options() store.TableOptions {
	return s.table.Options
}

func (s *Store) Stats() Stats {
	return Stats{
		Queries:      s.queries.Load(),
		PagesFetched: s.pages.Load(),
		OpenCursors:  s.openCursors.Load(),
	}
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.count
}

// Insert upserts rows by primary key. Either every row is written or, when a
// row lacks a key column, none is.
func (s *Store) Insert(rs ...rows.Row) error {
	keys := make([][]value.Value, len(rs))
	for i, r := range rs {
		key, err := s.partitionKey(r)
		if err != nil {
			return errors.Wrapf(err, "inserting row %d", i)
		}
		if err := s.checkClustering(r); err != nil {
			return errors.Wrapf(err, "inserting row %d", i)
		}
		keys[i] = key
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	touched := map[*partition][]rows.Row{}
	var touchedOrder []*partition
	for i, r := range rs {
		p := s.lookup(keys[i], true)
		if _, ok := touched[p]; !ok {
			touchedOrder = append(touchedOrder, p)
		}
		touched[p] = append(touched[p], maps.Clone(r))
	}

	for _, p := range touchedOrder {
		merged := slices.Clone(p.rows)
		for _, r := range touched[p] {
			idx, found := slices.BinarySearchFunc(merged, r, s.compareClustering)
			if found {
				merged[idx] = r
				continue
			}
			merged = slices.Insert(merged, idx, r)
			s.count++
		}
		p.rows = merged
	}

	level.Debug(s.logger).Log("msg", "inserted rows", "rows", len(rs), "partitions", len(touchedOrder))
	return nil
}

func (s *Store) ExecuteRangeQuery(ctx context.Context, q store.RangeQuery) (rows.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sc, err := s.compile(q.Predicates, q.Order)
	if err != nil {
		return nil, err
	}
	s.queries.Inc()

	fetchSize := q.FetchSize
	if fetchSize <= 0 {
		fetchSize = s.table.Options.FetchSize
	}
	if fetchSize <= 0 {
		fetchSize = DefaultFetchSize
	}

	level.Debug(s.logger).Log("msg", "executing range query", "predicates", len(q.Predicates), "order", len(q.Order), "limit", q.Limit, "fetch_size", fetchSize)

	if sc.empty {
		return rows.NewSliceIterator(nil), nil
	}

	s.openCursors.Inc()
	return &cursor{
		store:     s,
		parts:     s.snapshot(sc.key),
		preds:     q.Predicates,
		reverse:   sc.reverse,
		limit:     q.Limit,
		fetchSize: fetchSize,
	}, nil
}

// DeleteByKey removes the row with the primary key found in key. Deleting a
// row that does not exist is not an error.
func (s *Store) DeleteByKey(ctx context.Context, key rows.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pk, err := s.partitionKey(key)
	if err != nil {
		return errors.Wrap(err, "delete by key")
	}
	if err := s.checkClustering(key); err != nil {
		return errors.Wrap(err, "delete by key")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	p := s.lookup(pk, false)
	if p == nil {
		return nil
	}
	idx, found := slices.BinarySearchFunc(p.rows, key, s.compareClustering)
	if !found {
		return nil
	}
	s.replaceRows(p, slices.Delete(slices.Clone(p.rows), idx, idx+1))
	return nil
}

// DeleteRange deletes every row of a single partition matching preds.
func (s *Store) DeleteRange(ctx context.Context, preds []*predicate.RangePredicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sc, err := s.compile(preds, nil)
	if err != nil {
		return 0, err
	}
	if sc.key == nil {
		return 0, errors.Wrap(ErrUnsupportedQuery, "range deletes require the partition key")
	}
	for _, p := range preds {
		if s.table.Layout.IsIndexed(p.Column) {
			return 0, errors.Wrapf(ErrUnsupportedQuery, "range deletes cannot restrict indexed column %s", p.Column)
		}
	}
	if sc.empty {
		return 0, nil
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	p := s.lookup(sc.key, false)
	if p == nil {
		return 0, nil
	}
	kept := make([]rows.Row, 0, len(p.rows))
	for _, r := range p.rows {
		if !matchesAll(r, preds) {
			kept = append(kept, r)
		}
	}
	deleted := len(p.rows) - len(kept)
	s.replaceRows(p, kept)

	level.Debug(s.logger).Log("msg", "deleted range", "rows", deleted)
	return deleted, nil
}

// replaceRows must be called with the write lock held.
func (s *Store) replaceRows(p *partition, rs []rows.Row) {
	s.count += len(rs) - len(p.rows)
	p.rows = rs
	if len(rs) > 0 {
		return
	}

	bucket := s.partitions[p.token]
	bucket = slices.DeleteFunc(slices.Clone(bucket), func(o *partition) bool { return o == p })
	if len(bucket) == 0 {
		delete(s.partitions, p.token)
		return
	}
	s.partitions[p.token] = bucket
}

func (s *Store) partitionKey(r rows.Row) ([]value.Value, error) {
	key := make([]value.Value, 0, len(s.table.Layout.PartitionColumns))
	for _, c := range s.table.Layout.PartitionColumns {
		v := r.Get(c)
		if v.IsNil() {
			return nil, errors.Errorf("missing partition column %s", c)
		}
		key = append(key, v)
	}
	return key, nil
}

func (s *Store) checkClustering(r rows.Row) error {
	for _, c := range s.table.Layout.ClusteringColumns {
		if r.Get(c).IsNil() {
			return errors.Errorf("missing clustering column %s", c)
		}
	}
	return nil
}

func (s *Store) compareClustering(a, b rows.Row) int {
	return rows.CompareRows(a, b, s.order)
}

// lookup must be called with the lock held, the write lock when create is set.
func (s *Store) lookup(key []value.Value, create bool) *partition {
	token := partitionToken(key)
	for _, p := range s.partitions[token] {
		if slices.EqualFunc(p.key, key, value.Value.Equals) {
			return p
		}
	}
	if !create {
		return nil
	}
	p := &partition{token: token, key: key}
	s.partitions[token] = append(s.partitions[token], p)
	return p
}

// snapshot returns the row slices to scan: one partition when key is set,
// otherwise every partition in token order.
func (s *Store) snapshot(key []value.Value) [][]rows.Row {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if key != nil {
		p := s.lookup(key, false)
		if p == nil {
			return nil
		}
		return [][]rows.Row{p.rows}
	}

	all := make([]*partition, 0, len(s.partitions))
	for _, bucket := range s.partitions {
		all = append(all, bucket...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].token != all[j].token {
			return all[i].token < all[j].token
		}
		return slices.CompareFunc(all[i].key, all[j].key, value.Compare) < 0
	})

	out := make([][]rows.Row, 0, len(all))
	for _, p := range all {
		out = append(out, p.rows)
	}
	return out
}

func matchesAll(r rows.Row, preds []*predicate.RangePredicate) bool {
	for _, p := range preds {
		if !p.RowMatches(r) {
			return false
		}
	}
	return true
}
