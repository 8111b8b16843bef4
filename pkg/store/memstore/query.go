package memstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/value"
)

type scan struct {
	// key is the partition to read, nil for every partition
	key     []value.Value
	reverse bool
	empty   bool
}

// compile checks a physical query against the native capability of the
// table: exact partition keys (all or none), a contiguous clustering prefix
// with at most one trailing range, equality on indexed columns, and ordering
// along the clustering columns in a single direction.
func (s *Store) compile(preds []*predicate.RangePredicate, order []rows.SortSpec) (scan, error) {
	var (
		layout     = s.table.Layout
		sc         scan
		seen       = map[string]struct{}{}
		partKey    = map[string]value.Value{}
		clustering = map[int]*predicate.RangePredicate{}
	)

	for _, p := range preds {
		if _, ok := seen[p.Column]; ok {
			return sc, errors.Wrapf(ErrUnsupportedQuery, "column %s is restricted more than once", p.Column)
		}
		seen[p.Column] = struct{}{}
		if p.IsEmpty() {
			sc.empty = true
		}

		switch {
		case layout.IsPartition(p.Column):
			if !p.IsExact() {
				return sc, errors.Wrapf(ErrUnsupportedQuery, "partition column %s only supports equality", p.Column)
			}
			partKey[p.Column] = *p.Start
		case layout.ClusteringPosition(p.Column) >= 0:
			clustering[layout.ClusteringPosition(p.Column)] = p
		case layout.IsIndexed(p.Column):
			if !p.IsExact() {
				return sc, errors.Wrapf(ErrUnsupportedQuery, "indexed column %s only supports equality", p.Column)
			}
		default:
			return sc, errors.Wrapf(ErrUnsupportedQuery, "column %s is neither part of the primary key nor indexed", p.Column)
		}
	}

	bound := len(partKey) == len(layout.PartitionColumns)
	if len(partKey) > 0 && !bound {
		return sc, errors.Wrap(ErrUnsupportedQuery, "every partition column must be restricted")
	}
	if bound {
		for _, c := range layout.PartitionColumns {
			sc.key = append(sc.key, partKey[c])
		}
	}

	if len(clustering) > 0 && !bound {
		return sc, errors.Wrap(ErrUnsupportedQuery, "clustering column restrictions require the partition key")
	}
	for i := 0; i < len(clustering); i++ {
		p, ok := clustering[i]
		if !ok {
			return sc, errors.Wrapf(ErrUnsupportedQuery, "clustering column %s must be restricted before later clustering columns", layout.ClusteringColumns[i])
		}
		if !p.IsExact() && i != len(clustering)-1 {
			return sc, errors.Wrapf(ErrUnsupportedQuery, "only the last restricted clustering column may use a range, got %s", p)
		}
	}

	if len(order) > 0 && !bound {
		return sc, errors.Wrap(ErrUnsupportedQuery, "ordering requires the partition key")
	}
	for i, o := range order {
		if i >= len(layout.ClusteringColumns) || layout.ClusteringColumns[i] != o.Column {
			return sc, errors.Wrapf(ErrUnsupportedQuery, "ordering by %s does not follow the clustering columns", o.Column)
		}
		if o.Descending != order[0].Descending {
			return sc, errors.Wrap(ErrUnsupportedQuery, "ordering directions must all match or all be reversed")
		}
	}
	if len(order) > 0 {
		sc.reverse = order[0].Descending
	}

	return sc, nil
}

// cursor pages through a snapshot of partitions, fetchSize matching rows at a
// time.
type cursor struct {
	store     *Store
	parts     [][]rows.Row
	preds     []*predicate.RangePredicate
	reverse   bool
	limit     int
	fetchSize int

	part, idx int
	page      []rows.Row
	returned  int
	closed    bool
}

var _ rows.Iterator = (*cursor)(nil)

func (c *cursor) Next(ctx context.Context) (rows.Row, error) {
	if c.closed {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.limit > 0 && c.returned >= c.limit {
		c.Close()
		return nil, nil
	}

	if len(c.page) == 0 {
		c.fetchPage()
		if len(c.page) == 0 {
			c.Close()
			return nil, nil
		}
	}

	r := c.page[0]
	c.page = c.page[1:]
	c.returned++
	return r.Clone(), nil
}

func (c *cursor) fetchPage() {
	c.page = nil
	for len(c.page) < c.fetchSize && c.part < len(c.parts) {
		rs := c.parts[c.part]
		if c.idx >= len(rs) {
			c.part++
			c.idx = 0
			continue
		}

		i := c.idx
		if c.reverse {
			i = len(rs) - 1 - c.idx
		}
		c.idx++

		if matchesAll(rs[i], c.preds) {
			c.page = append(c.page, rs[i])
		}
	}
	if len(c.page) > 0 {
		c.store.pages.Inc()
	}
}

func (c *cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.page = nil
	c.parts = nil
	c.store.openCursors.Dec()
}
