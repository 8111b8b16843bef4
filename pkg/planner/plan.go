package planner

import (
	"slices"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
)

// QueryPlan splits a query into what the store evaluates and what is
// evaluated in memory. A plan is built per call and never reused.
type QueryPlan struct {
	PushdownPredicates []*predicate.RangePredicate
	FallbackPredicates []predicate.Predicate
	PushdownOrder      []rows.SortSpec
	FallbackOrder      []rows.SortSpec
	Limit              *int
	Offset             *int
	// Empty is set when a conjunct can never match, so no query is needed.
	Empty bool

	root *predicate.CompoundPredicate
}

// FullyPushdown reports whether the store evaluates the whole query.
func (p *QueryPlan) FullyPushdown() bool {
	return len(p.FallbackPredicates) == 0 && len(p.FallbackOrder) == 0
}

// Ordering is the complete requested ordering, pushdown prefix first.
func (p *QueryPlan) Ordering() []rows.SortSpec {
	return slices.Concat(p.PushdownOrder, p.FallbackOrder)
}

// MatchesFallback applies the fallback predicates with the root connector.
func (p *QueryPlan) MatchesFallback(row rows.Row) bool {
	if len(p.FallbackPredicates) == 0 {
		return true
	}
	return p.root.RowMatchesSubset(row, p.FallbackPredicates)
}

// classify partitions the top level children of root. Only an unnegated And
// root, or a root with one child, yields pushdown candidates:
//
//   - partition columns: all exact, else none is pushed
//   - clustering columns, given the partition columns: a contiguous prefix
//     of exact predicates optionally ending in one range
//   - indexed columns outside the primary key: exact only
//
// Every other child falls back.
func classify(root *predicate.CompoundPredicate, layout predicate.Layout) (pushdown []*predicate.RangePredicate, fallback []predicate.Predicate, empty bool) {
	conjunctive := !root.Negated && (root.Connector == predicate.And || len(root.Children) == 1)
	if !conjunctive {
		return nil, slices.Clone(root.Children), false
	}

	candidates := map[string]*predicate.RangePredicate{}
	for _, child := range root.Children {
		r, ok := child.(*predicate.RangePredicate)
		if !ok {
			continue
		}
		if r.IsEmpty() {
			empty = true
		}
		if _, dup := candidates[r.Column]; !dup {
			candidates[r.Column] = r
		}
	}

	pushed := map[*predicate.RangePredicate]struct{}{}
	push := func(r *predicate.RangePredicate) {
		pushdown = append(pushdown, r)
		pushed[r] = struct{}{}
	}

	partitionBound := len(layout.PartitionColumns) > 0
	for _, c := range layout.PartitionColumns {
		if r := candidates[c]; r == nil || !r.IsExact() {
			partitionBound = false
			break
		}
	}
	if partitionBound {
		for _, c := range layout.PartitionColumns {
			push(candidates[c])
		}
		for _, c := range layout.ClusteringColumns {
			r := candidates[c]
			if r == nil {
				break
			}
			push(r)
			if !r.IsExact() {
				break
			}
		}
	}

	for _, c := range layout.IndexedColumns {
		if layout.IsPartition(c) || layout.ClusteringPosition(c) >= 0 {
			continue
		}
		if r := candidates[c]; r != nil && r.IsExact() {
			push(r)
		}
	}

	for _, child := range root.Children {
		if r, ok := child.(*predicate.RangePredicate); ok {
			if _, ok := pushed[r]; ok {
				continue
			}
		}
		fallback = append(fallback, child)
	}
	return pushdown, fallback, empty
}

// classifyOrder pushes the longest prefix of ordering that follows the
// clustering columns from the first one, in one direction, within a partition
// bound by pushdown. Everything after the first miss falls back.
func classifyOrder(ordering []rows.SortSpec, pushdown []*predicate.RangePredicate, layout predicate.Layout) (push, fallback []rows.SortSpec) {
	if !partitionBound(pushdown, layout) {
		return nil, slices.Clone(ordering)
	}

	for i, o := range ordering {
		if i >= len(layout.ClusteringColumns) || layout.ClusteringColumns[i] != o.Column || o.Descending != ordering[0].Descending {
			return push, slices.Clone(ordering[i:])
		}
		push = append(push, o)
	}
	return push, nil
}

func partitionBound(pushdown []*predicate.RangePredicate, layout predicate.Layout) bool {
	if len(layout.PartitionColumns) == 0 {
		return false
	}
	for _, c := range layout.PartitionColumns {
		if !slices.ContainsFunc(pushdown, func(r *predicate.RangePredicate) bool {
			return r.Column == c && r.IsExact()
		}) {
			return false
		}
	}
	return true
}
