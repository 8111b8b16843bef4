package predicate

import (
	"fmt"

	"github.com/kvplan/kvplan/pkg/rows"
)

// Predicate is a node of a built filter. The set of implementations is closed:
// *RangePredicate, *OperationPredicate and *CompoundPredicate.
type Predicate interface {
	fmt.Stringer

	// CanEvaluateEfficiently reports whether the store can evaluate the
	// predicate natively given the table layout.
	CanEvaluateEfficiently(layout Layout) bool
	// RowMatches evaluates the predicate against a materialized row.
	RowMatches(row rows.Row) bool

	isPredicate()
}

var (
	_ Predicate = (*RangePredicate)(nil)
	_ Predicate = (*OperationPredicate)(nil)
	_ Predicate = (*CompoundPredicate)(nil)
)

// Column returns the column a leaf predicate is bound to, or "" for compounds.
func Column(p Predicate) string {
	switch t := p.(type) {
	case *RangePredicate:
		return t.Column
	case *OperationPredicate:
		return t.Column
	case *CompoundPredicate:
		return ""
	}
	panic(fmt.Sprintf("unexpected predicate type %T", p))
}

// Walk calls fn for p and every descendant in depth first order. Returning
// false from fn skips the children of the current node.
func Walk(p Predicate, fn func(Predicate) bool) {
	switch t := p.(type) {
	case *RangePredicate, *OperationPredicate:
		fn(t)
	case *CompoundPredicate:
		if !fn(t) {
			return
		}
		for _, c := range t.Children {
			Walk(c, fn)
		}
	default:
		panic(fmt.Sprintf("unexpected predicate type %T", p))
	}
}
