package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
)

var (
	ErrNoFilters        = errors.New("no filters have been added")
	ErrInconsistentPlan = errors.New("pushdown and fallback predicates do not cover the filter")
)

// UnsupportedOperatorError is returned by AddFilters for lookups that cannot
// be represented.
type UnsupportedOperatorError = predicate.UnsupportedOperatorError

// PlanningError is a caller or internal error detected before any physical
// query is issued.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return "query planning failed: " + e.Err.Error()
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

// InvalidRangeError is returned for a negative low mark or a high mark below
// the low mark.
type InvalidRangeError struct {
	Low, High int
}

func (e *InvalidRangeError) Error() string {
	if e.Low < 0 {
		return fmt.Sprintf("invalid result range: low mark %d is negative", e.Low)
	}
	return fmt.Sprintf("invalid result range: high mark %d is below low mark %d", e.High, e.Low)
}

// InefficientQueryError is returned when a query needs in memory filtering or
// sorting and inefficient queries are not allowed.
type InefficientQueryError struct {
	Predicates []predicate.Predicate
	Ordering   []rows.SortSpec
}

func (e *InefficientQueryError) Error() string {
	var clauses []string
	for _, p := range e.Predicates {
		clauses = append(clauses, "filter "+p.String())
	}
	for _, o := range e.Ordering {
		clauses = append(clauses, "ordering "+o.String())
	}
	return fmt.Sprintf("query cannot be evaluated efficiently by the store and inefficient queries are not allowed (%s). "+
		"Restrict every partition column with an exact match, restrict clustering columns in declared order, "+
		"add a secondary index, or allow inefficient queries for this table", strings.Join(clauses, "; "))
}

// DeleteError reports a delete that failed part way through.
type DeleteError struct {
	Deleted int
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete failed after deleting %d rows: %v", e.Deleted, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
