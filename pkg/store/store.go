package store

import (
	"context"
	"fmt"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
)

// RangeQuery is the physical query the planner hands to the store. Predicates
// only ever contains exact partition predicates, a contiguous clustering
// prefix ending in at most one range, and exact indexed predicates.
type RangeQuery struct {
	Predicates []*predicate.RangePredicate
	Order      []rows.SortSpec
	// Limit of 0 means no limit.
	Limit int
	// FetchSize is the page size used while streaming, 0 for the store default.
	FetchSize int
}

// Adapter executes physical queries against one table.
type Adapter interface {
	// ExecuteRangeQuery returns a lazy stream of matching rows. Closing the
	// iterator releases any open paging cursor.
	ExecuteRangeQuery(ctx context.Context, q RangeQuery) (rows.Iterator, error)
	// DeleteByKey deletes the row identified by the primary key columns in key.
	DeleteByKey(ctx context.Context, key rows.Row) error
	Layout() predicate.Layout
}

// RangeDeleter is implemented by adapters that can delete every row matching
// a physical range query in one statement.
type RangeDeleter interface {
	DeleteRange(ctx context.Context, preds []*predicate.RangePredicate) (int, error)
}

// OptionsProvider is implemented by adapters carrying per table overrides.
type OptionsProvider interface {
	Options() TableOptions
}

type TableOptions struct {
	// AllowInefficientQueries overrides the planner setting when set.
	AllowInefficientQueries *bool `yaml:"allow_inefficient_queries"`
	FetchSize               int   `yaml:"fetch_size"`
}

// StoreError wraps a failure of the physical store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
