package planner

import (
	"context"
	"sync"

	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
)

// rangeDeletable reports whether the plan selects rows of one partition by
// primary key columns alone.
func rangeDeletable(plan *QueryPlan, layout predicate.Layout) bool {
	if len(plan.FallbackPredicates) > 0 || !partitionBound(plan.PushdownPredicates, layout) {
		return false
	}
	for _, r := range plan.PushdownPredicates {
		if !layout.IsPartition(r.Column) && layout.ClusteringPosition(r.Column) < 0 {
			return false
		}
	}
	return true
}

// Delete removes every matching row and returns the number deleted.
//
// When every filter is a primary key restriction within one partition, a store
// that supports range deletes removes the rows in one request. Otherwise the
// matching rows are read and deleted one primary key at a time. Ordering is
// ignored.
func (p *Planner) Delete(ctx context.Context) (deleted int, err error) {
	plan, err := p.plan()
	if err != nil {
		return 0, err
	}
	if err := p.gate(plan, false); err != nil {
		return 0, err
	}
	if plan.Empty {
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "Planner.Delete", trace.WithAttributes(
		attribute.Int("pushdown", len(plan.PushdownPredicates)),
		attribute.Int("fallback", len(plan.FallbackPredicates)),
	))
	defer func() {
		span.SetAttributes(attribute.Int("deleted", deleted))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer p.invalidate()

	layout := p.adapter.Layout()
	if rd, ok := p.adapter.(store.RangeDeleter); ok && rangeDeletable(plan, layout) {
		n, err := rd.DeleteRange(ctx, plan.PushdownPredicates)
		if err != nil {
			return 0, &store.StoreError{Op: "range delete", Err: err}
		}
		metricRowsDeleted.WithLabelValues(deletePathRange).Add(float64(n))
		level.Debug(p.logger).Log("msg", "deleted by range", "rows", n)
		return n, nil
	}

	var it rows.Iterator
	if p.cached {
		it = rows.NewSliceIterator(p.cache)
	} else {
		it, err = p.execute(ctx, p.rangeQuery(plan))
		if err != nil {
			return 0, err
		}
		it = rows.NewFilterIterator(it, plan.MatchesFallback)
	}
	defer it.Close()

	var (
		keyColumns = layout.KeyColumns()
		count      = atomic.NewInt64(0)
		errMtx     sync.Mutex
		errs       error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.DeleteConcurrency)

	var readErr error
	for gctx.Err() == nil {
		r, err := it.Next(gctx)
		if err != nil {
			readErr = &store.StoreError{Op: "range query", Err: err}
			break
		}
		if r == nil {
			break
		}

		key := r.Project(keyColumns)
		g.Go(func() error {
			if err := p.adapter.DeleteByKey(gctx, key); err != nil {
				errMtx.Lock()
				errs = multierr.Append(errs, &store.StoreError{Op: "delete", Err: err})
				errMtx.Unlock()
				return err
			}
			count.Inc()
			return nil
		})
	}
	_ = g.Wait()

	// a read that failed only because a delete already failed adds nothing
	if errs == nil && readErr != nil {
		errs = readErr
	}

	deleted = int(count.Load())
	metricRowsDeleted.WithLabelValues(deletePathKey).Add(float64(deleted))
	if errs != nil {
		level.Error(p.logger).Log("msg", "delete failed", "deleted", deleted, "err", errs)
		return deleted, &DeleteError{Deleted: deleted, Err: errs}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return deleted, &DeleteError{Deleted: deleted, Err: ctxErr}
	}
	level.Debug(p.logger).Log("msg", "deleted by key", "rows", deleted)
	return deleted, nil
}
