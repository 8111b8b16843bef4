package planner

import (
	"context"

	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
)

// Fetch returns rows [lowMark, highMark) of the ordered result. highMark may
// be rows.Unbounded. The caller must close the returned iterator. Returned
// rows are copies and may be modified freely.
//
// A query the store evaluates entirely is streamed, with highMark pushed down
// as a physical limit. Otherwise every matching row, up to MaxResultCount, is
// read before fallback filtering, sorting and slicing are applied.
func (p *Planner) Fetch(ctx context.Context, lowMark, highMark int) (rows.Iterator, error) {
	if lowMark < 0 || (highMark != rows.Unbounded && highMark < lowMark) {
		return nil, &InvalidRangeError{Low: lowMark, High: highMark}
	}

	plan, err := p.plan()
	if err != nil {
		return nil, err
	}
	if lowMark > 0 {
		plan.Offset = &lowMark
	}
	limit := rows.Unbounded
	if highMark != rows.Unbounded {
		limit = highMark - lowMark
		plan.Limit = &limit
	}

	if err := p.gate(plan, true); err != nil {
		return nil, err
	}

	switch {
	case p.cached:
		metricQueries.WithLabelValues(pathCache).Inc()
		return rows.NewCloneIterator(rows.NewWindowIterator(rows.NewSliceIterator(p.cache), lowMark, limit)), nil
	case plan.Empty || limit == 0:
		metricQueries.WithLabelValues(pathEmpty).Inc()
		return rows.NewSliceIterator(nil), nil
	case plan.FullyPushdown():
		metricQueries.WithLabelValues(pathPushdown).Inc()
		it, err := p.stream(ctx, plan, lowMark, highMark)
		if err != nil {
			return nil, err
		}
		return rows.NewCloneIterator(it), nil
	}

	metricQueries.WithLabelValues(pathFallback).Inc()
	res, _, err := p.materialize(ctx, plan, true)
	if err != nil {
		return nil, err
	}
	return rows.NewCloneIterator(rows.NewWindowIterator(rows.NewSliceIterator(res), lowMark, limit)), nil
}

// Count returns the number of matching rows. Ordering does not affect the
// count and is not checked for efficiency.
func (p *Planner) Count(ctx context.Context) (int, error) {
	plan, err := p.plan()
	if err != nil {
		return 0, err
	}
	if err := p.gate(plan, false); err != nil {
		return 0, err
	}

	switch {
	case p.cached:
		metricQueries.WithLabelValues(pathCache).Inc()
		return len(p.cache), nil
	case plan.Empty:
		metricQueries.WithLabelValues(pathEmpty).Inc()
		return 0, nil
	case len(plan.FallbackPredicates) == 0:
		metricQueries.WithLabelValues(pathPushdown).Inc()
	default:
		metricQueries.WithLabelValues(pathFallback).Inc()
	}

	_, total, err := p.materialize(ctx, plan, false)
	return total, err
}

// stream runs a fully pushed down query lazily. A stream drained without a
// physical limit completes the result cache.
func (p *Planner) stream(ctx context.Context, plan *QueryPlan, lowMark, highMark int) (rows.Iterator, error) {
	q := p.rangeQuery(plan)
	if highMark != rows.Unbounded {
		q.Limit = highMark
	}

	it, err := p.execute(ctx, q)
	if err != nil {
		return nil, err
	}

	if q.Limit == 0 {
		var (
			generation = p.generation
			buf        []rows.Row
			overflow   bool
		)
		it = rows.NewTeeIterator(it, func(r rows.Row) {
			switch {
			case overflow:
			case len(buf) >= p.cfg.MaxResultCount:
				overflow = true
				buf = nil
			default:
				buf = append(buf, r)
			}
		}, func() {
			if !overflow && generation == p.generation {
				p.setCache(buf)
			}
		})
	}

	limit := rows.Unbounded
	if highMark != rows.Unbounded {
		limit = highMark - lowMark
	}
	return rows.NewWindowIterator(it, lowMark, limit), nil
}

// materialize reads every row matching the plan. With stopAtLimit set at most
// MaxResultCount matches are kept and truncation is reported. Without fallback
// ordering the scan stops at the ceiling; with it the best rows in result
// order are kept while the scan runs to the end. Without stopAtLimit it keeps
// counting past the ceiling but stops buffering. A complete result is cached.
func (p *Planner) materialize(ctx context.Context, plan *QueryPlan, stopAtLimit bool) ([]rows.Row, int, error) {
	it, err := p.execute(ctx, p.rangeQuery(plan))
	if err != nil {
		return nil, 0, err
	}
	defer it.Close()

	var (
		ceiling   = p.cfg.MaxResultCount
		ordering  = plan.Ordering()
		topN      = stopAtLimit && len(plan.FallbackOrder) > 0
		out       []rows.Row
		total     int
		scanned   int
		overflow  bool
		truncated bool
	)
scan:
	for {
		r, err := it.Next(ctx)
		if err != nil {
			return nil, 0, &store.StoreError{Op: "range query", Err: err}
		}
		if r == nil {
			break
		}
		scanned++
		if !plan.MatchesFallback(r) {
			continue
		}
		total++

		switch {
		case overflow:
		case len(out) < ceiling:
			out = append(out, r)
		case topN:
			truncated = true
			out = append(out, r)
			if len(out) >= 2*ceiling {
				// stable, so earlier rows win ties as they would in a full sort
				rows.SortRows(out, ordering)
				clear(out[ceiling:])
				out = out[:ceiling]
			}
		case stopAtLimit:
			truncated = true
			break scan
		default:
			overflow = true
			out = nil
		}
	}

	if len(plan.FallbackPredicates) > 0 {
		metricFallbackRowsScanned.Add(float64(scanned))
	}
	level.Debug(p.logger).Log("msg", "materialized fallback query", "scanned", scanned, "matched", total, "truncated", truncated)

	if overflow {
		return nil, total, nil
	}
	if len(plan.FallbackOrder) > 0 {
		rows.SortRows(out, ordering)
	}
	if truncated {
		out = out[:min(len(out), ceiling)]
		p.warn(truncatedDiagnostic(ceiling))
		return out, len(out), nil
	}
	p.setCache(out)
	return out, total, nil
}

func (p *Planner) rangeQuery(plan *QueryPlan) store.RangeQuery {
	return store.RangeQuery{
		Predicates: plan.PushdownPredicates,
		Order:      plan.PushdownOrder,
		FetchSize:  p.fetchSize(),
	}
}

func (p *Planner) fetchSize() int {
	if op, ok := p.adapter.(store.OptionsProvider); ok && op.Options().FetchSize > 0 {
		return op.Options().FetchSize
	}
	return p.cfg.FetchSize
}

func (p *Planner) execute(ctx context.Context, q store.RangeQuery) (rows.Iterator, error) {
	ctx, span := tracer.Start(ctx, "Planner.execute", trace.WithAttributes(
		attribute.Int("predicates", len(q.Predicates)),
		attribute.Int("order", len(q.Order)),
		attribute.Int("limit", q.Limit),
	))
	defer span.End()

	it, err := p.adapter.ExecuteRangeQuery(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &store.StoreError{Op: "range query", Err: err}
	}
	return it, nil
}
