package planner

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
	"github.com/kvplan/kvplan/pkg/store/cql"
)

var tracer = otel.Tracer("pkg/planner")

// Planner plans and executes one logical query against one table. It is not
// safe for concurrent use; build a planner per query.
type Planner struct {
	cfg      Config
	adapter  store.Adapter
	logger   log.Logger
	sink     DiagnosticSink
	renderer *cql.Renderer

	established bool
	filters     []predicate.Node
	conditions  []predicate.Condition
	root        *predicate.CompoundPredicate
	ordering    []rows.SortSpec

	// cache holds the complete, filtered and sorted result once known.
	cache  []rows.Row
	cached bool
	// generation invalidates lazy streams started before the query changed.
	generation int

	warned      map[string]struct{}
	diagnostics []Diagnostic
}

type Option func(*Planner)

func WithLogger(logger log.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(p *Planner) {
		p.sink = sink
	}
}

// WithRenderer adds the CQL text of the physical query to Explain.
func WithRenderer(r *cql.Renderer) Option {
	return func(p *Planner) {
		p.renderer = r
	}
}

func New(cfg Config, adapter store.Adapter, opts ...Option) *Planner {
	if cfg.MaxResultCount <= 0 {
		cfg.MaxResultCount = DefaultMaxResultCount
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = DefaultDeleteConcurrency
	}

	p := &Planner{
		cfg:     cfg,
		adapter: adapter,
		logger:  log.NewNopLogger(),
		warned:  map[string]struct{}{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AddFilters adds a filter tree. Filters from repeated calls are joined with
// And. A nil tree matches every row. The tree is validated immediately and is
// never modified.
func (p *Planner) AddFilters(tree predicate.Node) error {
	filters := slices.Clone(p.filters)
	if tree != nil {
		filters = append(filters, tree)
	}

	normalized := predicate.Normalize(&predicate.Group{Connector: predicate.And, Children: filters})
	root, err := predicate.Build(normalized)
	if err != nil {
		return err
	}

	p.established = true
	p.filters = filters
	p.conditions = predicate.Leaves(normalized)
	p.root = root
	p.invalidate()

	level.Debug(p.logger).Log("msg", "filters added", "conditions", len(p.conditions), "root", root)
	return nil
}

// OrderBy sets the requested ordering, replacing any previous one.
func (p *Planner) OrderBy(ordering []rows.SortSpec) error {
	for _, o := range ordering {
		if o.Column == "" {
			return &PlanningError{Err: errors.New("ordering column must not be empty")}
		}
	}
	p.ordering = slices.Clone(ordering)
	p.invalidate()
	return nil
}

// Conditions returns every leaf condition added so far.
func (p *Planner) Conditions() []predicate.Condition {
	return slices.Clone(p.conditions)
}

// Diagnostics returns the diagnostics raised by this planner.
func (p *Planner) Diagnostics() []Diagnostic {
	return slices.Clone(p.diagnostics)
}

// Plan returns the plan for the current filters and ordering.
func (p *Planner) Plan() (*QueryPlan, error) {
	return p.plan()
}

func (p *Planner) plan() (*QueryPlan, error) {
	if !p.established {
		return nil, &PlanningError{Err: ErrNoFilters}
	}

	layout := p.adapter.Layout()
	pushdown, fallback, empty := classify(p.root, layout)
	if len(pushdown)+len(fallback) != len(p.root.Children) {
		return nil, &PlanningError{Err: fmt.Errorf("%w: %d pushdown and %d fallback for %d predicates",
			ErrInconsistentPlan, len(pushdown), len(fallback), len(p.root.Children))}
	}

	plan := &QueryPlan{
		PushdownPredicates: pushdown,
		FallbackPredicates: fallback,
		Empty:              empty,
		root:               p.root,
	}
	plan.PushdownOrder, plan.FallbackOrder = classifyOrder(p.ordering, pushdown, layout)
	return plan, nil
}

func (p *Planner) allowInefficient() bool {
	if op, ok := p.adapter.(store.OptionsProvider); ok {
		if allow := op.Options().AllowInefficientQueries; allow != nil {
			return *allow
		}
	}
	return p.cfg.AllowInefficientQueries
}

// gate rejects plans that need in memory work when that is not allowed and
// otherwise warns once per clause.
func (p *Planner) gate(plan *QueryPlan, includeOrdering bool) error {
	if plan.Empty {
		return nil
	}
	ordering := plan.FallbackOrder
	if !includeOrdering {
		ordering = nil
	}
	if len(plan.FallbackPredicates) == 0 && len(ordering) == 0 {
		return nil
	}

	if !p.allowInefficient() {
		return &InefficientQueryError{
			Predicates: slices.Clone(plan.FallbackPredicates),
			Ordering:   slices.Clone(ordering),
		}
	}

	for _, pred := range plan.FallbackPredicates {
		p.warn(fallbackPredicateDiagnostic(pred.String()))
	}
	for _, o := range ordering {
		p.warn(fallbackOrderingDiagnostic(o.String()))
	}
	return nil
}

// warn raises d unless a diagnostic for the same clause was already raised.
func (p *Planner) warn(d Diagnostic) {
	key := string(d.Kind) + "|" + d.Clause
	if _, ok := p.warned[key]; ok {
		return
	}
	p.warned[key] = struct{}{}
	p.diagnostics = append(p.diagnostics, d)

	if d.Kind != KindResultTruncated {
		metricInefficientClauses.WithLabelValues(string(d.Kind)).Inc()
	}
	level.Warn(p.logger).Log("msg", d.Message, "kind", d.Kind, "clause", d.Clause, "explain", d.Explain)
	if p.sink != nil {
		p.sink.Report(d)
	}
}

func (p *Planner) invalidate() {
	p.cache = nil
	p.cached = false
	p.generation++
}

func (p *Planner) setCache(rs []rows.Row) {
	if rs == nil {
		rs = []rows.Row{}
	}
	p.cache = rs
	p.cached = true
}
