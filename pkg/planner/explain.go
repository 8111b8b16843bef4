package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
	"github.com/kvplan/kvplan/pkg/store/cql"
)

// Explain describes the current plan without executing it. No diagnostics
// are raised.
func (p *Planner) Explain() (string, error) {
	plan, err := p.plan()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if plan.Empty {
		sb.WriteString("empty: true (no query is issued)\n")
	}

	sb.WriteString("pushdown:\n")
	for _, r := range plan.PushdownPredicates {
		fmt.Fprintf(&sb, "  %s\n", r)
	}
	sb.WriteString("fallback:\n")
	for _, f := range plan.FallbackPredicates {
		fmt.Fprintf(&sb, "  %s\n", f)
	}
	fmt.Fprintf(&sb, "pushdown order: %s\n", formatOrdering(plan.PushdownOrder))
	fmt.Fprintf(&sb, "fallback order: %s\n", formatOrdering(plan.FallbackOrder))

	switch {
	case plan.FullyPushdown():
		sb.WriteString("efficiency: store evaluates the whole query\n")
	case p.allowInefficient():
		sb.WriteString("efficiency: in memory evaluation allowed\n")
	default:
		sb.WriteString("efficiency: rejected, inefficient queries are not allowed\n")
	}

	if p.renderer != nil {
		if err := p.explainStatements(&sb, plan); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (p *Planner) explainStatements(sb *strings.Builder, plan *QueryPlan) error {
	sel, err := p.renderer.Select(p.rangeQuery(plan))
	if errors.Is(err, cql.ErrEmptyRange) {
		sb.WriteString("select: none\n")
		return nil
	}
	if err != nil {
		return &PlanningError{Err: err}
	}
	fmt.Fprintf(sb, "select: %s %v\n", sel.CQL, sel.Values)

	if _, ok := p.adapter.(store.RangeDeleter); !ok || !rangeDeletable(plan, p.adapter.Layout()) {
		sb.WriteString("delete: by primary key\n")
		return nil
	}
	del, err := p.renderer.Delete(plan.PushdownPredicates)
	if err != nil {
		return &PlanningError{Err: err}
	}
	fmt.Fprintf(sb, "delete: %s %v\n", del.CQL, del.Values)
	return nil
}

func formatOrdering(ordering []rows.SortSpec) string {
	if len(ordering) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ordering))
	for _, o := range ordering {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ", ")
}
