package planner

import (
	"strconv"
	"sync"
)

type DiagnosticKind string

const (
	KindFallbackPredicate DiagnosticKind = "fallback-predicate"
	KindFallbackOrdering  DiagnosticKind = "fallback-ordering"
	KindResultTruncated   DiagnosticKind = "result-truncated"
)

// Diagnostic is a non fatal notice about how a query was executed.
type Diagnostic struct {
	Kind    DiagnosticKind
	Clause  string
	Message string
	Explain string
}

// DiagnosticSink receives diagnostics as they are raised.
type DiagnosticSink interface {
	Report(Diagnostic)
}

type DiagnosticSinkFunc func(Diagnostic)

func (f DiagnosticSinkFunc) Report(d Diagnostic) {
	f(d)
}

// DiagnosticCollector is a DiagnosticSink that keeps every diagnostic. It may
// be shared by planners on different goroutines.
type DiagnosticCollector struct {
	mtx         sync.Mutex
	diagnostics []Diagnostic
}

func (c *DiagnosticCollector) Report(d Diagnostic) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.diagnostics = append(c.diagnostics, d)
}

func (c *DiagnosticCollector) Diagnostics() []Diagnostic {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

func fallbackPredicateDiagnostic(clause string) Diagnostic {
	return Diagnostic{
		Kind:    KindFallbackPredicate,
		Clause:  clause,
		Message: "filter is evaluated in memory after scanning rows from the store",
		Explain: "Restrict every partition column with an exact match and filter clustering columns in declared order, or add a secondary index on the column.",
	}
}

func fallbackOrderingDiagnostic(clause string) Diagnostic {
	return Diagnostic{
		Kind:    KindFallbackOrdering,
		Clause:  clause,
		Message: "ordering is applied in memory after fetching every matching row",
		Explain: "The store can only order by clustering columns in declared order, in one direction, within a single partition.",
	}
}

func truncatedDiagnostic(limit int) Diagnostic {
	return Diagnostic{
		Kind:    KindResultTruncated,
		Message: "result set was truncated at the maximum result count",
		Explain: "Narrow the filter or raise max_result_count; rows beyond the first " + strconv.Itoa(limit) + " matches in result order were not returned.",
	}
}
