package predicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/value"
)

var testLayout = Layout{
	PartitionColumns:  []string{"p"},
	ClusteringColumns: []string{"c", "d"},
	IndexedColumns:    []string{"idx"},
}

func mustRange(t *testing.T, column string, op Operator, v any) *RangePredicate {
	t.Helper()
	r, ok := NewRangePredicate(column, op, value.MustOf(v))
	require.True(t, ok)
	return r
}

func TestCanEvaluateEfficiently(t *testing.T) {
	contains, err := NewOperationPredicate("c", OpContains, "x")
	require.NoError(t, err)

	tcs := []struct {
		name     string
		pred     Predicate
		expected bool
	}{
		{name: "exact partition", pred: mustRange(t, "p", OpExact, "A"), expected: true},
		{name: "range partition", pred: mustRange(t, "p", OpGreater, "A"), expected: false},
		{name: "exact clustering", pred: mustRange(t, "d", OpExact, 1), expected: true},
		{name: "range clustering", pred: mustRange(t, "c", OpLess, 1), expected: true},
		{name: "exact indexed", pred: mustRange(t, "idx", OpExact, 1), expected: true},
		{name: "range indexed", pred: mustRange(t, "idx", OpGreaterEqual, 1), expected: false},
		{name: "exact plain column", pred: mustRange(t, "other", OpExact, 1), expected: false},
		{name: "operation", pred: contains, expected: false},
		{
			name:     "and of efficient",
			pred:     &CompoundPredicate{Connector: And, Children: []Predicate{mustRange(t, "p", OpExact, "A"), mustRange(t, "c", OpLess, 3)}},
			expected: true,
		},
		{
			name:     "or of efficient",
			pred:     &CompoundPredicate{Connector: Or, Children: []Predicate{mustRange(t, "c", OpGreater, 9), mustRange(t, "c", OpLess, 3)}},
			expected: true,
		},
		{
			name:     "one inefficient child",
			pred:     &CompoundPredicate{Connector: Or, Children: []Predicate{mustRange(t, "c", OpGreater, 9), contains}},
			expected: false,
		},
		{
			name:     "negated",
			pred:     &CompoundPredicate{Connector: And, Negated: true, Children: []Predicate{mustRange(t, "p", OpExact, "A")}},
			expected: false,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			first := tc.pred.CanEvaluateEfficiently(testLayout)
			require.Equal(t, tc.expected, first)
			require.Equal(t, first, tc.pred.CanEvaluateEfficiently(testLayout))
		})
	}
}

func TestOperationPredicate(t *testing.T) {
	tcs := []struct {
		op       Operator
		operand  any
		row      rows.Row
		expected bool
	}{
		{op: OpIsNull, operand: true, row: rows.Row{}, expected: true},
		{op: OpIsNull, operand: true, row: row("col", 1), expected: false},
		{op: OpIsNull, operand: false, row: row("col", 1), expected: true},
		{op: OpIsNull, operand: nil, row: rows.Row{}, expected: true},
		{op: OpIn, operand: []any{1, 2, 3}, row: row("col", 2), expected: true},
		{op: OpIn, operand: []int{1, 2, 3}, row: row("col", 2.0), expected: true},
		{op: OpIn, operand: []string{"a"}, row: row("col", "b"), expected: false},
		{op: OpIn, operand: []any{1}, row: rows.Row{}, expected: false},
		{op: OpIExact, operand: "HeLLo", row: row("col", "hello"), expected: true},
		{op: OpContains, operand: "ell", row: row("col", "hello"), expected: true},
		{op: OpContains, operand: "ELL", row: row("col", "hello"), expected: false},
		{op: OpIContains, operand: "ELL", row: row("col", "hello"), expected: true},
		{op: OpIStartsWith, operand: "HE", row: row("col", "hello"), expected: true},
		{op: OpEndsWith, operand: "llo", row: row("col", "hello"), expected: true},
		{op: OpIEndsWith, operand: "LLO", row: row("col", "hello"), expected: true},
		{op: OpContains, operand: "1", row: row("col", 1), expected: false},
		{op: OpRegex, operand: "h.l+", row: row("col", "hello"), expected: true},
		{op: OpRegex, operand: "l+o", row: row("col", "hello"), expected: false},
		{op: OpIRegex, operand: "H.L+", row: row("col", "hello"), expected: true},
	}

	for _, tc := range tcs {
		p, err := NewOperationPredicate("col", tc.op, tc.operand)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, p.RowMatches(tc.row), "%s %v on %v", tc.op, tc.operand, tc.row)
		assert.False(t, p.CanEvaluateEfficiently(testLayout))
	}
}

func TestOperationPredicateInvalidOperands(t *testing.T) {
	tcs := []struct {
		op      Operator
		operand any
	}{
		{op: OpIsNull, operand: "yes"},
		{op: OpIn, operand: 3},
		{op: OpContains, operand: 3},
		{op: OpRegex, operand: "("},
		{op: OpGreater, operand: 3},
	}

	for _, tc := range tcs {
		_, err := NewOperationPredicate("col", tc.op, tc.operand)
		var uerr *UnsupportedOperatorError
		require.True(t, errors.As(err, &uerr), "%s %v", tc.op, tc.operand)
		require.Equal(t, "col", uerr.Column)
	}
}

func TestCompoundRowMatches(t *testing.T) {
	gt := mustRange(t, "c", OpGreater, 10)
	lt := mustRange(t, "c", OpLess, 3)

	or := &CompoundPredicate{Connector: Or, Children: []Predicate{gt, lt}}
	require.True(t, or.RowMatches(row("c", 11)))
	require.True(t, or.RowMatches(row("c", 1)))
	require.False(t, or.RowMatches(row("c", 5)))

	not := &CompoundPredicate{Connector: Or, Negated: true, Children: []Predicate{gt, lt}}
	require.True(t, not.RowMatches(row("c", 5)))
	require.False(t, not.RowMatches(row("c", 11)))

	require.True(t, or.RowMatchesSubset(row("c", 11), []Predicate{gt}))
	require.False(t, or.RowMatchesSubset(row("c", 1), []Predicate{gt}))

	require.True(t, (&CompoundPredicate{Connector: And}).RowMatches(rows.Row{}))
	require.False(t, (&CompoundPredicate{Connector: Or}).RowMatches(rows.Row{}))
	require.Equal(t, "NOT ((c > 10) OR (c < 3))", not.String())
}

func TestNormalize(t *testing.T) {
	a := Condition{Column: "a", Value: 1}
	b := Condition{Column: "b", Value: 2}
	c := Condition{Column: "c", Value: 3}

	tcs := []struct {
		name     string
		in       Node
		expected *Group
	}{
		{
			name:     "nil",
			in:       nil,
			expected: &Group{Connector: And},
		},
		{
			name:     "bare condition",
			in:       a,
			expected: &Group{Connector: And, Children: []Node{a}},
		},
		{
			name:     "single child root kept",
			in:       &Group{Connector: Or, Children: []Node{a}},
			expected: &Group{Connector: Or, Children: []Node{a}},
		},
		{
			name:     "single child wrapper dropped",
			in:       &Group{Children: []Node{&Group{Connector: Or, Children: []Node{a}}, b}},
			expected: &Group{Connector: And, Children: []Node{a, b}},
		},
		{
			name:     "negated wrapper kept",
			in:       &Group{Children: []Node{&Group{Negated: true, Children: []Node{a}}}},
			expected: &Group{Connector: And, Children: []Node{&Group{Connector: And, Negated: true, Children: []Node{a}}}},
		},
		{
			name:     "same connector flattened",
			in:       &Group{Children: []Node{a, &Group{Children: []Node{b, c}}}},
			expected: &Group{Connector: And, Children: []Node{a, b, c}},
		},
		{
			name: "nested wrappers",
			in: &Group{Children: []Node{
				&Group{Connector: Or, Children: []Node{&Group{Children: []Node{b, c}}}},
			}},
			expected: &Group{Connector: And, Children: []Node{b, c}},
		},
		{
			name:     "different connector kept",
			in:       &Group{Children: []Node{a, &Group{Connector: Or, Children: []Node{b, c}}}},
			expected: &Group{Connector: And, Children: []Node{a, &Group{Connector: Or, Children: []Node{b, c}}}},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Normalize(tc.in))
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	inner := &Group{Children: []Node{Condition{Column: "b"}}}
	in := &Group{Children: []Node{Condition{Column: "a"}, inner}}

	_ = Normalize(in)

	require.Len(t, in.Children, 2)
	require.Same(t, inner, in.Children[1])
	require.Len(t, inner.Children, 1)
}

func TestBuildFoldsRanges(t *testing.T) {
	root := Normalize(&Group{Children: []Node{
		Condition{Column: "p", Value: "A"},
		Condition{Column: "c", Lookup: "gt", Value: 10},
		Condition{Column: "c", Lookup: "lt", Value: 20},
		Condition{Column: "other", Lookup: "icontains", Value: "x"},
		&Group{Connector: Or, Children: []Node{
			Condition{Column: "d", Lookup: "lt", Value: 3},
			Condition{Column: "d", Lookup: "gt", Value: 10},
			Condition{Column: "d", Lookup: "lte", Value: 4},
		}},
	}})

	pred, err := Build(root)
	require.NoError(t, err)
	require.Len(t, pred.Children, 4)

	require.Equal(t, `p = "A"`, pred.Children[0].String())
	require.Equal(t, "c > 10 AND c < 20", pred.Children[1].String())
	require.IsType(t, &OperationPredicate{}, pred.Children[2])

	or, ok := pred.Children[3].(*CompoundPredicate)
	require.True(t, ok)
	require.Equal(t, Or, or.Connector)
	require.Len(t, or.Children, 2)
	require.Equal(t, "d <= 4", or.Children[0].String())
	require.Equal(t, "d > 10", or.Children[1].String())
}

func TestBuildLookups(t *testing.T) {
	pred, err := Build(Normalize(&Group{Children: []Node{
		Condition{Column: "a", Value: nil},
		Condition{Column: "b", Lookup: "range", Value: []any{1, 5}},
		Condition{Column: "b", Lookup: "lte", Value: 4},
		Condition{Column: "s", Lookup: "startswith", Value: "ab"},
	}}))
	require.NoError(t, err)
	require.Len(t, pred.Children, 3)
	require.Equal(t, "a IS NULL", pred.Children[0].String())
	require.Equal(t, "b >= 1 AND b <= 4", pred.Children[1].String())
	require.Equal(t, `s >= "ab" AND s < "ac"`, pred.Children[2].String())
}

func TestBuildErrors(t *testing.T) {
	tcs := []Condition{
		{Column: "a", Lookup: "near", Value: 1},
		{Column: "a", Lookup: "startswith", Value: 1},
		{Column: "a", Lookup: "gt", Value: nil},
		{Column: "a", Lookup: "range", Value: []any{1}},
		{Column: "a", Lookup: "gt", Value: struct{}{}},
	}

	for _, tc := range tcs {
		_, err := Build(Normalize(tc))
		var uerr *UnsupportedOperatorError
		require.True(t, errors.As(err, &uerr), "%+v: %v", tc, err)
		require.Equal(t, "a", uerr.Column)
	}
}

func TestParseCondition(t *testing.T) {
	tcs := []struct {
		key      string
		expected Condition
	}{
		{key: "c__gte", expected: Condition{Column: "c", Lookup: "gte", Value: 1}},
		{key: "first__name__in", expected: Condition{Column: "first__name", Lookup: "in", Value: 1}},
		{key: "first__name__exact", expected: Condition{Column: "first__name", Lookup: "exact", Value: 1}},
		{key: "c", expected: Condition{Column: "c", Lookup: "exact", Value: 1}},
	}
	for _, tc := range tcs {
		t.Run(tc.key, func(t *testing.T) {
			c, err := ParseCondition(tc.key, 1)
			require.NoError(t, err)
			require.Equal(t, tc.expected, c)
		})
	}
}

func TestParseConditionUnknownLookup(t *testing.T) {
	for _, key := range []string{"c__gtx", "first__name", "c__"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseCondition(key, 5)
			var uerr *UnsupportedOperatorError
			require.ErrorAs(t, err, &uerr)
		})
	}

	_, err := ParseFilter([]byte("p: A\nc__gtx: 5\n"))
	var uerr *UnsupportedOperatorError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "gtx", uerr.Lookup)
	require.Equal(t, "c", uerr.Column)
}

func TestParseFilter(t *testing.T) {
	n, err := ParseFilter([]byte(`
p: A
c__gte: 10
or:
  - kind: x
  - not:
      name__istartswith: tmp
`))
	require.NoError(t, err)

	expected := &Group{Connector: And, Children: []Node{
		Condition{Column: "p", Lookup: "exact", Value: "A"},
		Condition{Column: "c", Lookup: "gte", Value: 10},
		&Group{Connector: Or, Children: []Node{
			&Group{Connector: And, Children: []Node{Condition{Column: "kind", Lookup: "exact", Value: "x"}}},
			&Group{Connector: And, Children: []Node{
				&Group{Connector: And, Negated: true, Children: []Node{Condition{Column: "name", Lookup: "istartswith", Value: "tmp"}}},
			}},
		}},
	}}
	require.Equal(t, expected, n)

	pred, err := Build(Normalize(n))
	require.NoError(t, err)
	require.Equal(t, `((p = "A") AND (c >= 10) AND ((kind = "x") OR NOT (name istartswith "tmp")))`, pred.String())

	n, err = ParseFilter(nil)
	require.NoError(t, err)
	require.Nil(t, n)

	_, err = ParseFilter([]byte("just a string"))
	require.Error(t, err)
}
