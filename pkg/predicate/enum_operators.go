package predicate

import (
	"fmt"
	"strings"
)

type Operator int

const (
	OpNone Operator = iota

	// range lookups, folded into a RangePredicate
	OpExact
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpStartsWith
	OpRange

	// lookups only evaluated against materialized rows
	OpIsNull
	OpIn
	OpIExact
	OpContains
	OpIContains
	OpIStartsWith
	OpEndsWith
	OpIEndsWith
	OpRegex
	OpIRegex
)

var lookupNames = map[string]Operator{
	"exact":       OpExact,
	"eq":          OpExact,
	"gt":          OpGreater,
	"gte":         OpGreaterEqual,
	"lt":          OpLess,
	"lte":         OpLessEqual,
	"startswith":  OpStartsWith,
	"range":       OpRange,
	"isnull":      OpIsNull,
	"in":          OpIn,
	"iexact":      OpIExact,
	"contains":    OpContains,
	"icontains":   OpIContains,
	"istartswith": OpIStartsWith,
	"endswith":    OpEndsWith,
	"iendswith":   OpIEndsWith,
	"regex":       OpRegex,
	"iregex":      OpIRegex,
}

// ParseOperator maps a lookup name such as "gte" or "icontains" to an Operator.
func ParseOperator(lookup string) (Operator, error) {
	op, ok := lookupNames[strings.ToLower(strings.TrimSpace(lookup))]
	if !ok {
		return OpNone, &UnsupportedOperatorError{Lookup: lookup}
	}
	return op, nil
}

// IsRange reports whether op can be represented as an interval on one column.
func (op Operator) IsRange() bool {
	return op >= OpExact && op <= OpRange
}

func (op Operator) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpExact:
		return "exact"
	case OpGreater:
		return "gt"
	case OpGreaterEqual:
		return "gte"
	case OpLess:
		return "lt"
	case OpLessEqual:
		return "lte"
	case OpStartsWith:
		return "startswith"
	case OpRange:
		return "range"
	case OpIsNull:
		return "isnull"
	case OpIn:
		return "in"
	case OpIExact:
		return "iexact"
	case OpContains:
		return "contains"
	case OpIContains:
		return "icontains"
	case OpIStartsWith:
		return "istartswith"
	case OpEndsWith:
		return "endswith"
	case OpIEndsWith:
		return "iendswith"
	case OpRegex:
		return "regex"
	case OpIRegex:
		return "iregex"
	}

	return fmt.Sprintf("operator(%d)", op)
}

// Connector joins the children of a CompoundPredicate.
type Connector int

const (
	And Connector = iota + 1
	Or
)

func ParseConnector(s string) (Connector, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND":
		return And, nil
	case "OR":
		return Or, nil
	}
	return 0, fmt.Errorf("unknown connector %q", s)
}

func (c Connector) String() string {
	switch c {
	case And:
		return "AND"
	case Or:
		return "OR"
	}
	return fmt.Sprintf("connector(%d)", c)
}
