package predicate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kvplan/kvplan/pkg/regexp"
	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/value"
)

// OperationPredicate is a lookup with no interval form. It is only ever
// evaluated against materialized rows.
type OperationPredicate struct {
	Column string
	Op     Operator
	Value  value.Value
	// Values holds the operands of OpIn.
	Values []value.Value

	re *regexp.Regexp
}

// NewOperationPredicate validates the operand for op and returns the predicate.
//
// isnull takes a bool (nil means true), in takes a slice or array, the string
// lookups take a string, and regex/iregex take a pattern matched from the start
// of the value.
func NewOperationPredicate(column string, op Operator, operand any) (*OperationPredicate, error) {
	p := &OperationPredicate{Column: column, Op: op}
	unsupported := func(reason string) error {
		return &UnsupportedOperatorError{Lookup: op.String(), Column: column, Reason: reason}
	}

	switch op {
	case OpIsNull:
		switch b := operand.(type) {
		case nil:
			p.Value = value.NewBool(true)
		case bool:
			p.Value = value.NewBool(b)
		default:
			return nil, unsupported(fmt.Sprintf("operand must be a bool, got %T", operand))
		}

	case OpIn:
		vals, err := toValues(operand)
		if err != nil {
			return nil, unsupported(err.Error())
		}
		p.Values = vals

	case OpIExact, OpContains, OpIContains, OpIStartsWith, OpEndsWith, OpIEndsWith:
		s, ok := operand.(string)
		if !ok {
			return nil, unsupported(fmt.Sprintf("operand must be a string, got %T", operand))
		}
		p.Value = value.NewString(s)

	case OpRegex, OpIRegex:
		s, ok := operand.(string)
		if !ok {
			return nil, unsupported(fmt.Sprintf("pattern must be a string, got %T", operand))
		}
		re, err := regexp.NewPrefixRegexp(s, op == OpIRegex)
		if err != nil {
			return nil, unsupported(err.Error())
		}
		p.Value = value.NewString(s)
		p.re = re

	default:
		return nil, unsupported("not an operation lookup")
	}

	return p, nil
}

// toValues converts any slice or array operand.
func toValues(operand any) ([]value.Value, error) {
	if vs, ok := operand.([]value.Value); ok {
		return vs, nil
	}

	rv := reflect.ValueOf(operand)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("operand must be a list, got %T", operand)
	}
	out := make([]value.Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := value.Of(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (*OperationPredicate) CanEvaluateEfficiently(Layout) bool {
	return false
}

func (p *OperationPredicate) RowMatches(row rows.Row) bool {
	v := row.Get(p.Column)

	switch p.Op {
	case OpIsNull:
		return v.IsNil() == p.Value.B
	case OpIn:
		if v.IsNil() {
			return false
		}
		for _, candidate := range p.Values {
			if v.Equals(candidate) {
				return true
			}
		}
		return false
	}

	if v.Type != value.TypeString {
		return false
	}
	s, operand := v.S, p.Value.S

	switch p.Op {
	case OpIExact:
		return strings.EqualFold(s, operand)
	case OpContains:
		return strings.Contains(s, operand)
	case OpIContains:
		return strings.Contains(strings.ToLower(s), strings.ToLower(operand))
	case OpIStartsWith:
		return strings.HasPrefix(strings.ToLower(s), strings.ToLower(operand))
	case OpEndsWith:
		return strings.HasSuffix(s, operand)
	case OpIEndsWith:
		return strings.HasSuffix(strings.ToLower(s), strings.ToLower(operand))
	case OpRegex, OpIRegex:
		return p.re.MatchString(s)
	}

	panic(fmt.Sprintf("unexpected operation %s", p.Op))
}

func (p *OperationPredicate) String() string {
	switch p.Op {
	case OpIsNull:
		if p.Value.B {
			return p.Column + " IS NULL"
		}
		return p.Column + " IS NOT NULL"
	case OpIn:
		vals := make([]string, 0, len(p.Values))
		for _, v := range p.Values {
			vals = append(vals, v.String())
		}
		return fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(vals, ", "))
	}
	return fmt.Sprintf("%s %s %s", p.Column, p.Op, p.Value)
}

func (*OperationPredicate) isPredicate() {}
