package predicate

import (
	"errors"
	"fmt"

	"github.com/kvplan/kvplan/pkg/value"
)

// Build turns a normalized filter tree into a predicate tree. Range lookups
// on the same column are folded into an existing sibling RangePredicate using
// the connector of their group whenever the result is still one interval.
func Build(root *Group) (*CompoundPredicate, error) {
	if root == nil {
		return &CompoundPredicate{Connector: And}, nil
	}
	return buildGroup(root)
}

func buildGroup(g *Group) (*CompoundPredicate, error) {
	c := &CompoundPredicate{Connector: connectorOf(g), Negated: g.Negated}
	for _, child := range g.Children {
		switch t := child.(type) {
		case Condition:
			if err := c.addCondition(t); err != nil {
				return nil, err
			}
		case *Group:
			if t == nil {
				continue
			}
			sub, err := buildGroup(t)
			if err != nil {
				return nil, err
			}
			c.Children = append(c.Children, sub)
		default:
			return nil, fmt.Errorf("unexpected filter node %T", child)
		}
	}
	return c, nil
}

func (c *CompoundPredicate) addCondition(cond Condition) error {
	lookup := cond.Lookup
	if lookup == "" {
		lookup = "exact"
	}
	op, err := ParseOperator(lookup)
	if err != nil {
		var uerr *UnsupportedOperatorError
		if errors.As(err, &uerr) {
			uerr.Column = cond.Column
		}
		return err
	}
	unsupported := func(reason string) error {
		return &UnsupportedOperatorError{Lookup: lookup, Column: cond.Column, Reason: reason}
	}

	// exact nil is a null check
	if op == OpExact && cond.Value == nil {
		op = OpIsNull
		cond.Value = true
	}

	if !op.IsRange() {
		p, err := NewOperationPredicate(cond.Column, op, cond.Value)
		if err != nil {
			return err
		}
		c.Children = append(c.Children, p)
		return nil
	}

	if op == OpRange {
		bounds, err := toValues(cond.Value)
		if err != nil {
			return unsupported(err.Error())
		}
		if len(bounds) != 2 || bounds[0].IsNil() || bounds[1].IsNil() {
			return unsupported("operand must be two non-nil values")
		}
		for _, existing := range c.Children {
			if r, ok := existing.(*RangePredicate); ok && r.IncorporateBetween(cond.Column, bounds[0], bounds[1], c.Connector) {
				return nil
			}
		}
		c.Children = append(c.Children, NewBetweenPredicate(cond.Column, bounds[0], bounds[1]))
		return nil
	}

	v, err := value.Of(cond.Value)
	if err != nil {
		return unsupported(err.Error())
	}
	for _, existing := range c.Children {
		if r, ok := existing.(*RangePredicate); ok && r.Incorporate(cond.Column, op, v, c.Connector) {
			return nil
		}
	}
	r, ok := NewRangePredicate(cond.Column, op, v)
	if !ok {
		return unsupported(fmt.Sprintf("operand %s cannot be used with %s", v, op))
	}
	c.Children = append(c.Children, r)
	return nil
}
