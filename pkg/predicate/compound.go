package predicate

import (
	"strings"

	"github.com/kvplan/kvplan/pkg/rows"
)

// CompoundPredicate joins its children with a connector and optionally negates
// the result. An And with no children matches every row; an Or with no
// children matches none.
type CompoundPredicate struct {
	Connector Connector
	Negated   bool
	Children  []Predicate
}

// A negated compound is never efficient. Otherwise every child must be.
func (c *CompoundPredicate) CanEvaluateEfficiently(layout Layout) bool {
	if c.Negated {
		return false
	}
	for _, child := range c.Children {
		if !child.CanEvaluateEfficiently(layout) {
			return false
		}
	}
	return true
}

func (c *CompoundPredicate) RowMatches(row rows.Row) bool {
	return c.RowMatchesSubset(row, c.Children)
}

// RowMatchesSubset evaluates the connector and negation of c over subset
// instead of all children.
func (c *CompoundPredicate) RowMatchesSubset(row rows.Row, subset []Predicate) bool {
	result := c.Connector != Or
	for _, child := range subset {
		m := child.RowMatches(row)
		if c.Connector == Or && m {
			result = true
			break
		}
		if c.Connector != Or && !m {
			result = false
			break
		}
	}
	return result != c.Negated
}

func (c *CompoundPredicate) String() string {
	parts := make([]string, 0, len(c.Children))
	for _, child := range c.Children {
		s := child.String()
		if _, ok := child.(*CompoundPredicate); !ok && len(c.Children) > 1 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}

	s := "(" + strings.Join(parts, " "+c.Connector.String()+" ") + ")"
	if len(parts) == 0 {
		s = "(" + c.Connector.String() + ")"
	}
	if c.Negated {
		return "NOT " + s
	}
	return s
}

func (*CompoundPredicate) isPredicate() {}
