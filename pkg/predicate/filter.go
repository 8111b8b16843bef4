package predicate

import (
	"strconv"
	"strings"
)

// Node is a caller supplied filter tree: a Condition or a *Group.
type Node interface {
	isNode()
}

// Condition is a single lookup such as {Column: "c", Lookup: "gte", Value: 10}.
// An empty Lookup means exact.
type Condition struct {
	Column string
	Lookup string
	Value  any
}

// Group joins child nodes. A zero Connector is treated as And.
type Group struct {
	Connector Connector
	Negated   bool
	Children  []Node
}

func (Condition) isNode() {}
func (*Group) isNode()    {}

// ParseCondition splits a key of the form "column__lookup". A key without
// "__" is an exact match on the whole key. The text after the last "__" must
// be a known lookup, so a column whose name contains "__" is addressed as
// "first__name__exact".
func ParseCondition(key string, v any) (Condition, error) {
	i := strings.LastIndex(key, "__")
	if i <= 0 {
		return Condition{Column: key, Lookup: "exact", Value: v}, nil
	}

	column, lookup := key[:i], key[i+2:]
	if _, err := ParseOperator(lookup); err != nil {
		return Condition{}, &UnsupportedOperatorError{Lookup: lookup, Column: column, Reason: "unknown lookup in " + strconv.Quote(key)}
	}
	return Condition{Column: column, Lookup: lookup, Value: v}, nil
}

// Normalize returns a new tree equivalent to n whose root is always a *Group,
// even with a single child. Below the root, non-negated groups with a
// single child are replaced by the child and non-negated groups sharing their
// parent's connector are spliced into the parent. n is not modified. A nil n
// yields an empty And group, which matches everything.
func Normalize(n Node) *Group {
	switch t := n.(type) {
	case nil:
		return &Group{Connector: And}
	case Condition:
		return &Group{Connector: And, Children: []Node{t}}
	case *Group:
		if t == nil {
			return &Group{Connector: And}
		}
		return normalizeGroup(t)
	}
	return &Group{Connector: And}
}

func normalizeGroup(g *Group) *Group {
	out := &Group{Connector: connectorOf(g), Negated: g.Negated}
	for _, child := range g.Children {
		switch t := child.(type) {
		case Condition:
			out.Children = append(out.Children, t)
		case *Group:
			if t != nil {
				out.appendGroup(normalizeGroup(t))
			}
		}
	}
	return out
}

func (g *Group) appendGroup(child *Group) {
	switch {
	case child.Negated:
		g.Children = append(g.Children, child)
	case len(child.Children) == 1:
		if sub, ok := child.Children[0].(*Group); ok {
			g.appendGroup(sub)
			return
		}
		g.Children = append(g.Children, child.Children[0])
	case child.Connector == g.Connector:
		g.Children = append(g.Children, child.Children...)
	default:
		g.Children = append(g.Children, child)
	}
}

func connectorOf(g *Group) Connector {
	if g.Connector == Or {
		return Or
	}
	return And
}

// Leaves returns every Condition of n in depth first order.
func Leaves(n Node) []Condition {
	var out []Condition
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Condition:
			out = append(out, t)
		case *Group:
			if t == nil {
				return
			}
			for _, c := range t.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}
