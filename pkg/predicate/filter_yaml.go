package predicate

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseFilter reads a filter tree from YAML. A mapping is an And of its
// entries; the keys "and", "or" and "not" open nested groups and every other
// key is a "column__lookup" condition:
//
//	and:
//	  - p: A
//	  - c__gte: 10
//	  - or:
//	      - kind: x
//	      - not:
//	          name__istartswith: tmp
func ParseFilter(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse filter: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return parseFilterNode(doc.Content[0])
}

func parseFilterNode(n *yaml.Node) (*Group, error) {
	switch n.Kind {
	case yaml.MappingNode:
		g := &Group{Connector: And}
		for i := 0; i+1 < len(n.Content); i += 2 {
			child, err := parseFilterEntry(n.Content[i].Value, n.Content[i+1])
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
		return g, nil
	case yaml.SequenceNode:
		g := &Group{Connector: And}
		for _, item := range n.Content {
			child, err := parseFilterNode(item)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
		return g, nil
	case yaml.AliasNode:
		return parseFilterNode(n.Alias)
	}
	return nil, fmt.Errorf("line %d: expected a mapping or a list of filters", n.Line)
}

func parseFilterEntry(key string, n *yaml.Node) (Node, error) {
	switch key {
	case "and", "or", "not":
		g, err := parseFilterNode(n)
		if err != nil {
			return nil, err
		}
		switch key {
		case "or":
			g.Connector = Or
		case "not":
			g.Negated = true
		}
		return g, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	c, err := ParseCondition(key, v)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return c, nil
}
