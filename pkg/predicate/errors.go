package predicate

import "fmt"

// UnsupportedOperatorError is returned for a lookup that maps to neither a
// range nor an operation predicate, or for an operand the lookup cannot use.
type UnsupportedOperatorError struct {
	Lookup string
	Column string
	Reason string
}

func (e *UnsupportedOperatorError) Error() string {
	msg := fmt.Sprintf("unsupported filter operator %q", e.Lookup)
	if e.Column != "" {
		msg += " on column " + e.Column
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
