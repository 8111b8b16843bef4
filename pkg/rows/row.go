// Package rows contains the row type shared by the planner and store adapters
// along with sorting, merging and lazy iteration helpers.
package rows

import (
	"fmt"
	"maps"
	"strings"

	"github.com/kvplan/kvplan/pkg/value"
)

// Row maps column names to values. A missing column reads as value.Nil.
type Row map[string]value.Value

// Get returns the value stored for column or value.Nil.
func (r Row) Get(column string) value.Value {
	if v, ok := r[column]; ok {
		return v
	}
	return value.Nil
}

// Clone returns a copy of r that shares no state with it.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Project returns a new row holding only the given columns.
func (r Row) Project(columns []string) Row {
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Format renders the row using the column order given.
func (r Row) Format(columns []string) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", c, r.Get(c))
	}
	sb.WriteString("}")
	return sb.String()
}

// FromMap converts plain Go values into a Row.
func FromMap(m map[string]any) (Row, error) {
	r := make(Row, len(m))
	for k, v := range m {
		val, err := value.Of(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		r[k] = val
	}
	return r, nil
}
