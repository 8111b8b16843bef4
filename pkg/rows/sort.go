package rows

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kvplan/kvplan/pkg/value"
)

// SortSpec orders rows by one column.
type SortSpec struct {
	Column     string
	Descending bool
}

func (s SortSpec) String() string {
	if s.Descending {
		return "-" + s.Column
	}
	return s.Column
}

// ParseSortSpec accepts "column" or "-column".
func ParseSortSpec(s string) (SortSpec, error) {
	s = strings.TrimSpace(s)
	desc := strings.HasPrefix(s, "-")
	col := strings.TrimPrefix(s, "-")
	if col == "" {
		return SortSpec{}, fmt.Errorf("invalid ordering specification %q", s)
	}
	return SortSpec{Column: col, Descending: desc}, nil
}

// ParseSortSpecs parses a comma separated ordering like "p,-c".
func ParseSortSpecs(s string) ([]SortSpec, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	specs := make([]SortSpec, 0, len(parts))
	for _, p := range parts {
		spec, err := ParseSortSpec(p)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CompareRows evaluates ordering left to right and returns the first non-zero
// column comparison.
func CompareRows(a, b Row, ordering []SortSpec) int {
	for _, o := range ordering {
		c := value.Compare(a.Get(o.Column), b.Get(o.Column))
		if c == 0 {
			continue
		}
		if o.Descending {
			return -c
		}
		return c
	}
	return 0
}

// SortRows sorts rows in place. The sort is stable so rows with equal keys keep
// their relative order.
func SortRows(rows []Row, ordering []SortSpec) {
	if len(ordering) == 0 {
		return
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		return CompareRows(a, b, ordering)
	})
}
