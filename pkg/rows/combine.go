package rows

import (
	"fmt"
	"slices"

	"github.com/kvplan/kvplan/pkg/value"
)

type CombineOp int

const (
	Union CombineOp = iota
	Intersection
)

func (op CombineOp) String() string {
	switch op {
	case Union:
		return "union"
	case Intersection:
		return "intersection"
	}
	return fmt.Sprintf("combine(%d)", op)
}

// CombineRows merges two row sets by key. Inputs are expected to be sorted
// ascending by key; unsorted inputs are sorted on a copy first. The output is
// ascending with a single row per key, taken from a when both sides hold it.
func CombineRows(a, b []Row, op CombineOp, key string) ([]Row, error) {
	if op != Union && op != Intersection {
		return nil, fmt.Errorf("invalid row combination operation %s", op)
	}

	a = sortedByKey(a, key)
	b = sortedByKey(b, key)

	out := make([]Row, 0, max(len(a), len(b)))
	emit := func(r Row) {
		if n := len(out); n > 0 && value.Compare(out[n-1].Get(key), r.Get(key)) == 0 {
			return
		}
		out = append(out, r)
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		c := value.Compare(a[i].Get(key), b[j].Get(key))
		switch {
		case c < 0:
			if op == Union {
				emit(a[i])
			}
			i++
		case c > 0:
			if op == Union {
				emit(b[j])
			}
			j++
		default:
			emit(a[i])
			i++
			j++
		}
	}

	if op == Union {
		for ; i < len(a); i++ {
			emit(a[i])
		}
		for ; j < len(b); j++ {
			emit(b[j])
		}
	}

	return out, nil
}

func sortedByKey(rows []Row, key string) []Row {
	cmp := func(x, y Row) int {
		return value.Compare(x.Get(key), y.Get(key))
	}
	if slices.IsSortedFunc(rows, cmp) {
		return rows
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, cmp)
	return sorted
}
