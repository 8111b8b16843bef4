package predicate

import (
	"strings"
	"unicode/utf8"

	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/value"
)

// RangePredicate restricts one column to a single interval. A nil Start or End
// leaves that side unbounded. The predicate is empty, and matches nothing, when
// Start > End or Start == End with either side exclusive. Nil column values
// never match.
type RangePredicate struct {
	Column         string
	Start          *value.Value
	StartInclusive bool
	End            *value.Value
	EndInclusive   bool
}

// NewRangePredicate returns the interval for a single range lookup. ok is false
// when op is not a single operand range lookup or v cannot be used with it.
func NewRangePredicate(column string, op Operator, v value.Value) (*RangePredicate, bool) {
	iv, ok := intervalFor(op, v)
	if !ok {
		return nil, false
	}
	r := &RangePredicate{Column: column}
	r.set(iv)
	return r, true
}

// NewBetweenPredicate returns the closed interval [lo, hi].
func NewBetweenPredicate(column string, lo, hi value.Value) *RangePredicate {
	r := &RangePredicate{Column: column}
	r.set(interval{start: &lo, startInc: true, end: &hi, endInc: true})
	return r
}

// Incorporate folds `column op v` into the interval using the connector of the
// enclosing compound. Under And the interval is narrowed to the intersection;
// an exact value outside it leaves the predicate empty. Under Or the interval
// is widened to the union, which only succeeds when both intervals overlap or
// touch. On false the predicate is unchanged and the caller keeps the
// condition as a sibling.
//
// OpRange takes two operands and is folded with IncorporateBetween.
func (r *RangePredicate) Incorporate(column string, op Operator, v value.Value, parent Connector) bool {
	if column != r.Column {
		return false
	}
	iv, ok := intervalFor(op, v)
	if !ok {
		return false
	}
	return r.merge(iv, parent)
}

// IncorporateBetween folds `lo <= column <= hi`.
func (r *RangePredicate) IncorporateBetween(column string, lo, hi value.Value, parent Connector) bool {
	if column != r.Column {
		return false
	}
	return r.merge(interval{start: &lo, startInc: true, end: &hi, endInc: true}, parent)
}

func (r *RangePredicate) merge(iv interval, parent Connector) bool {
	switch parent {
	case And:
		r.set(r.interval().intersect(iv))
		return true
	case Or:
		u, ok := r.interval().union(iv)
		if !ok {
			return false
		}
		r.set(u)
		return true
	}
	return false
}

// IsExact holds when both bounds are set, equal and inclusive.
func (r *RangePredicate) IsExact() bool {
	return r.Start != nil && r.End != nil && r.StartInclusive && r.EndInclusive &&
		value.Compare(*r.Start, *r.End) == 0
}

func (r *RangePredicate) IsEmpty() bool {
	return r.interval().empty()
}

func (r *RangePredicate) CanEvaluateEfficiently(layout Layout) bool {
	if r.IsExact() {
		return layout.IsPartition(r.Column) || layout.ClusteringPosition(r.Column) >= 0 || layout.IsIndexed(r.Column)
	}
	return layout.ClusteringPosition(r.Column) >= 0
}

func (r *RangePredicate) RowMatches(row rows.Row) bool {
	v := row.Get(r.Column)
	if v.IsNil() {
		return false
	}
	return r.interval().contains(v)
}

func (r *RangePredicate) String() string {
	switch {
	case r.IsEmpty():
		return r.Column + " IN ()"
	case r.IsExact():
		return r.Column + " = " + r.Start.String()
	case r.Start == nil && r.End == nil:
		return r.Column + " IS NOT NULL"
	}

	var parts []string
	if r.Start != nil {
		op := " > "
		if r.StartInclusive {
			op = " >= "
		}
		parts = append(parts, r.Column+op+r.Start.String())
	}
	if r.End != nil {
		op := " < "
		if r.EndInclusive {
			op = " <= "
		}
		parts = append(parts, r.Column+op+r.End.String())
	}
	return strings.Join(parts, " AND ")
}

func (*RangePredicate) isPredicate() {}

func (r *RangePredicate) interval() interval {
	return interval{start: r.Start, startInc: r.StartInclusive, end: r.End, endInc: r.EndInclusive}
}

func (r *RangePredicate) set(iv interval) {
	r.Start, r.StartInclusive = copyValue(iv.start), iv.startInc
	r.End, r.EndInclusive = copyValue(iv.end), iv.endInc
}

func copyValue(v *value.Value) *value.Value {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// interval is a possibly half open range over value.Compare. A nil start is
// -inf and a nil end is +inf.
type interval struct {
	start    *value.Value
	startInc bool
	end      *value.Value
	endInc   bool
}

func intervalFor(op Operator, v value.Value) (interval, bool) {
	if v.IsNil() {
		return interval{}, false
	}

	switch op {
	case OpExact:
		return interval{start: &v, startInc: true, end: &v, endInc: true}, true
	case OpGreater:
		return interval{start: &v}, true
	case OpGreaterEqual:
		return interval{start: &v, startInc: true}, true
	case OpLess:
		return interval{end: &v}, true
	case OpLessEqual:
		return interval{end: &v, endInc: true}, true
	case OpStartsWith:
		if v.Type != value.TypeString {
			return interval{}, false
		}
		iv := interval{start: &v, startInc: true}
		if next, ok := successor(v.S); ok {
			end := value.NewString(next)
			iv.end = &end
		}
		return iv, true
	}

	return interval{}, false
}

// successor returns the smallest string greater than every string prefixed by
// s, by incrementing the last code point and carrying past utf8.MaxRune. The
// surrogate block is skipped. This is a code point ordinal approximation of a
// prefix range and relies on values being valid UTF-8, where byte order and
// code point order agree. ok is false when no such string exists, for example
// for the empty prefix.
func successor(s string) (string, bool) {
	rs := []rune(s)
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] >= utf8.MaxRune {
			continue
		}
		next := rs[i] + 1
		if next >= 0xD800 && next <= 0xDFFF {
			next = 0xE000
		}
		return string(append(rs[:i:i], next)), true
	}
	return "", false
}

// cmpLower orders lower bounds; an exclusive bound is above an inclusive one
// at the same value.
func cmpLower(a *value.Value, aInc bool, b *value.Value, bInc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := value.Compare(*a, *b); c != 0 {
		return c
	}
	switch {
	case aInc == bInc:
		return 0
	case aInc:
		return -1
	}
	return 1
}

// cmpUpper orders upper bounds; an exclusive bound is below an inclusive one
// at the same value.
func cmpUpper(a *value.Value, aInc bool, b *value.Value, bInc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if c := value.Compare(*a, *b); c != 0 {
		return c
	}
	switch {
	case aInc == bInc:
		return 0
	case aInc:
		return 1
	}
	return -1
}

func (iv interval) empty() bool {
	if iv.start == nil || iv.end == nil {
		return false
	}
	c := value.Compare(*iv.start, *iv.end)
	return c > 0 || (c == 0 && !(iv.startInc && iv.endInc))
}

func (iv interval) contains(v value.Value) bool {
	if iv.start != nil {
		c := value.Compare(v, *iv.start)
		if c < 0 || (c == 0 && !iv.startInc) {
			return false
		}
	}
	if iv.end != nil {
		c := value.Compare(v, *iv.end)
		if c > 0 || (c == 0 && !iv.endInc) {
			return false
		}
	}
	return true
}

func (iv interval) intersect(o interval) interval {
	out := iv
	if cmpLower(o.start, o.startInc, iv.start, iv.startInc) > 0 {
		out.start, out.startInc = o.start, o.startInc
	}
	if cmpUpper(o.end, o.endInc, iv.end, iv.endInc) < 0 {
		out.end, out.endInc = o.end, o.endInc
	}
	if !out.empty() {
		return out
	}

	// collapse to the canonical empty interval (v, v)
	pivot := out.start
	if pivot == nil {
		pivot = out.end
	}
	return interval{start: pivot, end: pivot}
}

func (iv interval) union(o interval) (interval, bool) {
	switch {
	case iv.empty():
		return o, true
	case o.empty():
		return iv, true
	}

	lo, hi := iv, o
	if cmpLower(o.start, o.startInc, iv.start, iv.startInc) < 0 {
		lo, hi = o, iv
	}

	// hi starts at or after lo, so the two are contiguous unless lo ends
	// before hi starts.
	if lo.end != nil && hi.start != nil {
		c := value.Compare(*lo.end, *hi.start)
		if c < 0 || (c == 0 && !lo.endInc && !hi.startInc) {
			return interval{}, false
		}
	}

	out := lo
	if cmpUpper(hi.end, hi.endInc, lo.end, lo.endInc) > 0 {
		out.end, out.endInc = hi.end, hi.endInc
	}
	return out, true
}
