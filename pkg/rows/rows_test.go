package rows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvplan/kvplan/pkg/value"
)

func keyed(keys ...int64) []Row {
	out := make([]Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, Row{"k": value.NewInt(k)})
	}
	return out
}

func keysOf(rs []Row, col string) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Get(col).N)
	}
	return out
}

func TestSortRowsStable(t *testing.T) {
	rs := []Row{
		{"a": value.NewInt(2), "seq": value.NewInt(0)},
		{"a": value.NewInt(1), "seq": value.NewInt(1)},
		{"a": value.NewInt(2), "seq": value.NewInt(2)},
		{"a": value.NewInt(1), "seq": value.NewInt(3)},
		{"a": value.NewInt(2), "seq": value.NewInt(4)},
	}

	SortRows(rs, []SortSpec{{Column: "a"}})
	require.Equal(t, []int64{1, 3, 0, 2, 4}, keysOf(rs, "seq"))

	SortRows(rs, []SortSpec{{Column: "a", Descending: true}})
	require.Equal(t, []int64{0, 2, 4, 1, 3}, keysOf(rs, "seq"))
}

func TestSortRowsMultiKeyAndMissing(t *testing.T) {
	rs := []Row{
		{"a": value.NewInt(1), "b": value.NewString("y")},
		{"b": value.NewString("z")},
		{"a": value.NewInt(1), "b": value.NewString("x")},
		{"a": value.NewInt(0)},
	}

	SortRows(rs, []SortSpec{{Column: "a"}, {Column: "b", Descending: true}})

	// missing values sort first
	assert.True(t, rs[0].Get("a").IsNil())
	assert.Equal(t, int64(0), rs[1].Get("a").N)
	assert.Equal(t, "y", rs[2].Get("b").S)
	assert.Equal(t, "x", rs[3].Get("b").S)
}

func TestSortRowsNoOrdering(t *testing.T) {
	rs := keyed(3, 1, 2)
	SortRows(rs, nil)
	require.Equal(t, []int64{3, 1, 2}, keysOf(rs, "k"))
}

func TestParseSortSpecs(t *testing.T) {
	specs, err := ParseSortSpecs("p, -c")
	require.NoError(t, err)
	require.Equal(t, []SortSpec{{Column: "p"}, {Column: "c", Descending: true}}, specs)
	require.Equal(t, "-c", specs[1].String())

	_, err = ParseSortSpecs("p,-")
	require.Error(t, err)

	specs, err = ParseSortSpecs("")
	require.NoError(t, err)
	require.Nil(t, specs)
}

func TestCombineRows(t *testing.T) {
	tcs := []struct {
		name     string
		a, b     []Row
		op       CombineOp
		expected []int64
	}{
		{
			name:     "intersection",
			a:        keyed(1, 2, 3, 5),
			b:        keyed(2, 3, 4, 5),
			op:       Intersection,
			expected: []int64{2, 3, 5},
		},
		{
			name:     "union",
			a:        keyed(1, 2, 3, 5),
			b:        keyed(2, 3, 4, 5),
			op:       Union,
			expected: []int64{1, 2, 3, 4, 5},
		},
		{
			name:     "unsorted inputs",
			a:        keyed(5, 1, 3, 2),
			b:        keyed(4, 2, 5, 3),
			op:       Intersection,
			expected: []int64{2, 3, 5},
		},
		{
			name:     "empty side union",
			a:        nil,
			b:        keyed(1, 2),
			op:       Union,
			expected: []int64{1, 2},
		},
		{
			name:     "empty side intersection",
			a:        keyed(1, 2),
			b:        nil,
			op:       Intersection,
			expected: []int64{},
		},
		{
			name:     "duplicate keys collapse",
			a:        keyed(1, 1, 2),
			b:        keyed(1, 2, 2),
			op:       Intersection,
			expected: []int64{1, 2},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := CombineRows(tc.a, tc.b, tc.op, "k")
			require.NoError(t, err)
			require.Equal(t, tc.expected, keysOf(actual, "k"))
		})
	}
}

func TestCombineRowsLeftBias(t *testing.T) {
	a := []Row{{"k": value.NewInt(1), "side": value.NewString("left")}}
	b := []Row{{"k": value.NewInt(1), "side": value.NewString("right")}}

	for _, op := range []CombineOp{Union, Intersection} {
		out, err := CombineRows(a, b, op, "k")
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "left", out[0].Get("side").S)
	}

	_, err := CombineRows(a, b, CombineOp(7), "k")
	require.Error(t, err)
}

func TestCombineRowsDoesNotMutateInput(t *testing.T) {
	a := keyed(3, 1, 2)
	_, err := CombineRows(a, keyed(1), Union, "k")
	require.NoError(t, err)
	require.Equal(t, []int64{3, 1, 2}, keysOf(a, "k"))
}

type closeTracker struct {
	Iterator
	closed int
}

func (c *closeTracker) Close() {
	c.closed++
	c.Iterator.Close()
}

func TestWindowIterator(t *testing.T) {
	ctx := context.Background()

	inner := &closeTracker{Iterator: NewSliceIterator(keyed(0, 1, 2, 3, 4, 5))}
	it := NewWindowIterator(inner, 2, 3)

	out, truncated, err := Collect(ctx, it, Unbounded)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Equal(t, []int64{2, 3, 4}, keysOf(out, "k"))
	require.GreaterOrEqual(t, inner.closed, 1)

	out, _, err = Collect(ctx, NewWindowIterator(NewSliceIterator(keyed(0, 1)), 5, Unbounded), Unbounded)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestFilterAndTeeIterators(t *testing.T) {
	ctx := context.Background()

	var seen []Row
	done := false
	it := NewTeeIterator(
		NewFilterIterator(NewSliceIterator(keyed(1, 2, 3, 4)), func(r Row) bool { return r.Get("k").N%2 == 0 }),
		func(r Row) { seen = append(seen, r) },
		func() { done = true },
	)

	out, _, err := Collect(ctx, it, Unbounded)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 4}, keysOf(out, "k"))
	require.Equal(t, []int64{2, 4}, keysOf(seen, "k"))
	require.True(t, done)
}

func TestCloneIterator(t *testing.T) {
	src := keyed(1, 2)
	out, _, err := Collect(context.Background(), NewCloneIterator(NewSliceIterator(src)), Unbounded)
	require.NoError(t, err)

	out[0]["k"] = value.NewInt(100)
	delete(out[1], "k")
	require.Equal(t, []int64{1, 2}, keysOf(src, "k"))
}

func TestCollectTruncates(t *testing.T) {
	out, truncated, err := Collect(context.Background(), NewSliceIterator(keyed(1, 2, 3)), 2)
	require.NoError(t, err)
	require.True(t, truncated)
	require.Len(t, out, 2)
}

func TestSliceIteratorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSliceIterator(keyed(1)).Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
