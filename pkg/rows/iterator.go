package rows

import (
	"context"
)

// Iterator is a lazy sequence of rows. Next returns nil, nil once the sequence
// is exhausted. Rows may be shared with the producer and must not be modified
// unless they come from a clone iterator. Close must be called when the caller is done, exhausted or not,
// so that any underlying cursor is released. Close is idempotent.
type Iterator interface {
	Next(context.Context) (Row, error)
	Close()
}

type sliceIterator struct {
	rows []Row
	i    int
}

var _ Iterator = (*sliceIterator)(nil)

func NewSliceIterator(rows []Row) Iterator {
	return &sliceIterator{rows: rows}
}

func (s *sliceIterator) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.i >= len(s.rows) {
		return nil, nil
	}
	r := s.rows[s.i]
	s.i++
	return r, nil
}

func (s *sliceIterator) Close() {
	s.i = len(s.rows)
}

type filterIterator struct {
	inner Iterator
	keep  func(Row) bool
}

var _ Iterator = (*filterIterator)(nil)

// NewFilterIterator yields the rows of inner for which keep returns true.
func NewFilterIterator(inner Iterator, keep func(Row) bool) Iterator {
	return &filterIterator{inner: inner, keep: keep}
}

func (f *filterIterator) Next(ctx context.Context) (Row, error) {
	for {
		r, err := f.inner.Next(ctx)
		if err != nil || r == nil {
			return nil, err
		}
		if f.keep(r) {
			return r, nil
		}
	}
}

func (f *filterIterator) Close() {
	f.inner.Close()
}

// Unbounded disables the limit of a window.
const Unbounded = -1

type windowIterator struct {
	inner   Iterator
	offset  int
	limit   int
	skipped int
	yielded int
}

var _ Iterator = (*windowIterator)(nil)

// NewWindowIterator skips offset rows and then yields at most limit rows. The
// inner iterator is closed as soon as the limit is reached.
func NewWindowIterator(inner Iterator, offset, limit int) Iterator {
	return &windowIterator{inner: inner, offset: offset, limit: limit}
}

func (w *windowIterator) Next(ctx context.Context) (Row, error) {
	if w.limit != Unbounded && w.yielded >= w.limit {
		w.inner.Close()
		return nil, nil
	}

	for w.skipped < w.offset {
		r, err := w.inner.Next(ctx)
		if err != nil || r == nil {
			return nil, err
		}
		w.skipped++
	}

	r, err := w.inner.Next(ctx)
	if err != nil || r == nil {
		return nil, err
	}
	w.yielded++
	return r, nil
}

func (w *windowIterator) Close() {
	w.inner.Close()
}

type cloneIterator struct {
	inner Iterator
}

var _ Iterator = (*cloneIterator)(nil)

// NewCloneIterator yields a private copy of every row of inner.
func NewCloneIterator(inner Iterator) Iterator {
	return &cloneIterator{inner: inner}
}

func (c *cloneIterator) Next(ctx context.Context) (Row, error) {
	r, err := c.inner.Next(ctx)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Clone(), nil
}

func (c *cloneIterator) Close() {
	c.inner.Close()
}

type teeIterator struct {
	inner  Iterator
	onRow  func(Row)
	onDone func()
	done   bool
}

var _ Iterator = (*teeIterator)(nil)

// NewTeeIterator calls onRow for every row read from inner and onDone once
// inner reports exhaustion. onDone is not called if the iterator is closed
// early or fails.
func NewTeeIterator(inner Iterator, onRow func(Row), onDone func()) Iterator {
	return &teeIterator{inner: inner, onRow: onRow, onDone: onDone}
}

func (t *teeIterator) Next(ctx context.Context) (Row, error) {
	if t.done {
		return nil, nil
	}

	r, err := t.inner.Next(ctx)
	if err != nil {
		return nil, err
	}
	if r == nil {
		t.done = true
		if t.onDone != nil {
			t.onDone()
		}
		return nil, nil
	}
	if t.onRow != nil {
		t.onRow(r)
	}
	return r, nil
}

func (t *teeIterator) Close() {
	t.inner.Close()
}

// Collect drains it into a slice and closes it. When limit is not Unbounded at
// most limit rows are kept and truncated reports whether more rows were available.
func Collect(ctx context.Context, it Iterator, limit int) (out []Row, truncated bool, err error) {
	defer it.Close()

	for {
		r, err := it.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if r == nil {
			return out, false, nil
		}
		if limit != Unbounded && len(out) >= limit {
			return out, true, nil
		}
		out = append(out, r)
	}
}
