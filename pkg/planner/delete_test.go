package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kvplan/kvplan/pkg/rows"
	"github.com/kvplan/kvplan/pkg/store"
	"github.com/kvplan/kvplan/pkg/util/test"
	"github.com/kvplan/kvplan/pkg/value"
)

func TestDeleteByRange(t *testing.T) {
	s := newTestStore(t, store.TableOptions{})
	deletedByRange := test.CounterDelta(metricRowsDeleted, deletePathRange)

	p := newPlanner(t, Config{}, s, and(cond("p", "", "A"), cond("c", "gte", 5)))
	deleted, err := p.Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, deleted)
	assert.Equal(t, 10.0, deletedByRange())
	assert.Equal(t, 50, s.Len())

	count, err := newPlanner(t, Config{}, s, cond("p", "", "A")).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestDeleteByKey(t *testing.T) {
	s := newTestStore(t, store.TableOptions{})
	deletedByKey := test.CounterDelta(metricRowsDeleted, deletePathKey)

	// an indexed column cannot be range deleted
	deleted, err := newPlanner(t, Config{}, s, and(cond("p", "", "A"), cond("kind", "", "x"))).Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, deleted)

	// filters evaluated in memory
	deleted, err = newPlanner(t, allowAll, s, and(cond("p", "", "B"), cond("name", "in", []string{"n1", "n2"}))).Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	assert.Equal(t, 14.0, deletedByKey())
	assert.Equal(t, 46, s.Len())

	remaining, err := newPlanner(t, Config{}, s, cond("kind", "", "x")).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, remaining)

	goleak.VerifyNone(t)
}

func TestDeleteUsesCachedResult(t *testing.T) {
	s := newTestStore(t, store.TableOptions{})
	adapter := &countingAdapter{Adapter: s}
	ctx := context.Background()

	p := newPlanner(t, allowAll, adapter, and(cond("p", "", "C"), cond("name", "", "n4")))
	assert.Len(t, fetchAll(t, p, 0, rows.Unbounded), 2)

	deleted, err := p.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, adapter.count())

	// the delete discards the cached result
	count, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 2, adapter.count())
}

func TestDeletePartialFailure(t *testing.T) {
	errBoom := errors.New("boom")

	s := newTestStore(t, store.TableOptions{})
	adapter := &countingAdapter{
		Adapter: s,
		failKey: func(key rows.Row) error {
			if key.Get("c").Equals(value.NewInt(3)) {
				return errBoom
			}
			return nil
		},
	}

	p := newPlanner(t, Config{DeleteConcurrency: 2}, adapter, cond("p", "", "A"))
	deleted, err := p.Delete(context.Background())

	var deleteErr *DeleteError
	require.ErrorAs(t, err, &deleteErr)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, deleted, deleteErr.Deleted)
	assert.Equal(t, 60-deleted, s.Len())

	// rows that failed to delete are still there
	count, err := newPlanner(t, Config{}, s, and(cond("p", "", "A"), cond("c", "", 3))).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	goleak.VerifyNone(t)
}

func TestDeleteKeyOnlyProjection(t *testing.T) {
	s := newTestStore(t, store.TableOptions{})

	var keysSeen []rows.Row
	adapter := &countingAdapter{
		Adapter: s,
		failKey: func(key rows.Row) error {
			keysSeen = append(keysSeen, key)
			return nil
		},
	}

	deleted, err := newPlanner(t, Config{DeleteConcurrency: 1}, adapter, and(cond("p", "", "A"), cond("c", "", 0))).Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	require.Len(t, keysSeen, 2)
	for _, k := range keysSeen {
		assert.ElementsMatch(t, []string{"p", "c", "d"}, mapKeys(k))
	}
}

func mapKeys(r rows.Row) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
