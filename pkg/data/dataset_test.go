package data

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeTracker[T any] struct {
	Stream[T]
	closed int
}

func (c *closeTracker[T]) Close() error {
	c.closed++
	return c.Stream.Close()
}

func TestDataset(t *testing.T) {
	t.Run("Should invoke the factory once per pass", func(t *testing.T) {
		calls := 0
		ds := NewDataset(func() (Stream[Batch], error) {
			calls++
			return FromSlice([]Batch{NewBatch(makePairs(2)), NewBatch(makePairs(1))}), nil
		})

		for range 3 {
			n, err := ds.ForEach(func(Batch) error { return nil })
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		}
		assert.Equal(t, 3, calls)
	})

	t.Run("Should propagate factory errors", func(t *testing.T) {
		boom := errors.New("boom")
		ds := NewDataset(func() (Stream[Batch], error) { return nil, boom })
		_, err := ds.ForEach(func(Batch) error { return nil })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Should close the stream when stopped early", func(t *testing.T) {
		tracker := &closeTracker[Batch]{Stream: FromSlice(make([]Batch, 5))}
		ds := NewDataset(func() (Stream[Batch], error) { return tracker, nil })

		n, err := ds.ForEach(func(Batch) error { return ErrStop })
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, tracker.closed)
	})
}

func TestNewPipelineDataset(t *testing.T) {
	t.Run("Should vectorize and batch every pass", func(t *testing.T) {
		source := SliceSource([]Pair{
			{Source: "a b c", Target: "x"},
			{Source: "a", Target: "y z"},
			{Source: "a b", Target: "w"},
		})
		vectorize := func(p Pair) (SequencePair, error) {
			return SequencePair{
				Source: make([]int, len(strings.Fields(p.Source))),
				Target: make([]int, len(strings.Fields(p.Target))),
			}, nil
		}
		ds := NewPipelineDataset(source, vectorize, SequentialBatcher{BatchSize: 2})

		var sizes []int
		n, err := ds.ForEach(func(b Batch) error {
			sizes = append(sizes, b.Size())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []int{2, 1}, sizes)
	})

	t.Run("Should stop on vectorization errors", func(t *testing.T) {
		boom := errors.New("bad pair")
		ds := NewPipelineDataset(
			SliceSource([]Pair{{Source: "a", Target: "b"}}),
			func(Pair) (SequencePair, error) { return SequencePair{}, boom },
			SequentialBatcher{BatchSize: 2},
		)
		_, err := ds.ForEach(func(Batch) error { return nil })
		assert.ErrorIs(t, err, boom)
	})
}

func TestNewBatch(t *testing.T) {
	t.Run("Should pad both sides independently", func(t *testing.T) {
		b := NewBatch([]SequencePair{
			{Source: []int{5, 6, 7}, Target: []int{9}},
			{Source: []int{8}, Target: []int{3, 4}},
		})
		assert.Equal(t, [][]int{{5, 6, 7}, {8, PadID, PadID}}, b.Source)
		assert.Equal(t, [][]int{{9, PadID}, {3, 4}}, b.Target)
		assert.Equal(t, 2, b.Size())
		assert.Equal(t, 3, b.SourceLen())
		assert.Equal(t, 2, b.TargetLen())
	})
}
