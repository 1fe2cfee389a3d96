package data

import (
	"errors"
	"io"
)

// Stream is a pull-based producer of elements. Next returns io.EOF once the
// stream is exhausted. Close releases upstream resources and may be called
// more than once.
type Stream[T any] interface {
	Next() (T, error)
	Close() error
}

// ErrStop ends a ForEach pass early without reporting an error.
var ErrStop = errors.New("stop iteration")

type sliceStream[T any] struct {
	items []T
	pos   int
}

// FromSlice returns a stream over items in order.
func FromSlice[T any](items []T) Stream[T] {
	return &sliceStream[T]{items: items}
}

func (s *sliceStream[T]) Next() (T, error) {
	var zero T
	if s.pos >= len(s.items) {
		return zero, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

func (s *sliceStream[T]) Close() error {
	s.pos = len(s.items)
	return nil
}

type mapStream[A, B any] struct {
	upstream Stream[A]
	fn       func(A) (B, error)
}

// Map chains a transformation stage onto upstream.
// Closing the returned stream closes upstream.
func Map[A, B any](upstream Stream[A], fn func(A) (B, error)) Stream[B] {
	return &mapStream[A, B]{upstream: upstream, fn: fn}
}

func (s *mapStream[A, B]) Next() (B, error) {
	a, err := s.upstream.Next()
	if err != nil {
		var zero B
		return zero, err
	}
	return s.fn(a)
}

func (s *mapStream[A, B]) Close() error {
	return s.upstream.Close()
}

// ForEach pulls every element of s into fn and closes s afterwards.
// It returns the number of elements handed to fn. If fn returns ErrStop the
// pass ends early and no error is reported.
func ForEach[T any](s Stream[T], fn func(T) error) (n int, err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		item, nextErr := s.Next()
		if errors.Is(nextErr, io.EOF) {
			return n, nil
		}
		if nextErr != nil {
			return n, nextErr
		}
		n++
		if fnErr := fn(item); fnErr != nil {
			if errors.Is(fnErr, ErrStop) {
				return n, nil
			}
			return n, fnErr
		}
	}
}

// Collect drains s into a slice.
func Collect[T any](s Stream[T]) ([]T, error) {
	var items []T
	_, err := ForEach(s, func(item T) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
