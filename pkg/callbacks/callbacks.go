// Package callbacks holds the epoch-end hooks driven by the trainer:
// evaluation, validation loss, best-model checkpointing and metrics export.
package callbacks

import (
	"context"
	"errors"
	"maps"
	"slices"
)

// ErrMissingMetric is returned when a callback needs a metric nobody logged.
var ErrMissingMetric = errors.New("metric not found in logs")

// Logs maps a metric name to its latest value.
type Logs map[string]float64

// Names returns the metric names in sorted order.
func (l Logs) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// EpochEnd is passed to every callback at the end of an epoch. Callbacks may
// add entries to Logs for later callbacks in the same round.
type EpochEnd struct {
	Epoch int
	Batch int
	Logs  Logs
}

// Callback observes training at epoch boundaries. Callbacks run sequentially
// in list order; a returned error aborts training.
type Callback interface {
	OnEpochEnd(ctx context.Context, e *EpochEnd) error
}

// Func adapts a plain function to Callback.
type Func func(ctx context.Context, e *EpochEnd) error

// OnEpochEnd calls f.
func (f Func) OnEpochEnd(ctx context.Context, e *EpochEnd) error { return f(ctx, e) }
