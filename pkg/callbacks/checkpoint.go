package callbacks

import (
	"context"
	"fmt"

	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/joelsearcy/headliner-go/pkg/model"
)

// Mode tells ModelCheckpoint whether a lower or a higher monitored value is
// an improvement.
type Mode string

const (
	ModeMin Mode = "min"
	ModeMax Mode = "max"
)

// ModelCheckpoint saves Model to Path whenever Monitor improves.
type ModelCheckpoint struct {
	Path    string
	Model   model.Model
	Monitor string
	Mode    Mode

	best    float64
	hasBest bool
}

// OnEpochEnd saves the model when the monitored log entry beats the best
// value so far. A missing entry fails with ErrMissingMetric.
func (c *ModelCheckpoint) OnEpochEnd(ctx context.Context, e *EpochEnd) error {
	value, ok := e.Logs[c.Monitor]
	if !ok {
		return fmt.Errorf("checkpoint monitor %q: %w", c.Monitor, ErrMissingMetric)
	}
	if !c.improved(value) {
		logger.FromContext(ctx).Debug("No improvement", "epoch", e.Epoch, c.Monitor, value, "best", c.best)
		return nil
	}
	if err := c.Model.Save(c.Path); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	logger.FromContext(ctx).Info("Saved improved model",
		"epoch", e.Epoch, c.Monitor, value, "path", c.Path)
	c.best, c.hasBest = value, true
	return nil
}

// Best returns the best monitored value seen so far.
func (c *ModelCheckpoint) Best() (float64, bool) {
	return c.best, c.hasBest
}

func (c *ModelCheckpoint) improved(value float64) bool {
	if !c.hasBest {
		return true
	}
	if c.Mode == ModeMax {
		return value > c.best
	}
	return value < c.best
}
