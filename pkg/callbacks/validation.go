package callbacks

import (
	"context"
	"fmt"

	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/model"
)

// ValidationLossKey is the log entry written by Validation.
const ValidationLossKey = "loss_val"

// Validation computes the mean batch loss over a validation dataset without
// updating the model.
type Validation struct {
	Model     model.Model
	Dataset   *data.Dataset
	Loss      model.LossFunc
	BatchSize int
}

// OnEpochEnd stores the mean validation loss under ValidationLossKey.
func (c *Validation) OnEpochEnd(ctx context.Context, e *EpochEnd) error {
	loss := c.Loss
	if loss == nil {
		loss = model.MaskedCrossEntropy
	}
	states := c.Model.InitStates(c.BatchSize)
	total := 0.0
	n, err := c.Dataset.ForEach(func(b data.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		l, err := c.Model.EvaluateStep(b, states, loss)
		if err != nil {
			return err
		}
		total += l
		return nil
	})
	if err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	if n == 0 {
		logger.FromContext(ctx).Warn("Validation produced no batches", "epoch", e.Epoch)
		return nil
	}
	e.Logs[ValidationLossKey] = total / float64(n)
	logger.FromContext(ctx).Info("Validation", "epoch", e.Epoch, ValidationLossKey, e.Logs[ValidationLossKey])
	return nil
}
