package callbacks

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/eval"
	"github.com/joelsearcy/headliner-go/pkg/model"
)

// Evaluation predicts every validation pair and stores the mean of each
// scorer under its name.
type Evaluation struct {
	Model         model.Model
	Scorers       map[string]eval.Scorer
	Data          data.Source
	PrintExamples int
}

// OnEpochEnd scores the validation pairs in one pass, logging the first
// PrintExamples predictions as they are made.
func (c *Evaluation) OnEpochEnd(ctx context.Context, e *EpochEnd) error {
	log := logger.FromContext(ctx)
	stream, err := c.Data()
	if err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	order := slices.Sorted(maps.Keys(c.Scorers))

	sums := make([]float64, len(order))
	printed := 0
	n, err := data.ForEach(stream, func(p data.Pair) error {
		pred, err := c.Model.Predict(p.Source, p.Target)
		if err != nil {
			return err
		}
		for i, name := range order {
			sums[i] += c.Scorers[name].Score(pred)
		}
		if printed < c.PrintExamples {
			printed++
			log.Info("Prediction",
				"epoch", e.Epoch,
				"input", pred.PreprocessedInput,
				"target", pred.PreprocessedTarget,
				"predicted", pred.PredictedText,
			)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	if n == 0 {
		log.Warn("No validation data to evaluate", "epoch", e.Epoch)
		return nil
	}
	for i, name := range order {
		e.Logs[name] = sums[i] / float64(n)
		log.Info("Evaluation", "epoch", e.Epoch, "metric", name, "value", e.Logs[name])
	}
	return nil
}
