// Package modeltest provides a scripted model.Model for exercising code that
// drives a model.
package modeltest

import (
	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/embedding"
	"github.com/joelsearcy/headliner-go/pkg/model"
	"github.com/joelsearcy/headliner-go/pkg/preprocess"
	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
)

// Fake records every call and answers from its fields. It is not safe for
// concurrent use.
type Fake struct {
	Pre *preprocess.Preprocessor
	Vec *tokenizer.Vectorizer
	Dim int

	// TrainLoss and EvalLoss are returned by the step methods.
	TrainLoss float64
	EvalLoss  float64
	// TrainErr is returned by the TrainStep call number FailAt (1-based).
	TrainErr error
	FailAt   int
	SaveErr  error
	// PredictFn overrides the default prediction, which echoes the
	// preprocessed target.
	PredictFn func(input, target string) model.Prediction

	InitCalls  int
	EncoderEmb *embedding.Matrix
	DecoderEmb *embedding.Matrix
	TrainSteps int
	EvalSteps  int
	Rows       int
	Predicts   int
	Saves      []string
}

var _ model.Model = (*Fake)(nil)

// Accessors return the fields set directly or by Init.
func (f *Fake) Preprocessor() *preprocess.Preprocessor { return f.Pre }
func (f *Fake) Vectorizer() *tokenizer.Vectorizer { return f.Vec }
func (f *Fake) EmbeddingSize() int { return f.Dim }

// Init records its arguments.
func (f *Fake) Init(pre *preprocess.Preprocessor, vec *tokenizer.Vectorizer, encoder, decoder *embedding.Matrix) error {
	f.InitCalls++
	f.Pre, f.Vec = pre, vec
	f.EncoderEmb, f.DecoderEmb = encoder, decoder
	return nil
}

// InitStates returns batchSize nil states.
func (f *Fake) InitStates(batchSize int) model.States {
	return make(model.States, batchSize)
}

// TrainStep counts the call and returns TrainLoss, or TrainErr on call FailAt.
func (f *Fake) TrainStep(batch data.Batch, _ model.States, _ model.LossFunc) (float64, error) {
	f.TrainSteps++
	f.Rows += batch.Size()
	if f.TrainErr != nil && f.TrainSteps == f.FailAt {
		return 0, f.TrainErr
	}
	return f.TrainLoss, nil
}

// EvaluateStep counts the call and returns EvalLoss.
func (f *Fake) EvaluateStep(data.Batch, model.States, model.LossFunc) (float64, error) {
	f.EvalSteps++
	return f.EvalLoss, nil
}

// Predict counts the call and answers with PredictFn or the preprocessed target.
func (f *Fake) Predict(input, target string) (model.Prediction, error) {
	f.Predicts++
	if f.PredictFn != nil {
		return f.PredictFn(input, target), nil
	}
	pair := data.Pair{Source: input, Target: target}
	if f.Pre != nil {
		pair = f.Pre.Process(pair)
	}
	return model.Prediction{
		PredictedText:      pair.Target,
		PreprocessedInput:  pair.Source,
		PreprocessedTarget: pair.Target,
	}, nil
}

// Save records path, or returns SaveErr when set.
func (f *Fake) Save(path string) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.Saves = append(f.Saves, path)
	return nil
}
