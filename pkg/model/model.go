// Package model defines the contract the trainer drives and a small reference
// encoder-decoder implementation.
package model

import (
	"errors"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/embedding"
	"github.com/joelsearcy/headliner-go/pkg/preprocess"
	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
)

// ErrNotInitialized is returned when a model is used before Init.
var ErrNotInitialized = errors.New("model is not initialized")

// States holds one initial encoder state vector per batch row.
type States [][]float64

// Row returns the state for row i, or nil when absent.
func (s States) Row(i int) []float64 {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// Prediction is the result of summarizing one input text.
type Prediction struct {
	PredictedText      string
	PreprocessedInput  string
	PreprocessedTarget string
	// Alignment holds, per predicted token, the attention weights over the
	// preprocessed input tokens.
	Alignment [][]float64
}

// Model is the trainable summarizer contract.
type Model interface {
	// Preprocessor and Vectorizer are nil until Init has run.
	Preprocessor() *preprocess.Preprocessor
	Vectorizer() *tokenizer.Vectorizer
	EmbeddingSize() int
	// Init attaches preprocessing and sizes the parameters. Embedding
	// matrices may be nil; nil rows keep the default initialization.
	Init(pre *preprocess.Preprocessor, vec *tokenizer.Vectorizer, encoder, decoder *embedding.Matrix) error
	InitStates(batchSize int) States
	// TrainStep runs one optimization step and returns the batch loss.
	TrainStep(batch data.Batch, states States, loss LossFunc) (float64, error)
	// EvaluateStep returns the batch loss without updating parameters.
	EvaluateStep(batch data.Batch, states States, loss LossFunc) (float64, error)
	Predict(input, target string) (Prediction, error)
	Save(path string) error
}

// LossFunc reduces per-step logits against target ids to a scalar. It returns
// nil when every target is masked.
type LossFunc func(logits [][]*autograd.Value, targets []int) *autograd.Value

// MaskedCrossEntropy averages the cross entropy over targets that are not
// padding.
func MaskedCrossEntropy(logits [][]*autograd.Value, targets []int) *autograd.Value {
	losses := make([]*autograd.Value, 0, len(targets))
	for t, target := range targets {
		if target == data.PadID || t >= len(logits) {
			continue
		}
		losses = append(losses, autograd.CrossEntropy(logits[t], target))
	}
	if len(losses) == 0 {
		return nil
	}
	return autograd.Mean(losses)
}
