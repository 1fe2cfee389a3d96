package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/embedding"
	"github.com/joelsearcy/headliner-go/pkg/optim"
	"github.com/joelsearcy/headliner-go/pkg/preprocess"
	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
	"github.com/spf13/afero"
)

// Config holds the Summarizer hyperparameters.
type Config struct {
	EmbeddingSize    int     `json:"embedding_size"     koanf:"embedding_size"     validate:"gt=0"`
	HiddenSize       int     `json:"hidden_size"        koanf:"hidden_size"        validate:"gt=0"`
	LearningRate     float64 `json:"learning_rate"      koanf:"learning_rate"      validate:"gt=0"`
	MaxPredictionLen int     `json:"max_prediction_len" koanf:"max_prediction_len" validate:"gt=0"`
	Seed             uint64  `json:"seed"               koanf:"seed"`
}

// DefaultConfig returns a small configuration suitable for CPU training.
func DefaultConfig() Config {
	return Config{
		EmbeddingSize:    16,
		HiddenSize:       16,
		LearningRate:     0.01,
		MaxPredictionLen: 20,
		Seed:             42,
	}
}

// Summarizer is a recurrent encoder-decoder with dot-product attention over
// the encoder states, trained with teacher forcing.
type Summarizer struct {
	cfg          Config
	fs           afero.Fs
	preprocessor *preprocess.Preprocessor
	vectorizer   *tokenizer.Vectorizer
	params       *Params
	optimizer    *optim.Adam
}

var _ Model = (*Summarizer)(nil)

// Option customizes a Summarizer.
type Option func(*Summarizer)

// WithFs sets the filesystem used for checkpoints.
func WithFs(fs afero.Fs) Option {
	return func(s *Summarizer) { s.fs = fs }
}

// NewSummarizer creates a bare model; Init must run before training.
func NewSummarizer(cfg Config, opts ...Option) *Summarizer {
	s := &Summarizer{cfg: cfg, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accessors. Preprocessor, Vectorizer and Params are nil before Init.
func (s *Summarizer) Preprocessor() *preprocess.Preprocessor { return s.preprocessor }
func (s *Summarizer) Vectorizer() *tokenizer.Vectorizer { return s.vectorizer }
func (s *Summarizer) EmbeddingSize() int { return s.cfg.EmbeddingSize }
func (s *Summarizer) Config() Config { return s.cfg }
func (s *Summarizer) Params() *Params { return s.params }

// Init creates the parameters and optimizer for the vocabularies of vec.
// Non-nil rows of encoder and decoder replace the random embeddings.
func (s *Summarizer) Init(pre *preprocess.Preprocessor, vec *tokenizer.Vectorizer, encoder, decoder *embedding.Matrix) error {
	if pre == nil || vec == nil {
		return fmt.Errorf("preprocessor and vectorizer are required")
	}
	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	params := NewParams(vec.EncodingDim(), vec.DecodingDim(), s.cfg.EmbeddingSize, s.cfg.HiddenSize, rng)
	if err := params.EncEmb.Override(encoder); err != nil {
		return fmt.Errorf("encoder embedding: %w", err)
	}
	if err := params.DecEmb.Override(decoder); err != nil {
		return fmt.Errorf("decoder embedding: %w", err)
	}
	s.preprocessor = pre
	s.vectorizer = vec
	s.params = params
	s.optimizer = optim.NewAdam(len(params.AllParams()), s.cfg.LearningRate)
	return nil
}

// InitStates returns zero encoder states for batchSize rows.
func (s *Summarizer) InitStates(batchSize int) States {
	states := make(States, batchSize)
	for i := range states {
		states[i] = make([]float64, s.cfg.HiddenSize)
	}
	return states
}

// TrainStep computes the batch loss, back-propagates it and applies one
// optimizer update.
func (s *Summarizer) TrainStep(batch data.Batch, states States, loss LossFunc) (float64, error) {
	total, err := s.batchLoss(batch, states, loss)
	if err != nil || total == nil {
		return 0, err
	}
	total.Backward()
	s.optimizer.Step(s.params.AllParams())
	return total.Data, nil
}

// EvaluateStep computes the batch loss without updating the parameters.
func (s *Summarizer) EvaluateStep(batch data.Batch, states States, loss LossFunc) (float64, error) {
	total, err := s.batchLoss(batch, states, loss)
	if err != nil || total == nil {
		return 0, err
	}
	return total.Data, nil
}

// batchLoss averages the sequence losses of all rows. It returns nil when no
// row carries a target to predict.
func (s *Summarizer) batchLoss(batch data.Batch, states States, loss LossFunc) (*autograd.Value, error) {
	if s.params == nil {
		return nil, ErrNotInitialized
	}
	losses := make([]*autograd.Value, 0, batch.Size())
	for i := range batch.Source {
		source := data.Unpad(batch.Source[i])
		target := data.Unpad(batch.Target[i])
		if len(target) < 2 {
			continue
		}
		encStates := s.encode(source, states.Row(i))
		h := s.initialDecoderState(encStates, states.Row(i))
		logits := make([][]*autograd.Value, 0, len(target)-1)
		for _, prev := range target[:len(target)-1] {
			var out []*autograd.Value
			out, h, _ = s.decodeStep(prev, h, encStates)
			logits = append(logits, out)
		}
		if l := loss(logits, target[1:]); l != nil {
			losses = append(losses, l)
		}
	}
	if len(losses) == 0 {
		return nil, nil
	}
	return autograd.Mean(losses), nil
}

// encode runs the encoder over source ids and returns one state per token.
func (s *Summarizer) encode(source []int, h0 []float64) [][]*autograd.Value {
	h := Constants(h0, s.cfg.HiddenSize)
	states := make([][]*autograd.Value, 0, len(source))
	for _, id := range source {
		h = RecurrentCell(s.params.EncEmb.Row(id), h, s.params.EncWx, s.params.EncWh)
		states = append(states, h)
	}
	return states
}

func (s *Summarizer) initialDecoderState(encStates [][]*autograd.Value, h0 []float64) []*autograd.Value {
	if len(encStates) == 0 {
		return Constants(h0, s.cfg.HiddenSize)
	}
	return encStates[len(encStates)-1]
}

// decodeStep feeds prev into the decoder and returns the output logits, the
// new state and the attention weights over encStates.
func (s *Summarizer) decodeStep(prev int, h []*autograd.Value, encStates [][]*autograd.Value) ([]*autograd.Value, []*autograd.Value, []float64) {
	h = RecurrentCell(s.params.DecEmb.Row(prev), h, s.params.DecWx, s.params.DecWh)
	var context []*autograd.Value
	var weights []float64
	if len(encStates) == 0 {
		context = Constants(nil, s.cfg.HiddenSize)
	} else {
		var w []*autograd.Value
		context, w = Attention(h, encStates)
		weights = autograd.Data(w)
	}
	features := make([]*autograd.Value, 0, 2*s.cfg.HiddenSize)
	features = append(features, h...)
	features = append(features, context...)
	return Linear(features, s.params.Out), h, weights
}

// Predict greedily decodes a summary of input. The target text is only
// preprocessed and returned for scoring.
func (s *Summarizer) Predict(input, target string) (Prediction, error) {
	if s.params == nil {
		return Prediction{}, ErrNotInitialized
	}
	pre := s.preprocessor.Process(data.Pair{Source: input, Target: target})
	encStates := s.encode(s.vectorizer.EncodeInput(pre.Source), nil)
	h := s.initialDecoderState(encStates, nil)

	decoder := s.vectorizer.Decoder
	prev := decoder.ID(s.preprocessor.StartToken)
	end := decoder.ID(s.preprocessor.EndToken)
	var output []int
	var alignment [][]float64
	for len(output) < s.cfg.MaxPredictionLen {
		var logits []*autograd.Value
		var weights []float64
		logits, h, weights = s.decodeStep(prev, h, encStates)
		next := Argmax(logits)
		output = append(output, next)
		alignment = append(alignment, weights)
		if next == end {
			break
		}
		prev = next
	}
	return Prediction{
		PredictedText:      s.vectorizer.DecodeOutput(output),
		PreprocessedInput:  pre.Source,
		PreprocessedTarget: pre.Target,
		Alignment:          alignment,
	}, nil
}
