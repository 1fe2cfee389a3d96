// Package train drives a model.Model through epochs of bucketed batches and
// runs the epoch-end callbacks.
package train

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/joelsearcy/headliner-go/pkg/callbacks"
	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/embedding"
	"github.com/joelsearcy/headliner-go/pkg/eval"
	"github.com/joelsearcy/headliner-go/pkg/model"
	"github.com/joelsearcy/headliner-go/pkg/preprocess"
	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// ErrZeroBatches is returned when a full pass over the training data yields
// no batch at all.
var ErrZeroBatches = errors.New("iterating over the dataset yielded zero batches")

// LossKey is the log entry holding the latest training loss.
const LossKey = "loss"

// Trainer runs the training loop. A Trainer may be reused for several runs
// but not concurrently; State may be read from any goroutine.
type Trainer struct {
	cfg          Config
	preprocessor *preprocess.Preprocessor
	vectorizer   *tokenizer.Vectorizer
	log          logger.Logger
	fs           afero.Fs
	registerer   prometheus.Registerer
	scorers      map[string]eval.Scorer
	loss         model.LossFunc
	batcher      data.Batcher

	mu    sync.Mutex
	state State
}

// Option customizes a Trainer.
type Option func(*Trainer)

// WithPreprocessor replaces the default preprocessor used for bare models.
func WithPreprocessor(p *preprocess.Preprocessor) Option {
	return func(t *Trainer) { t.preprocessor = p }
}

// WithVectorizer skips vocabulary building for bare models.
func WithVectorizer(v *tokenizer.Vectorizer) Option {
	return func(t *Trainer) { t.vectorizer = v }
}

// WithLogger fixes the logger instead of taking it from the context.
func WithLogger(l logger.Logger) Option {
	return func(t *Trainer) { t.log = l }
}

// WithFs sets the filesystem for embeddings and metric logs.
func WithFs(fs afero.Fs) Option {
	return func(t *Trainer) { t.fs = fs }
}

// WithRegisterer exports the default metrics callback gauges to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(t *Trainer) { t.registerer = reg }
}

// WithScorers replaces the validation scorers of the default callbacks.
func WithScorers(scorers map[string]eval.Scorer) Option {
	return func(t *Trainer) { t.scorers = scorers }
}

// WithLoss replaces the masked cross-entropy used for training and validation.
func WithLoss(loss model.LossFunc) Option {
	return func(t *Trainer) { t.loss = loss }
}

// NewTrainer validates cfg and builds the training batcher.
func NewTrainer(cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	bucketCfg := data.DefaultBucketConfig(cfg.BatchSize)
	bucketCfg.BufferSizeBatches = cfg.BucketingBufferSizeBatches
	bucketCfg.BatchesToBucket = cfg.BucketingBatchesToBucket
	bucketCfg.Seed = cfg.Seed
	batcher, err := data.NewBucketGenerator(bucketCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid bucketing config: %w", err)
	}
	t := &Trainer{
		cfg:     cfg,
		fs:      afero.NewOsFs(),
		loss:    model.MaskedCrossEntropy,
		batcher: batcher,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.preprocessor == nil {
		t.preprocessor = preprocess.New()
	}
	if t.scorers == nil {
		t.scorers = map[string]eval.Scorer{
			"bleu_score": eval.NewBleu(tokenizer.OOVToken, t.preprocessor.StartToken, t.preprocessor.EndToken),
		}
	}
	return t, nil
}

// State returns a snapshot of the current run.
func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

func (t *Trainer) update(fn func(s *State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.state)
}

func (t *Trainer) setPhase(p Phase) {
	t.update(func(s *State) { s.Phase = p })
}

// Train trains m on train for numEpochs epochs of StepsPerEpoch steps each.
// A bare model is initialized first. val may be nil. When cbs is nil the
// default callbacks are used; pass an empty slice to run without callbacks.
// The training data is re-read as often as needed to fill the epochs.
func (t *Trainer) Train(
	ctx context.Context,
	m model.Model,
	train, val data.Source,
	numEpochs int,
	cbs []callbacks.Callback,
) (err error) {
	log := t.log
	if log == nil {
		log = logger.FromContext(ctx)
	}
	ctx = logger.ContextWithLogger(ctx, log)
	t.update(func(s *State) { *s = State{Phase: PhaseUninitialized, Logs: callbacks.Logs{}} })
	defer func() {
		if err == nil {
			return
		}
		st := t.State()
		t.setPhase(PhaseFailed)
		log.Error("Training failed", "epoch", st.Epoch, "batch", st.Batch, "error", err)
	}()

	if m.Preprocessor() == nil || m.Vectorizer() == nil {
		log.Info("Training a bare model, initializing preprocessing")
		t.setPhase(PhaseInitializing)
		if err := t.initModel(ctx, m, train); err != nil {
			return err
		}
	} else {
		log.Info("Training an already initialized model")
	}

	pre, vec := m.Preprocessor(), m.Vectorizer()
	vectorize := func(p data.Pair) (data.SequencePair, error) {
		return vec.Vectorize(pre.Process(p)), nil
	}
	trainSet := data.NewPipelineDataset(train, vectorize, t.batcher)
	if cbs == nil {
		if cbs, err = t.defaultCallbacks(m, val, vectorize); err != nil {
			return err
		}
	}

	t.setPhase(PhaseTraining)
	logs := callbacks.Logs{}
	epoch, batch := 0, 0
	for epoch < numEpochs {
		states := m.InitStates(t.cfg.BatchSize)
		_, err := trainSet.ForEach(func(b data.Batch) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			loss, err := m.TrainStep(b, states, t.loss)
			if err != nil {
				return fmt.Errorf("train step: %w", err)
			}
			batch++
			logs[LossKey] = loss
			t.update(func(s *State) { s.Batch, s.Logs = batch, maps.Clone(logs) })
			log.Debug("Train step", "epoch", epoch, "batch", batch, "loss", loss)
			if batch%t.cfg.StepsPerEpoch != 0 {
				return nil
			}
			if err := t.endEpoch(ctx, m, cbs, epoch, batch, logs); err != nil {
				return err
			}
			epoch++
			t.update(func(s *State) { s.Epoch = epoch })
			if epoch >= numEpochs {
				return data.ErrStop
			}
			return nil
		})
		if err != nil {
			return err
		}
		if batch == 0 {
			return ErrZeroBatches
		}
		log.Debug("Finished iterating over dataset", "batches", batch)
	}
	t.setPhase(PhaseDone)
	log.Info("Training finished", "epochs", epoch, "batches", batch)
	return nil
}

func (t *Trainer) endEpoch(ctx context.Context, m model.Model, cbs []callbacks.Callback, epoch, batch int, logs callbacks.Logs) error {
	t.setPhase(PhaseEvaluating)
	end := &callbacks.EpochEnd{Epoch: epoch, Batch: batch, Logs: logs}
	for _, cb := range cbs {
		if err := cb.OnEpochEnd(ctx, end); err != nil {
			return fmt.Errorf("epoch %d callback: %w", epoch, err)
		}
	}
	if err := m.Save(t.cfg.ModelSavePath); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	logger.FromContext(ctx).Info("Epoch finished", "epoch", epoch, "batch", batch, "logs", logs)
	t.update(func(s *State) { s.Phase, s.Logs = PhaseTraining, maps.Clone(logs) })
	return nil
}

func (t *Trainer) initModel(ctx context.Context, m model.Model, train data.Source) error {
	log := logger.FromContext(ctx)
	pre := t.preprocessor
	if t.vectorizer != nil {
		return m.Init(pre, t.vectorizer, nil, nil)
	}

	stream, err := train()
	if err != nil {
		return fmt.Errorf("failed to open training data: %w", err)
	}
	processed := data.Map(stream, func(p data.Pair) (data.Pair, error) {
		return pre.Process(p), nil
	})
	encoder, decoder, err := tokenizer.BuildVocabularies(processed, t.cfg.MaxVocabSize, pre.Tokens()...)
	if err != nil {
		return err
	}
	log.Info("Built vocabularies", "encoder", encoder.Size(), "decoder", decoder.Size())

	var encW, decW *embedding.Matrix
	if t.cfg.EmbeddingPath != "" {
		dim := m.EmbeddingSize()
		log.Info("Loading embedding", "path", t.cfg.EmbeddingPath, "dim", dim)
		table, err := embedding.ReadGlove(t.fs, t.cfg.EmbeddingPath, dim)
		if err != nil {
			return err
		}
		encW = embedding.ToMatrix(table, encoder, dim)
		decW = embedding.ToMatrix(table, decoder, dim)
		log.Info("Unknown embedding tokens",
			"encoder", embedding.Unknown(table, encoder),
			"decoder", embedding.Unknown(table, decoder))
	}
	return m.Init(pre, tokenizer.NewVectorizer(encoder, decoder), encW, decW)
}

func (t *Trainer) defaultCallbacks(
	m model.Model,
	val data.Source,
	vectorize func(data.Pair) (data.SequencePair, error),
) ([]callbacks.Callback, error) {
	metrics, err := callbacks.NewMetrics(t.registerer, t.fs, t.cfg.LogDir)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return []callbacks.Callback{metrics}, nil
	}
	valSet := data.NewPipelineDataset(val, vectorize, data.SequentialBatcher{BatchSize: t.cfg.BatchSize})
	return []callbacks.Callback{
		&callbacks.Evaluation{
			Model:         m,
			Scorers:       t.scorers,
			Data:          val,
			PrintExamples: t.cfg.NumPrintPredictions,
		},
		&callbacks.Validation{
			Model:     m,
			Dataset:   valSet,
			Loss:      t.loss,
			BatchSize: t.cfg.BatchSize,
		},
		&callbacks.ModelCheckpoint{
			Path:    t.cfg.BestModelPath(),
			Model:   m,
			Monitor: callbacks.ValidationLossKey,
			Mode:    callbacks.ModeMin,
		},
		metrics,
	}, nil
}
