package train

import (
	"fmt"
)

// Config holds the trainer settings. Paths have no implicit defaults; the
// caller decides where a run writes.
type Config struct {
	BatchSize                  int    `koanf:"batch_size" validate:"gt=0"`
	MaxVocabSize               int    `koanf:"max_vocab_size" validate:"gt=0"`
	EmbeddingPath              string `koanf:"embedding_path"`
	StepsPerEpoch              int    `koanf:"steps_per_epoch" validate:"gt=0"`
	LogDir                     string `koanf:"log_dir"`
	ModelSavePath              string `koanf:"model_save_path"`
	BucketingBufferSizeBatches int    `koanf:"bucketing_buffer_size_batches" validate:"gt=0"`
	BucketingBatchesToBucket   int    `koanf:"bucketing_batches_to_bucket" validate:"gt=0,ltefield=BucketingBufferSizeBatches"`
	NumPrintPredictions        int    `koanf:"num_print_predictions" validate:"gte=0"`
	Seed                       uint64 `koanf:"seed"`
}

// DefaultConfig returns the trainer defaults: batches of 16, 500 steps per
// epoch and bucketing over a 10000 batch buffer.
func DefaultConfig() Config {
	return Config{
		BatchSize:                  16,
		MaxVocabSize:               200000,
		StepsPerEpoch:              500,
		BucketingBufferSizeBatches: 10000,
		BucketingBatchesToBucket:   100,
		NumPrintPredictions:        5,
		Seed:                       42,
	}
}

// BestModelPath is where the default checkpoint callback keeps the model with
// the lowest validation loss.
func (c Config) BestModelPath() string {
	if c.ModelSavePath == "" {
		return ""
	}
	return c.ModelSavePath + "_best"
}

func (c Config) validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.MaxVocabSize <= 0:
		return fmt.Errorf("max vocabulary size must be positive, got %d", c.MaxVocabSize)
	case c.StepsPerEpoch <= 0:
		return fmt.Errorf("steps per epoch must be positive, got %d", c.StepsPerEpoch)
	case c.ModelSavePath == "":
		return fmt.Errorf("model save path is required")
	}
	return nil
}
