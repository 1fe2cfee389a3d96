package data

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"slices"
)

// Batcher groups a stream of sequence pairs into batches.
type Batcher interface {
	Generate(upstream Stream[SequencePair]) Stream[Batch]
}

// LengthKey extracts the sort key used for bucketing.
type LengthKey func(SequencePair) int

// SourceLength is the default LengthKey.
func SourceLength(p SequencePair) int {
	return len(p.Source)
}

// BucketConfig configures a BucketGenerator.
type BucketConfig struct {
	BatchSize         int
	BufferSizeBatches int // lookahead buffer, in batches
	BatchesToBucket   int // sort window, in batches
	LengthKey         LengthKey
	Shuffle           bool
	Seed              uint64
}

// DefaultBucketConfig mirrors the trainer defaults.
func DefaultBucketConfig(batchSize int) BucketConfig {
	return BucketConfig{
		BatchSize:         batchSize,
		BufferSizeBatches: 10000,
		BatchesToBucket:   100,
		LengthKey:         SourceLength,
		Shuffle:           true,
		Seed:              42,
	}
}

// BucketGenerator batches similar-length pairs together.
//
// Up to BufferSizeBatches*BatchSize pairs are buffered from upstream. The
// buffer is split into windows of BatchesToBucket*BatchSize pairs, each window
// is sorted by LengthKey and sliced into batches. With Shuffle set, the order
// of the full batches taken from one buffer is permuted; batch contents are
// never reshuffled and a trailing short batch is always emitted last.
//
// The random source is seeded once, so each call to Generate draws a fresh
// permutation while two generators with the same seed emit the same order.
type BucketGenerator struct {
	cfg BucketConfig
	rng *rand.Rand
}

// NewBucketGenerator validates cfg and creates a generator.
func NewBucketGenerator(cfg BucketConfig) (*BucketGenerator, error) {
	switch {
	case cfg.BatchSize <= 0:
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	case cfg.BufferSizeBatches <= 0:
		return nil, fmt.Errorf("buffer size must be positive, got %d batches", cfg.BufferSizeBatches)
	case cfg.BatchesToBucket <= 0:
		return nil, fmt.Errorf("batches to bucket must be positive, got %d", cfg.BatchesToBucket)
	case cfg.BatchesToBucket > cfg.BufferSizeBatches:
		return nil, fmt.Errorf("batches to bucket (%d) exceeds buffer size (%d batches)",
			cfg.BatchesToBucket, cfg.BufferSizeBatches)
	case cfg.BufferSizeBatches > math.MaxInt/cfg.BatchSize:
		return nil, fmt.Errorf("buffer of %d batches of %d pairs overflows int",
			cfg.BufferSizeBatches, cfg.BatchSize)
	}
	if cfg.LengthKey == nil {
		cfg.LengthKey = SourceLength
	}
	return &BucketGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}, nil
}

// Generate lazily buckets upstream.
func (g *BucketGenerator) Generate(upstream Stream[SequencePair]) Stream[Batch] {
	return &bucketStream{gen: g, upstream: upstream}
}

// bucket sorts each window of pairs in place and slices it into batches.
func (g *BucketGenerator) bucket(pairs []SequencePair) []Batch {
	size := g.cfg.BatchSize
	window := g.cfg.BatchesToBucket * size
	batches := make([]Batch, 0, (len(pairs)+size-1)/size)
	for start := 0; start < len(pairs); start += window {
		bucket := pairs[start:min(start+window, len(pairs))]
		slices.SortStableFunc(bucket, func(a, b SequencePair) int {
			return cmp.Compare(g.cfg.LengthKey(a), g.cfg.LengthKey(b))
		})
		for i := 0; i < len(bucket); i += size {
			batches = append(batches, NewBatch(bucket[i:min(i+size, len(bucket))]))
		}
	}
	if g.cfg.Shuffle {
		full := len(batches)
		if full > 0 && batches[full-1].Size() < size {
			full--
		}
		g.rng.Shuffle(full, func(i, j int) {
			batches[i], batches[j] = batches[j], batches[i]
		})
	}
	return batches
}

type bucketStream struct {
	gen       *BucketGenerator
	upstream  Stream[SequencePair]
	buffer    []SequencePair
	pending   []Batch
	exhausted bool
}

func (s *bucketStream) Next() (Batch, error) {
	for len(s.pending) == 0 {
		if s.exhausted {
			return Batch{}, io.EOF
		}
		if err := s.refill(); err != nil {
			return Batch{}, err
		}
	}
	b := s.pending[0]
	s.pending[0] = Batch{}
	s.pending = s.pending[1:]
	return b, nil
}

func (s *bucketStream) refill() error {
	capacity := s.gen.cfg.BufferSizeBatches * s.gen.cfg.BatchSize
	s.buffer = s.buffer[:0]
	for len(s.buffer) < capacity {
		pair, err := s.upstream.Next()
		if errors.Is(err, io.EOF) {
			s.exhausted = true
			break
		}
		if err != nil {
			return err
		}
		s.buffer = append(s.buffer, pair)
	}
	s.pending = s.gen.bucket(s.buffer)
	return nil
}

func (s *bucketStream) Close() error {
	s.exhausted = true
	s.pending = nil
	s.buffer = nil
	return s.upstream.Close()
}

// SequentialBatcher batches pairs in arrival order without sorting.
type SequentialBatcher struct {
	BatchSize int
}

// Generate batches upstream lazily.
func (b SequentialBatcher) Generate(upstream Stream[SequencePair]) Stream[Batch] {
	return &sequentialStream{size: max(b.BatchSize, 1), upstream: upstream}
}

type sequentialStream struct {
	size      int
	upstream  Stream[SequencePair]
	exhausted bool
}

func (s *sequentialStream) Next() (Batch, error) {
	if s.exhausted {
		return Batch{}, io.EOF
	}
	pairs := make([]SequencePair, 0, s.size)
	for len(pairs) < s.size {
		pair, err := s.upstream.Next()
		if errors.Is(err, io.EOF) {
			s.exhausted = true
			break
		}
		if err != nil {
			return Batch{}, err
		}
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		return Batch{}, io.EOF
	}
	return NewBatch(pairs), nil
}

func (s *sequentialStream) Close() error {
	s.exhausted = true
	return s.upstream.Close()
}
