package model

import (
	"math/rand/v2"
	"testing"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
)

// BenchmarkLinear benchmarks the Linear layer with a 16x16 matrix.
func BenchmarkLinear(b *testing.B) {
	rng := rand.New(rand.NewPCG(42, 42))
	w := NewMatrix(16, 16, 0.02, rng)
	x := make([]*autograd.Value, 16)
	for i := range x {
		x[i] = autograd.NewValue(rng.NormFloat64())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Linear(x, w)
	}
}

// BenchmarkAttention benchmarks attention over 40 encoder states.
func BenchmarkAttention(b *testing.B) {
	rng := rand.New(rand.NewPCG(42, 42))
	keys := make([][]*autograd.Value, 40)
	for t := range keys {
		keys[t] = NewMatrix(1, 16, 1, rng).Row(0)
	}
	query := NewMatrix(1, 16, 1, rng).Row(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Attention(query, keys)
	}
}

// BenchmarkTrainStep benchmarks a full forward, backward and update over the toy batch.
func BenchmarkTrainStep(b *testing.B) {
	s, batch := newToyModel(b)
	states := s.InitStates(batch.Size())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.TrainStep(batch, states, MaskedCrossEntropy); err != nil {
			b.Fatal(err)
		}
	}
}
