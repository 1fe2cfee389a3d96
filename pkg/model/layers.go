package model

import (
	"math"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
)

// Linear performs matrix-vector multiplication: W @ x
// w is [out_dim, in_dim], x is [in_dim], returns [out_dim].
func Linear(x []*autograd.Value, w *FlatMatrix) []*autograd.Value {
	out := make([]*autograd.Value, w.Rows)
	for i := 0; i < w.Rows; i++ {
		out[i] = autograd.DotProduct(w.Row(i), x)
	}
	return out
}

// Softmax computes softmax with a fused operation.
func Softmax(logits []*autograd.Value) []*autograd.Value {
	return autograd.FusedSoftmax(logits)
}

// RecurrentCell computes tanh(Wx @ x + Wh @ h).
func RecurrentCell(x, h []*autograd.Value, wx, wh *FlatMatrix) []*autograd.Value {
	a := Linear(x, wx)
	b := Linear(h, wh)
	out := make([]*autograd.Value, len(a))
	for i := range a {
		out[i] = a[i].Add(b[i]).Tanh()
	}
	return out
}

// Attention computes scaled dot-product attention of query over keys, which
// also serve as values. It returns the context vector and the weights.
func Attention(query []*autograd.Value, keys [][]*autograd.Value) ([]*autograd.Value, []*autograd.Value) {
	scale := 1 / math.Sqrt(float64(len(query)))
	scores := make([]*autograd.Value, len(keys))
	for t, k := range keys {
		scores[t] = autograd.DotProduct(query, k).Scale(scale)
	}
	weights := Softmax(scores)

	context := make([]*autograd.Value, len(query))
	column := make([]*autograd.Value, len(keys))
	for j := range context {
		for t, k := range keys {
			column[t] = k[j]
		}
		context[j] = autograd.DotProduct(weights, column)
	}
	return context, weights
}

// Constants wraps raw values as graph leaves.
func Constants(values []float64, n int) []*autograd.Value {
	out := make([]*autograd.Value, n)
	for i := range out {
		v := 0.0
		if i < len(values) {
			v = values[i]
		}
		out[i] = autograd.NewValue(v)
	}
	return out
}

// Argmax returns the index of the largest value.
func Argmax(values []*autograd.Value) int {
	best := 0
	for i, v := range values {
		if v.Data > values[best].Data {
			best = i
		}
	}
	return best
}
