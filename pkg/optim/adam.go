package optim

import (
	"math"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
)

// Adam implements the Adam optimizer with optional global-norm gradient
// clipping.
type Adam struct {
	LR       float64 // learning rate
	Beta1    float64 // decay rate for the first moment
	Beta2    float64 // decay rate for the second moment
	Epsilon  float64
	ClipNorm float64 // zero disables clipping

	m []float64
	v []float64
	t int
}

// NewAdam creates an optimizer for numParams parameters with the usual
// defaults: beta1=0.9, beta2=0.999, eps=1e-7, clip norm 5.
func NewAdam(numParams int, lr float64) *Adam {
	return &Adam{
		LR:       lr,
		Beta1:    0.9,
		Beta2:    0.999,
		Epsilon:  1e-7,
		ClipNorm: 5,
		m:        make([]float64, numParams),
		v:        make([]float64, numParams),
	}
}

// Step applies one update from the accumulated gradients and zeroes them.
func (opt *Adam) Step(params []*autograd.Value) {
	opt.t++
	bc1 := 1 - math.Pow(opt.Beta1, float64(opt.t))
	bc2 := 1 - math.Pow(opt.Beta2, float64(opt.t))
	scale := opt.clipScale(params)

	for i, p := range params {
		g := p.Grad * scale
		opt.m[i] = opt.Beta1*opt.m[i] + (1-opt.Beta1)*g
		opt.v[i] = opt.Beta2*opt.v[i] + (1-opt.Beta2)*g*g
		mHat := opt.m[i] / bc1
		vHat := opt.v[i] / bc2
		p.Data -= opt.LR * mHat / (math.Sqrt(vHat) + opt.Epsilon)
		p.Grad = 0
	}
}

// clipScale returns the factor that brings the global gradient norm under ClipNorm.
func (opt *Adam) clipScale(params []*autograd.Value) float64 {
	if opt.ClipNorm <= 0 {
		return 1
	}
	var sq float64
	for _, p := range params {
		sq += p.Grad * p.Grad
	}
	norm := math.Sqrt(sq)
	if norm <= opt.ClipNorm {
		return 1
	}
	return opt.ClipNorm / norm
}

// Steps returns the number of updates applied so far.
func (opt *Adam) Steps() int {
	return opt.t
}

// Reset clears the moment estimates.
func (opt *Adam) Reset() {
	clear(opt.m)
	clear(opt.v)
	opt.t = 0
}
