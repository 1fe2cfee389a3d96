package optim

import (
	"math"
	"testing"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
	"github.com/stretchr/testify/assert"
)

func TestAdam_Step(t *testing.T) {
	t.Run("Should minimize a quadratic", func(t *testing.T) {
		x := autograd.NewValue(3)
		opt := NewAdam(1, 0.1)
		for range 500 {
			loss := x.Mul(x)
			loss.Backward()
			opt.Step([]*autograd.Value{x})
		}
		assert.InDelta(t, 0, x.Data, 0.05)
		assert.Equal(t, 500, opt.Steps())
	})

	t.Run("Should zero gradients after the update", func(t *testing.T) {
		x := autograd.NewValue(1)
		x.Grad = 2
		NewAdam(1, 0.01).Step([]*autograd.Value{x})
		assert.Zero(t, x.Grad)
	})

	t.Run("Should clip large gradients by global norm", func(t *testing.T) {
		opt := NewAdam(2, 0.01)
		opt.ClipNorm = 1
		params := []*autograd.Value{autograd.NewValue(0), autograd.NewValue(0)}
		params[0].Grad, params[1].Grad = 30, 40
		assert.InDelta(t, 1.0/50, opt.clipScale(params), 1e-12)

		params[0].Grad, params[1].Grad = 0.3, 0.4
		assert.Equal(t, 1.0, opt.clipScale(params))
	})

	t.Run("Should reset state", func(t *testing.T) {
		opt := NewAdam(1, 0.01)
		x := autograd.NewValue(1)
		x.Grad = 1
		opt.Step([]*autograd.Value{x})
		opt.Reset()
		assert.Zero(t, opt.Steps())
		assert.False(t, math.IsNaN(x.Data))
	})
}
