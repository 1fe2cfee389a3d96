package autograd

import (
	"math"
	"testing"
)

const eps = 1e-6
const tolerance = 1e-5

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// numericalGradient estimates ∂f/∂x[i] by central differences.
func numericalGradient(f func([]float64) float64, x []float64, i int) float64 {
	plus := append([]float64(nil), x...)
	minus := append([]float64(nil), x...)
	plus[i] += eps
	minus[i] -= eps
	return (f(plus) - f(minus)) / (2 * eps)
}

func leaves(x []float64) []*Value {
	out := make([]*Value, len(x))
	for i, d := range x {
		out[i] = NewValue(d)
	}
	return out
}

// checkGradients compares Backward against finite differences for build.
func checkGradients(t *testing.T, name string, x []float64, build func([]*Value) *Value) {
	t.Helper()
	in := leaves(x)
	build(in).Backward()
	f := func(x []float64) float64 { return build(leaves(x)).Data }
	for i := range x {
		want := numericalGradient(f, x, i)
		if !almostEqual(in[i].Grad, want, tolerance) {
			t.Errorf("%s: grad[%d] = %v, numerical %v", name, i, in[i].Grad, want)
		}
	}
}

func TestBasicOps(t *testing.T) {
	a := NewValue(2.0)
	b := NewValue(3.0)
	c := a.Mul(b).Add(a.Sub(b))

	// c = a*b + a - b = 6 + 2 - 3
	if c.Data != 5.0 {
		t.Fatalf("expected 5.0, got %v", c.Data)
	}
	c.Backward()
	// dc/da = b + 1, dc/db = a - 1
	if a.Grad != 4.0 {
		t.Errorf("grad a: expected 4.0, got %v", a.Grad)
	}
	if b.Grad != 1.0 {
		t.Errorf("grad b: expected 1.0, got %v", b.Grad)
	}
}

func TestReusedVariable(t *testing.T) {
	a := NewValue(3.0)
	b := a.Mul(a).Add(a)
	b.Backward()

	// d(a²+a)/da = 2a + 1
	if a.Grad != 7.0 {
		t.Errorf("expected 7.0, got %v", a.Grad)
	}
}

func TestScale(t *testing.T) {
	checkGradients(t, "scale", []float64{1.5}, func(v []*Value) *Value {
		return v[0].Scale(-2.5)
	})
}

func TestExpLog(t *testing.T) {
	checkGradients(t, "exp", []float64{0.7}, func(v []*Value) *Value { return v[0].Exp() })
	checkGradients(t, "log", []float64{2.3}, func(v []*Value) *Value { return v[0].Log() })
}

func TestTanh(t *testing.T) {
	for _, x := range []float64{-2, -0.3, 0, 0.8, 3} {
		v := NewValue(x)
		out := v.Tanh()
		if !almostEqual(out.Data, math.Tanh(x), 1e-12) {
			t.Errorf("tanh(%v) = %v", x, out.Data)
		}
		checkGradients(t, "tanh", []float64{x}, func(v []*Value) *Value { return v[0].Tanh() })
	}
}

func TestDotProduct(t *testing.T) {
	x := []float64{0.5, -1, 2, 0.25}
	checkGradients(t, "dot", x, func(v []*Value) *Value {
		return DotProduct(v[:2], v[2:])
	})
}

func TestSumMean(t *testing.T) {
	x := []float64{1, 2, 3, 6}
	m := Mean(leaves(x))
	if m.Data != 3 {
		t.Errorf("mean: expected 3, got %v", m.Data)
	}
	checkGradients(t, "mean", x, func(v []*Value) *Value {
		return Mean([]*Value{v[0].Mul(v[1]), v[2], v[3].Tanh()})
	})
}

func TestFusedSoftmax(t *testing.T) {
	probs := FusedSoftmax(leaves([]float64{1, 2, 3}))
	total := 0.0
	for _, p := range probs {
		total += p.Data
	}
	if !almostEqual(total, 1, 1e-12) {
		t.Errorf("softmax should sum to 1, got %v", total)
	}
	checkGradients(t, "softmax", []float64{0.1, -0.4, 1.2}, func(v []*Value) *Value {
		p := FusedSoftmax(v)
		return p[0].Add(p[2].Scale(3))
	})
}

func TestCrossEntropy(t *testing.T) {
	logits := []float64{0.2, 1.5, -0.7, 0.1}
	ce := CrossEntropy(leaves(logits), 1)

	// reference: -log(softmax[1]) via the unfused path
	p := FusedSoftmax(leaves(logits))
	want := -math.Log(p[1].Data)
	if !almostEqual(ce.Data, want, 1e-9) {
		t.Errorf("cross entropy: expected %v, got %v", want, ce.Data)
	}
	checkGradients(t, "cross entropy", logits, func(v []*Value) *Value {
		return CrossEntropy(v, 2)
	})
}

func TestNeuronSimulation(t *testing.T) {
	// tanh(w·x + b), the building block of the recurrent cells
	x := []float64{0.5, -1.5, 0.3, 0.9, 0.1}
	checkGradients(t, "neuron", x, func(v []*Value) *Value {
		return DotProduct(v[:2], v[2:4]).Add(v[4]).Tanh()
	})
}
