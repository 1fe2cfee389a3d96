package autograd

import (
	"math"
)

// Value is a scalar node in a computation graph.
type Value struct {
	Data       float64   // forward value
	Grad       float64   // accumulated by Backward
	children   []*Value  // inputs of the op that produced this node
	localGrads []float64 // ∂self/∂child per child
}

// NewValue creates a leaf Value.
func NewValue(data float64) *Value {
	return &Value{Data: data}
}

// Add returns self + other.
func (v *Value) Add(other *Value) *Value {
	return &Value{
		Data:       v.Data + other.Data,
		children:   []*Value{v, other},
		localGrads: []float64{1, 1},
	}
}

// Mul returns self * other.
func (v *Value) Mul(other *Value) *Value {
	return &Value{
		Data:       v.Data * other.Data,
		children:   []*Value{v, other},
		localGrads: []float64{other.Data, v.Data},
	}
}

// Scale returns self * c for a constant c.
func (v *Value) Scale(c float64) *Value {
	return &Value{
		Data:       v.Data * c,
		children:   []*Value{v},
		localGrads: []float64{c},
	}
}

// Sub returns self - other.
func (v *Value) Sub(other *Value) *Value {
	return v.Add(other.Scale(-1))
}

// Exp returns e^self.
func (v *Value) Exp() *Value {
	result := math.Exp(v.Data)
	return &Value{
		Data:       result,
		children:   []*Value{v},
		localGrads: []float64{result},
	}
}

// Log returns ln(self).
func (v *Value) Log() *Value {
	return &Value{
		Data:       math.Log(v.Data),
		children:   []*Value{v},
		localGrads: []float64{1.0 / v.Data},
	}
}

// Tanh returns tanh(self); ∂tanh(x)/∂x = 1 - tanh(x)².
func (v *Value) Tanh() *Value {
	t := math.Tanh(v.Data)
	return &Value{
		Data:       t,
		children:   []*Value{v},
		localGrads: []float64{1 - t*t},
	}
}

// Backward propagates gradients from this node, treated as the loss, to every
// node it depends on.
func (v *Value) Backward() {
	// Iterative DFS; recursion overflows on long unrolled sequences.
	topo := make([]*Value, 0, 4096)
	visited := make(map[*Value]struct{}, 4096)

	type stackItem struct {
		node     *Value
		expanded bool
	}
	stack := []stackItem{{v, false}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.expanded {
			topo = append(topo, item.node)
			continue
		}
		if _, ok := visited[item.node]; ok {
			continue
		}
		visited[item.node] = struct{}{}

		stack = append(stack, stackItem{item.node, true})
		for _, child := range item.node.children {
			if _, ok := visited[child]; !ok {
				stack = append(stack, stackItem{child, false})
			}
		}
	}

	v.Grad = 1
	for i := len(topo) - 1; i >= 0; i-- {
		node := topo[i]
		for j, child := range node.children {
			child.Grad += node.Grad * node.localGrads[j]
		}
	}
}

// ZeroGrad resets the gradient.
func (v *Value) ZeroGrad() {
	v.Grad = 0
}

// DotProduct computes Σ a[i]*b[i] as a single node.
func DotProduct(a, b []*Value) *Value {
	if len(a) != len(b) {
		panic("DotProduct: mismatched lengths")
	}

	var sum float64
	n := len(a)
	children := make([]*Value, 2*n)
	localGrads := make([]float64, 2*n)

	for i := 0; i < n; i++ {
		sum += a[i].Data * b[i].Data
		children[2*i] = a[i]
		children[2*i+1] = b[i]
		localGrads[2*i] = b[i].Data
		localGrads[2*i+1] = a[i].Data
	}

	return &Value{
		Data:       sum,
		children:   children,
		localGrads: localGrads,
	}
}

// Sum adds values as a single node.
func Sum(values []*Value) *Value {
	var sum float64
	localGrads := make([]float64, len(values))
	for i, v := range values {
		sum += v.Data
		localGrads[i] = 1
	}
	return &Value{
		Data:       sum,
		children:   values,
		localGrads: localGrads,
	}
}

// Mean averages values as a single node. It panics on an empty slice.
func Mean(values []*Value) *Value {
	if len(values) == 0 {
		panic("Mean: no values")
	}
	return Sum(values).Scale(1 / float64(len(values)))
}

// softmax returns numerically stable probabilities for logits.
func softmax(logits []*Value) []float64 {
	maxVal := logits[0].Data
	for _, v := range logits[1:] {
		if v.Data > maxVal {
			maxVal = v.Data
		}
	}
	probs := make([]float64, len(logits))
	sumExp := 0.0
	for i, v := range logits {
		probs[i] = math.Exp(v.Data - maxVal)
		sumExp += probs[i]
	}
	for i := range probs {
		probs[i] /= sumExp
	}
	return probs
}

// FusedSoftmax computes softmax over logits with one node per output.
// d(softmax_i)/d(logit_j) = softmax_i * (δij - softmax_j).
func FusedSoftmax(logits []*Value) []*Value {
	n := len(logits)
	probs := softmax(logits)

	out := make([]*Value, n)
	for i := 0; i < n; i++ {
		localGrads := make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				localGrads[j] = probs[i] * (1 - probs[j])
			} else {
				localGrads[j] = -probs[i] * probs[j]
			}
		}
		out[i] = &Value{
			Data:       probs[i],
			children:   logits,
			localGrads: localGrads,
		}
	}
	return out
}

// CrossEntropy returns -log(softmax(logits)[target]) as a single node.
// ∂/∂logit_j = softmax_j - δ(j, target).
func CrossEntropy(logits []*Value, target int) *Value {
	probs := softmax(logits)
	localGrads := make([]float64, len(logits))
	for j, p := range probs {
		localGrads[j] = p
	}
	localGrads[target] -= 1
	return &Value{
		Data:       -math.Log(max(probs[target], 1e-12)),
		children:   logits,
		localGrads: localGrads,
	}
}

// Data extracts the forward values of a slice.
func Data(values []*Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Data
	}
	return out
}
