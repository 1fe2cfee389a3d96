package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/joelsearcy/headliner-go/pkg/autograd"
	"github.com/joelsearcy/headliner-go/pkg/embedding"
)

// FlatMatrix stores a 2D matrix as a contiguous row-major slice.
type FlatMatrix struct {
	Data       []*autograd.Value
	Rows, Cols int
}

// NewMatrix creates a matrix with Gaussian-initialized values.
func NewMatrix(rows, cols int, std float64, rng *rand.Rand) *FlatMatrix {
	data := make([]*autograd.Value, rows*cols)
	for i := range data {
		data[i] = autograd.NewValue(rng.NormFloat64() * std)
	}
	return &FlatMatrix{Data: data, Rows: rows, Cols: cols}
}

// At returns the element at (row, col).
func (m *FlatMatrix) At(row, col int) *autograd.Value {
	return m.Data[row*m.Cols+col]
}

// Row returns a slice view of row.
func (m *FlatMatrix) Row(row int) []*autograd.Value {
	start := row * m.Cols
	return m.Data[start : start+m.Cols]
}

// Values copies the raw weights out.
func (m *FlatMatrix) Values() []float64 {
	return autograd.Data(m.Data)
}

// SetValues overwrites the raw weights.
func (m *FlatMatrix) SetValues(values []float64) error {
	if len(values) != len(m.Data) {
		return fmt.Errorf("matrix %dx%d: got %d values", m.Rows, m.Cols, len(values))
	}
	for i, v := range values {
		m.Data[i].Data = v
	}
	return nil
}

// Override copies pretrained rows into m, skipping nil rows.
func (m *FlatMatrix) Override(src *embedding.Matrix) error {
	if src == nil {
		return nil
	}
	if src.Dim != m.Cols {
		return fmt.Errorf("pretrained embedding dim %d, model uses %d: %w",
			src.Dim, m.Cols, embedding.ErrDimensionMismatch)
	}
	for id, row := range src.Rows {
		if row == nil || id >= m.Rows {
			continue
		}
		for j, v := range row {
			m.At(id, j).Data = v
		}
	}
	return nil
}

// Params holds all trainable weights of the Summarizer.
type Params struct {
	EncEmb *FlatMatrix // [encoder vocab, embedding]
	DecEmb *FlatMatrix // [decoder vocab, embedding]
	EncWx  *FlatMatrix // [hidden, embedding]
	EncWh  *FlatMatrix // [hidden, hidden]
	DecWx  *FlatMatrix // [hidden, embedding]
	DecWh  *FlatMatrix // [hidden, hidden]
	Out    *FlatMatrix // [decoder vocab, 2*hidden]

	allParams []*autograd.Value
}

// NewParams creates and initializes all parameters.
func NewParams(encVocab, decVocab, embSize, hidden int, rng *rand.Rand) *Params {
	std := 0.1
	p := &Params{
		EncEmb: NewMatrix(encVocab, embSize, std, rng),
		DecEmb: NewMatrix(decVocab, embSize, std, rng),
		EncWx:  NewMatrix(hidden, embSize, std, rng),
		EncWh:  NewMatrix(hidden, hidden, std, rng),
		DecWx:  NewMatrix(hidden, embSize, std, rng),
		DecWh:  NewMatrix(hidden, hidden, std, rng),
		Out:    NewMatrix(decVocab, 2*hidden, std, rng),
	}
	for _, m := range p.named() {
		p.allParams = append(p.allParams, m.matrix.Data...)
	}
	return p
}

type namedMatrix struct {
	name   string
	matrix *FlatMatrix
}

// named lists the matrices in a fixed order for caching and checkpoints.
func (p *Params) named() []namedMatrix {
	return []namedMatrix{
		{"enc_emb", p.EncEmb},
		{"dec_emb", p.DecEmb},
		{"enc_wx", p.EncWx},
		{"enc_wh", p.EncWh},
		{"dec_wx", p.DecWx},
		{"dec_wh", p.DecWh},
		{"out", p.Out},
	}
}

// AllParams returns the flattened parameter list (cached).
func (p *Params) AllParams() []*autograd.Value {
	return p.allParams
}

// ZeroGrads resets all parameter gradients to 0.
func (p *Params) ZeroGrads() {
	for _, param := range p.allParams {
		param.Grad = 0
	}
}
