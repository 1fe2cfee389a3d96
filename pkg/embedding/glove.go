// Package embedding reads pretrained word vectors and projects them onto a
// vocabulary.
package embedding

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
	"github.com/spf13/afero"
)

// ErrDimensionMismatch is returned for a vector of unexpected length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Table maps tokens to their pretrained vectors.
type Table map[string][]float64

// ReadGlove parses a GloVe text file: one "token v1 ... vdim" entry per line.
func ReadGlove(fsys afero.Fs, path string, dim int) (Table, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding file: %w", err)
	}
	defer file.Close()

	table := make(Table)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields)-1 != dim {
			return nil, fmt.Errorf("%s:%d: got %d values, want %d: %w",
				path, line, len(fields)-1, dim, ErrDimensionMismatch)
		}
		vec := make([]float64, dim)
		for i, f := range fields[1:] {
			vec[i], err = strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
		}
		table[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read embedding file: %w", err)
	}
	return table, nil
}

// Matrix holds one optional row per vocabulary id. A nil row means the
// model keeps its own initialization for that id.
type Matrix struct {
	Dim  int
	Rows [][]float64
}

// ToMatrix projects table onto vocab.
func ToMatrix(table Table, vocab *tokenizer.Vocabulary, dim int) *Matrix {
	m := &Matrix{Dim: dim, Rows: make([][]float64, vocab.Size())}
	for _, tok := range vocab.Tokens() {
		if vec, ok := table[tok]; ok && len(vec) == dim {
			m.Rows[vocab.ID(tok)] = vec
		}
	}
	return m
}

// Known counts rows with a pretrained vector.
func (m *Matrix) Known() int {
	n := 0
	for _, row := range m.Rows {
		if row != nil {
			n++
		}
	}
	return n
}

// Unknown counts vocabulary tokens absent from table.
func Unknown(table Table, vocab *tokenizer.Vocabulary) int {
	n := 0
	for _, tok := range vocab.Tokens() {
		if _, ok := table[tok]; !ok {
			n++
		}
	}
	return n
}
