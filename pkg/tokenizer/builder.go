package tokenizer

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/joelsearcy/headliner-go/pkg/data"
)

// ErrEmptyCorpus is returned when a vocabulary is built from no pairs.
var ErrEmptyCorpus = errors.New("cannot build vocabulary from an empty corpus")

// counter tracks token frequencies together with first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(text string) {
	for _, tok := range strings.Fields(text) {
		if _, seen := c.counts[tok]; !seen {
			c.order = append(c.order, tok)
		}
		c.counts[tok]++
	}
}

// mostCommon returns up to n tokens by descending count. Equal counts keep
// first-seen order.
func (c *counter) mostCommon(n int) []string {
	tokens := slices.Clone(c.order)
	slices.SortStableFunc(tokens, func(a, b string) int {
		return cmp.Compare(c.counts[b], c.counts[a])
	})
	return tokens[:min(n, len(tokens))]
}

// BuildVocabularies makes one full pass over pairs and builds independent
// encoder and decoder vocabularies. Each side keeps its maxSize most frequent
// tokens plus the reserved tokens (typically the boundary tokens).
// The stream is closed before returning.
func BuildVocabularies(pairs data.Stream[data.Pair], maxSize int, reserved ...string) (encoder, decoder *Vocabulary, err error) {
	if maxSize <= 0 {
		_ = pairs.Close()
		return nil, nil, fmt.Errorf("max vocabulary size must be positive, got %d", maxSize)
	}
	source, target := newCounter(), newCounter()
	n, err := data.ForEach(pairs, func(p data.Pair) error {
		source.add(p.Source)
		target.add(p.Target)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count corpus tokens: %w", err)
	}
	if n == 0 {
		return nil, nil, ErrEmptyCorpus
	}
	encoder = NewVocabulary(append(source.mostCommon(maxSize), reserved...))
	decoder = NewVocabulary(append(target.mostCommon(maxSize), reserved...))
	return encoder, decoder, nil
}
