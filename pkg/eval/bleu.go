// Package eval scores model predictions against their references.
package eval

import (
	"math"
	"strings"

	"github.com/joelsearcy/headliner-go/pkg/model"
)

// Scorer rates a single prediction; higher is better.
type Scorer interface {
	Score(p model.Prediction) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(p model.Prediction) float64

// Score calls f.
func (f ScorerFunc) Score(p model.Prediction) float64 { return f(p) }

const maxOrder = 4

// Bleu computes sentence-level BLEU-4 of the predicted text against the
// preprocessed target. Precisions above unigrams use add-one smoothing.
type Bleu struct {
	TokensToIgnore []string
}

// NewBleu ignores the given tokens, typically the start and end markers.
func NewBleu(ignore ...string) *Bleu {
	return &Bleu{TokensToIgnore: ignore}
}

// Score compares the predicted text with the preprocessed target.
func (b *Bleu) Score(p model.Prediction) float64 {
	return b.Sentence(b.tokens(p.PredictedText), b.tokens(p.PreprocessedTarget))
}

// Sentence scores candidate against reference token lists.
func (b *Bleu) Sentence(candidate, reference []string) float64 {
	if len(candidate) == 0 || len(reference) == 0 {
		return 0
	}
	logSum := 0.0
	for n := 1; n <= maxOrder; n++ {
		matches, total := overlap(candidate, reference, n)
		var precision float64
		if n == 1 {
			if matches == 0 {
				return 0
			}
			precision = float64(matches) / float64(total)
		} else {
			precision = float64(matches+1) / float64(total+1)
		}
		logSum += math.Log(precision)
	}
	return brevityPenalty(len(candidate), len(reference)) * math.Exp(logSum/maxOrder)
}

func (b *Bleu) tokens(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if !b.ignored(f) {
			out = append(out, f)
		}
	}
	return out
}

func (b *Bleu) ignored(token string) bool {
	for _, t := range b.TokensToIgnore {
		if t == token {
			return true
		}
	}
	return false
}

// overlap returns the clipped n-gram matches and the candidate n-gram count.
func overlap(candidate, reference []string, n int) (matches, total int) {
	ref := ngrams(reference, n)
	for gram, count := range ngrams(candidate, n) {
		total += count
		matches += min(count, ref[gram])
	}
	return matches, total
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

func brevityPenalty(candidate, reference int) float64 {
	if candidate >= reference {
		return 1
	}
	return math.Exp(1 - float64(reference)/float64(candidate))
}
