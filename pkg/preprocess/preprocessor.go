package preprocess

import (
	"regexp"
	"strings"

	"github.com/joelsearcy/headliner-go/pkg/data"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultStartToken = "<start>"
	DefaultEndToken   = "<end>"
)

var (
	digitPattern       = regexp.MustCompile(`\d`)
	punctuationPattern = regexp.MustCompile(`([!.?,])`)
	filterPattern      = regexp.MustCompile("[\"$%&()*+/:;<=>@\\[\\\\\\]^_`{|}~\t\n]")
)

// Preprocessor normalizes raw text pairs and wraps them in boundary tokens.
// It holds no mutable state and is safe for concurrent use.
type Preprocessor struct {
	StartToken       string `json:"start_token"`
	EndToken         string `json:"end_token"`
	LowerCase        bool   `json:"lower_case"`
	HashNumbers      bool   `json:"hash_numbers"`
	AddInputStartEnd bool   `json:"add_input_start_end"`
}

// Option customizes a Preprocessor.
type Option func(*Preprocessor)

// WithTokens overrides the boundary tokens.
func WithTokens(start, end string) Option {
	return func(p *Preprocessor) {
		p.StartToken = start
		p.EndToken = end
	}
}

// WithoutLowerCase keeps the original casing.
func WithoutLowerCase() Option {
	return func(p *Preprocessor) { p.LowerCase = false }
}

// WithoutNumberHashing keeps digits.
func WithoutNumberHashing() Option {
	return func(p *Preprocessor) { p.HashNumbers = false }
}

// WithoutInputBoundaries leaves the source side unwrapped.
func WithoutInputBoundaries() Option {
	return func(p *Preprocessor) { p.AddInputStartEnd = false }
}

// New creates a Preprocessor with lower-casing, number hashing and boundary
// tokens on both sides enabled.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		StartToken:       DefaultStartToken,
		EndToken:         DefaultEndToken,
		LowerCase:        true,
		HashNumbers:      true,
		AddInputStartEnd: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process normalizes both sides of a pair. The target side is always wrapped
// in boundary tokens.
func (p *Preprocessor) Process(pair data.Pair) data.Pair {
	source := p.normalize(pair.Source)
	if p.AddInputStartEnd {
		source = p.wrap(source)
	}
	return data.Pair{
		Source: source,
		Target: p.wrap(p.normalize(pair.Target)),
	}
}

// ProcessInput normalizes a single source text, as used for prediction.
func (p *Preprocessor) ProcessInput(text string) string {
	return p.Process(data.Pair{Source: text}).Source
}

// Tokens returns the boundary tokens.
func (p *Preprocessor) Tokens() []string {
	return []string{p.StartToken, p.EndToken}
}

func (p *Preprocessor) normalize(text string) string {
	text = norm.NFKC.String(text)
	if p.LowerCase {
		text = cases.Lower(language.Und).String(text)
	}
	if p.HashNumbers {
		text = digitPattern.ReplaceAllString(text, "#")
	}
	text = punctuationPattern.ReplaceAllString(text, " $1 ")
	text = filterPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func (p *Preprocessor) wrap(text string) string {
	if text == "" {
		return p.StartToken + " " + p.EndToken
	}
	return p.StartToken + " " + text + " " + p.EndToken
}
