package tokenizer

import (
	"github.com/joelsearcy/headliner-go/pkg/data"
)

// Vectorizer maps preprocessed pairs to id sequences. Sequences longer than
// MaxInputLen / MaxOutputLen are truncated; zero means unlimited.
type Vectorizer struct {
	Encoder      *Vocabulary `json:"encoder"`
	Decoder      *Vocabulary `json:"decoder"`
	MaxInputLen  int         `json:"max_input_len,omitempty"`
	MaxOutputLen int         `json:"max_output_len,omitempty"`
}

// NewVectorizer creates a vectorizer without length limits.
func NewVectorizer(encoder, decoder *Vocabulary) *Vectorizer {
	return &Vectorizer{Encoder: encoder, Decoder: decoder}
}

// Vectorize maps both sides of p.
func (v *Vectorizer) Vectorize(p data.Pair) data.SequencePair {
	return data.SequencePair{
		Source: v.EncodeInput(p.Source),
		Target: v.EncodeOutput(p.Target),
	}
}

// EncodeInput maps source text with the encoder vocabulary.
func (v *Vectorizer) EncodeInput(text string) []int {
	return truncate(v.Encoder.Encode(text), v.MaxInputLen)
}

// EncodeOutput maps target text with the decoder vocabulary.
func (v *Vectorizer) EncodeOutput(text string) []int {
	return truncate(v.Decoder.Encode(text), v.MaxOutputLen)
}

// DecodeOutput maps decoder ids back to text.
func (v *Vectorizer) DecodeOutput(ids []int) string {
	return v.Decoder.Decode(ids)
}

// EncodingDim is the encoder vocabulary size.
func (v *Vectorizer) EncodingDim() int {
	return v.Encoder.Size()
}

// DecodingDim is the decoder vocabulary size.
func (v *Vectorizer) DecodingDim() int {
	return v.Decoder.Size()
}

func truncate(ids []int, n int) []int {
	if n > 0 && len(ids) > n {
		return ids[:n]
	}
	return ids
}
