package tokenizer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary(t *testing.T) {
	t.Run("Should assign dense ids in sorted order after the reserved ids", func(t *testing.T) {
		v := NewVocabulary([]string{"zebra", "apple", "mango", "apple"})

		assert.Equal(t, 5, v.Size())
		assert.Equal(t, 2, v.ID("apple"))
		assert.Equal(t, 3, v.ID("mango"))
		assert.Equal(t, 4, v.ID("zebra"))
		assert.Equal(t, OOVID, v.ID(OOVToken))
		assert.Equal(t, []string{"apple", "mango", "zebra"}, v.Tokens())
	})

	t.Run("Should round trip known tokens and map unknown ones to OOV", func(t *testing.T) {
		v := NewVocabulary([]string{"a", "b"})
		for _, tok := range []string{"a", "b"} {
			got, ok := v.Token(v.ID(tok))
			require.True(t, ok)
			assert.Equal(t, tok, got)
		}
		assert.Equal(t, OOVID, v.ID("missing"))
		assert.False(t, v.Contains("missing"))
		assert.False(t, v.Contains(OOVToken))

		_, ok := v.Token(PadID)
		assert.False(t, ok)
		_, ok = v.Token(99)
		assert.False(t, ok)
	})

	t.Run("Should encode and decode text", func(t *testing.T) {
		v := NewVocabulary([]string{"the", "cat"})
		ids := v.Encode("the dog cat")
		assert.Equal(t, []int{3, OOVID, 2}, ids)
		assert.Equal(t, "the <unk> cat", v.Decode(append(ids, PadID, PadID)))
	})

	t.Run("Should survive a JSON round trip", func(t *testing.T) {
		v := NewVocabulary([]string{"x", "y", "z"})
		raw, err := json.Marshal(v)
		require.NoError(t, err)

		var restored Vocabulary
		require.NoError(t, json.Unmarshal(raw, &restored))
		assert.Equal(t, v.Tokens(), restored.Tokens())
		assert.Equal(t, v.ID("y"), restored.ID("y"))
	})
}

func corpus(pairs ...data.Pair) data.Stream[data.Pair] {
	return data.FromSlice(pairs)
}

func TestBuildVocabularies(t *testing.T) {
	pairs := []data.Pair{
		{Source: "<start> a a b c <end>", Target: "<start> x y <end>"},
		{Source: "<start> a b d <end>", Target: "<start> x z <end>"},
		{Source: "<start> e <end>", Target: "<start> x <end>"},
	}

	t.Run("Should keep the most frequent tokens plus reserved tokens per side", func(t *testing.T) {
		enc, dec, err := BuildVocabularies(corpus(pairs...), 4, "<start>", "<end>")
		require.NoError(t, err)

		// source counts: <start>3 <end>3 a3 b2, then c d e tie at 1
		assert.Equal(t, []string{"<end>", "<start>", "a", "b"}, enc.Tokens())
		assert.False(t, enc.Contains("c"))
		// target counts: <start>3 x3 <end>3, y z tie at 1, y seen first
		assert.Equal(t, []string{"<end>", "<start>", "x", "y"}, dec.Tokens())
	})

	t.Run("Should break ties by first-seen order", func(t *testing.T) {
		enc, _, err := BuildVocabularies(corpus(data.Pair{Source: "q w e r t", Target: "t"}), 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"q", "w"}, enc.Tokens())
	})

	t.Run("Should always include reserved tokens even beyond the cap", func(t *testing.T) {
		enc, dec, err := BuildVocabularies(corpus(pairs...), 1, "<start>", "<end>")
		require.NoError(t, err)
		assert.True(t, enc.Contains("<start>"))
		assert.True(t, enc.Contains("<end>"))
		assert.LessOrEqual(t, enc.Size(), 1+2+FirstTokenID)
		assert.LessOrEqual(t, dec.Size(), 1+2+FirstTokenID)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		enc1, dec1, err := BuildVocabularies(corpus(pairs...), 3, "<start>", "<end>")
		require.NoError(t, err)
		enc2, dec2, err := BuildVocabularies(corpus(pairs...), 3, "<start>", "<end>")
		require.NoError(t, err)
		assert.Equal(t, enc1, enc2)
		assert.Equal(t, dec1, dec2)
	})

	t.Run("Should fail on an empty corpus", func(t *testing.T) {
		_, _, err := BuildVocabularies(corpus(), 10)
		assert.ErrorIs(t, err, ErrEmptyCorpus)
	})

	t.Run("Should reject a non-positive size", func(t *testing.T) {
		_, _, err := BuildVocabularies(corpus(pairs...), 0)
		assert.Error(t, err)
	})

	t.Run("Should propagate stream errors", func(t *testing.T) {
		boom := errors.New("disk on fire")
		failing := data.Map(corpus(pairs...), func(data.Pair) (data.Pair, error) { return data.Pair{}, boom })
		_, _, err := BuildVocabularies(failing, 10)
		assert.ErrorIs(t, err, boom)
	})
}

func TestVectorizer(t *testing.T) {
	enc := NewVocabulary([]string{"<start>", "<end>", "hello", "world"})
	dec := NewVocabulary([]string{"<start>", "<end>", "hi"})

	t.Run("Should map both sides with their own vocabulary", func(t *testing.T) {
		v := NewVectorizer(enc, dec)
		got := v.Vectorize(data.Pair{Source: "<start> hello there <end>", Target: "<start> hi world <end>"})
		assert.Equal(t, []int{enc.ID("<start>"), enc.ID("hello"), OOVID, enc.ID("<end>")}, got.Source)
		assert.Equal(t, []int{dec.ID("<start>"), dec.ID("hi"), OOVID, dec.ID("<end>")}, got.Target)
		assert.Equal(t, "<start> hi <unk> <end>", v.DecodeOutput(got.Target))
	})

	t.Run("Should truncate to the configured lengths", func(t *testing.T) {
		v := &Vectorizer{Encoder: enc, Decoder: dec, MaxInputLen: 2, MaxOutputLen: 1}
		got := v.Vectorize(data.Pair{Source: "hello world hello", Target: "hi hi"})
		assert.Len(t, got.Source, 2)
		assert.Len(t, got.Target, 1)
	})

	t.Run("Should report vocabulary sizes", func(t *testing.T) {
		v := NewVectorizer(enc, dec)
		assert.Equal(t, 6, v.EncodingDim())
		assert.Equal(t, 5, v.DecodingDim())
	})
}
