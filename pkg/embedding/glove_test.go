package embedding

import (
	"testing"

	"github.com/joelsearcy/headliner-go/pkg/tokenizer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGlove(t *testing.T) {
	t.Run("Should parse token vectors", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/glove.txt", []byte("the 0.1 0.2\ncat -1 2.5\n\n"), 0o644))

		table, err := ReadGlove(fs, "/glove.txt", 2)
		require.NoError(t, err)
		assert.Equal(t, Table{"the": {0.1, 0.2}, "cat": {-1, 2.5}}, table)
	})

	t.Run("Should reject vectors of the wrong size", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/glove.txt", []byte("the 0.1 0.2 0.3\n"), 0o644))

		_, err := ReadGlove(fs, "/glove.txt", 2)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("Should propagate missing files", func(t *testing.T) {
		_, err := ReadGlove(afero.NewMemMapFs(), "/nope.txt", 2)
		assert.Error(t, err)
	})
}

func TestToMatrix(t *testing.T) {
	t.Run("Should fill rows for known tokens only", func(t *testing.T) {
		vocab := tokenizer.NewVocabulary([]string{"cat", "dog", "the"})
		table := Table{"the": {1, 1}, "cat": {2, 2}, "bird": {3, 3}}

		m := ToMatrix(table, vocab, 2)
		require.Len(t, m.Rows, vocab.Size())
		assert.Equal(t, []float64{2, 2}, m.Rows[vocab.ID("cat")])
		assert.Equal(t, []float64{1, 1}, m.Rows[vocab.ID("the")])
		assert.Nil(t, m.Rows[vocab.ID("dog")])
		assert.Nil(t, m.Rows[tokenizer.PadID])
		assert.Nil(t, m.Rows[tokenizer.OOVID])
		assert.Equal(t, 2, m.Known())
		assert.Equal(t, 1, Unknown(table, vocab))
	})
}
