package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelsearcy/headliner-go/pkg/model"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyCorpus = "the cat sat on the mat\tcat sat\n" +
	"a dog ran in the park\tdog ran\n" +
	"\n" +
	"the bird sang at dawn\tbird sang\n" +
	"two cats slept all day\tcats slept\n"

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func TestFlagOverrides(t *testing.T) {
	t.Run("Should map only the flags that were set", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("batch-size", 0, "")
		flags.Int("epochs", 0, "")
		flags.StringSlice("train", nil, "")
		flags.String("unrelated", "", "")
		require.NoError(t, flags.Parse([]string{"--batch-size=4", "--train=a.tsv,b/*.tsv", "--unrelated=x"}))

		assert.Equal(t, map[string]any{
			"training.batch_size": "4",
			"data.train":          []string{"a.tsv", "b/*.tsv"},
		}, flagOverrides(flags))
	})
}

func TestTopTokens(t *testing.T) {
	inputs := []string{"a", "b", "c", "d", "e", "f", "g"}

	t.Run("Should order tokens by descending weight", func(t *testing.T) {
		got := topTokens([]float64{0.1, 0.7, 0.2}, inputs, 5)
		assert.Equal(t, []string{"b", "c", "a"}, got)
	})

	t.Run("Should keep at most k tokens", func(t *testing.T) {
		got := topTokens([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}, inputs, 5)
		assert.Equal(t, []string{"g", "f", "e", "d", "c"}, got)
	})

	t.Run("Should keep input order for equal weights", func(t *testing.T) {
		got := topTokens([]float64{0.2, 0.4, 0.2, 0.2}, inputs, 3)
		assert.Equal(t, []string{"b", "a", "c"}, got)
	})

	t.Run("Should ignore weights beyond the input tokens", func(t *testing.T) {
		got := topTokens([]float64{0.1, 0.2, 0.9}, inputs[:2], 5)
		assert.Equal(t, []string{"b", "a"}, got)
	})

	t.Run("Should return nothing for empty weights", func(t *testing.T) {
		assert.Empty(t, topTokens(nil, inputs, 5))
	})
}

func TestTrainAndPredict(t *testing.T) {
	t.Run("Should train save and reload a model", func(t *testing.T) {
		dir := t.TempDir()
		corpus := filepath.Join(dir, "corpus", "train.tsv")
		require.NoError(t, os.MkdirAll(filepath.Dir(corpus), 0o755))
		require.NoError(t, os.WriteFile(corpus, []byte(tinyCorpus), 0o644))
		modelDir := filepath.Join(dir, "model")

		_, _, err := run(t, "train",
			"--train", filepath.Join(dir, "corpus", "*.tsv"),
			"--val", corpus,
			"--epochs", "1",
			"--steps-per-epoch", "2",
			"--batch-size", "2",
			"--model-save-path", modelDir,
			"--log-dir", filepath.Join(dir, "logs"),
		)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(modelDir, "model.json"))
		assert.FileExists(t, filepath.Join(modelDir+"_best", "weights.json"))
		assert.FileExists(t, filepath.Join(dir, "logs", "metrics.jsonl"))

		stdout, _, err := run(t, "predict", "--model", modelDir, "--alignment", "The cat sat!")
		require.NoError(t, err)
		assert.Contains(t, stdout, "input:   <start> the cat sat ! <end>")
		assert.Contains(t, stdout, "summary:")
	})

	t.Run("Should fail without training data", func(t *testing.T) {
		_, _, err := run(t, "train", "--model-save-path", t.TempDir())
		assert.ErrorContains(t, err, "no training data")
	})

	t.Run("Should fail without a model for predict", func(t *testing.T) {
		_, _, err := run(t, "predict", "text")
		assert.ErrorContains(t, err, "--model is required")
	})
}

func TestWritePrediction(t *testing.T) {
	t.Run("Should print the attended tokens per output token and overall", func(t *testing.T) {
		var buf bytes.Buffer
		writePrediction(&buf, model.Prediction{
			PredictedText:     "cat <end>",
			PreprocessedInput: "<start> cat <end>",
			Alignment:         [][]float64{{0.1, 0.8, 0.1}, {0.2, 0.2, 0.6}},
		}, true)
		assert.Equal(t, "input:   <start> cat <end>\n"+
			"summary: cat <end>\n"+
			"  cat <- [cat <start> <end>]\n"+
			"  <end> <- [<end> <start> cat]\n"+
			"  overall: [cat <end> <start>]\n", buf.String())
	})

	t.Run("Should skip the alignment unless asked", func(t *testing.T) {
		var buf bytes.Buffer
		writePrediction(&buf, model.Prediction{
			PredictedText:     "cat <end>",
			PreprocessedInput: "<start> cat <end>",
			Alignment:         [][]float64{{0.1, 0.8, 0.1}},
		}, false)
		assert.Equal(t, "input:   <start> cat <end>\nsummary: cat <end>\n", buf.String())
	})
}
