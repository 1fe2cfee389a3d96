package main

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/joelsearcy/headliner-go/pkg/model"
	"github.com/spf13/cobra"
)

func newPredictCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Summarize texts with a saved model",
		Long:  "Summarize each argument, or each line of stdin when no argument is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("model")
			alignment, _ := cmd.Flags().GetBool("alignment")
			if path == "" {
				return errors.New("--model is required")
			}
			m, err := model.Load(a.fs, path)
			if err != nil {
				return err
			}
			texts := args
			if len(texts) == 0 {
				if texts, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			for _, text := range texts {
				pred, err := m.Predict(text, "")
				if err != nil {
					return err
				}
				writePrediction(cmd.OutOrStdout(), pred, alignment)
			}
			return nil
		},
	}
	cmd.Flags().String("model", "", "Directory of a saved model")
	cmd.Flags().Bool("alignment", false, "Print the most attended input tokens for every output token")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}

// Number of attended input tokens listed per output token and over the
// whole summary.
const (
	tokenTopK   = 5
	summaryTopK = 10
)

func writePrediction(w io.Writer, pred model.Prediction, alignment bool) {
	fmt.Fprintf(w, "input:   %s\n", pred.PreprocessedInput)
	fmt.Fprintf(w, "summary: %s\n", pred.PredictedText)
	if !alignment {
		return
	}
	inputs := strings.Fields(pred.PreprocessedInput)
	total := make([]float64, len(inputs))
	for i, out := range strings.Fields(pred.PredictedText) {
		if i >= len(pred.Alignment) {
			break
		}
		weights := pred.Alignment[i]
		for j := range min(len(weights), len(total)) {
			total[j] += weights[j]
		}
		fmt.Fprintf(w, "  %s <- [%s]\n", out, strings.Join(topTokens(weights, inputs, tokenTopK), " "))
	}
	fmt.Fprintf(w, "  overall: [%s]\n", strings.Join(topTokens(total, inputs, summaryTopK), " "))
}

// topTokens returns up to k input tokens ordered by descending weight. Equal
// weights keep input order.
func topTokens(weights []float64, inputs []string, k int) []string {
	idx := make([]int, min(len(weights), len(inputs)))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(weights[b], weights[a])
	})
	tokens := make([]string, min(k, len(idx)))
	for n := range tokens {
		tokens[n] = inputs[idx[n]]
	}
	return tokens
}
