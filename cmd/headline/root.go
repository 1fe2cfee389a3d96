package main

import (
	"fmt"
	"os"

	"github.com/joelsearcy/headliner-go/internal/config"
	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/mattn/go-isatty"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	fs    afero.Fs
	cfg   *config.Config
	runID string
	log   logger.Logger
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-json":        "log.json",
	"batch-size":      "training.batch_size",
	"steps-per-epoch": "training.steps_per_epoch",
	"max-vocab-size":  "training.max_vocab_size",
	"embedding-path":  "training.embedding_path",
	"model-save-path": "training.model_save_path",
	"log-dir":         "training.log_dir",
	"seed":            "training.seed",
	"train":           "data.train",
	"val":             "data.val",
	"epochs":          "data.num_epochs",
}

func newRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}
	root := &cobra.Command{
		Use:           "headline",
		Short:         "Train and run headline summarizers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "Path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().Bool("log-json", false, "Log JSON lines (default when stderr is not a terminal)")

	root.AddCommand(newTrainCmd(a), newPredictCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(a.fs, path, flagOverrides(cmd.Flags()))
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-json") && !isTerminal(os.Stderr) {
		cfg.Log.JSON = true
	}
	a.runID = ksuid.New().String()
	cfg.Resolve(os.TempDir(), a.runID)
	a.cfg = cfg

	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	a.log = logger.NewLogger(logCfg).With("run", a.runID)
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), a.log))
	return nil
}

// flagOverrides collects the flags set on the command line keyed by their
// configuration path.
func flagOverrides(flags *pflag.FlagSet) map[string]any {
	overrides := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			overrides[key] = sv.GetSlice()
			return
		}
		overrides[key] = f.Value.String()
	})
	return overrides
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
