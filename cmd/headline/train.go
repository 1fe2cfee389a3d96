package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/joelsearcy/headliner-go/pkg/data"
	"github.com/joelsearcy/headliner-go/pkg/model"
	"github.com/joelsearcy/headliner-go/pkg/train"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newTrainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a summarizer on TSV corpora",
		Long: "Train a summarizer on files of source<TAB>target lines. " +
			"Corpus arguments are glob patterns; ** matches any number of directories.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			cpuProfile, _ := cmd.Flags().GetString("cpu-profile")
			resume, _ := cmd.Flags().GetString("resume")
			return a.train(cmd.Context(), metricsAddr, cpuProfile, resume)
		},
	}
	f := cmd.Flags()
	f.StringSlice("train", nil, "Training corpus globs")
	f.StringSlice("val", nil, "Validation corpus globs")
	f.Int("epochs", 0, "Number of epochs to train")
	f.Int("batch-size", 0, "Mini-batch size")
	f.Int("steps-per-epoch", 0, "Training steps between callbacks")
	f.Int("max-vocab-size", 0, "Maximum tokens per vocabulary")
	f.String("embedding-path", "", "GloVe file used to initialize embeddings")
	f.String("model-save-path", "", "Directory the model is saved to after every epoch")
	f.String("log-dir", "", "Directory for the metrics log")
	f.Uint64("seed", 0, "Bucketing shuffle seed")
	f.String("resume", "", "Continue training a saved model")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.String("cpu-profile", "", "Write a CPU profile to this file")
	return cmd
}

func (a *app) train(ctx context.Context, metricsAddr, cpuProfile, resume string) error {
	if len(a.cfg.Data.Train) == 0 {
		return errors.New("no training data: pass --train or set data.train")
	}
	if cpuProfile != "" {
		stop, err := startCPUProfile(cpuProfile)
		if err != nil {
			return err
		}
		defer stop()
		a.log.Info("CPU profiling enabled", "path", cpuProfile)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if metricsAddr != "" {
		shutdown := serveMetrics(ctx, a, reg, metricsAddr)
		defer shutdown()
	}

	m, err := a.model(resume)
	if err != nil {
		return err
	}
	trainer, err := train.NewTrainer(a.cfg.Training,
		train.WithFs(a.fs),
		train.WithRegisterer(reg),
		train.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	var val data.Source
	if len(a.cfg.Data.Val) > 0 {
		val = data.TSVSource(a.fs, a.cfg.Data.Val...)
	}
	a.log.Info("Starting training",
		"train", a.cfg.Data.Train,
		"epochs", a.cfg.Data.NumEpochs,
		"model_save_path", a.cfg.Training.ModelSavePath,
		"log_dir", a.cfg.Training.LogDir)
	return trainer.Train(ctx, m, data.TSVSource(a.fs, a.cfg.Data.Train...), val, a.cfg.Data.NumEpochs, nil)
}

func (a *app) model(resume string) (model.Model, error) {
	if resume == "" {
		return model.NewSummarizer(a.cfg.Model, model.WithFs(a.fs)), nil
	}
	m, err := model.Load(a.fs, resume)
	if err != nil {
		return nil, err
	}
	a.log.Info("Resuming saved model", "path", resume)
	return m, nil
}

func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(ctx context.Context, a *app, reg *prometheus.Registry, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Metrics server stopped", "error", err)
		}
	}()
	a.log.Info("Serving metrics", "addr", addr)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("Failed to stop metrics server", "error", err)
		}
	}
}
