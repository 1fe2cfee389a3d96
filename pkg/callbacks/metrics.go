package callbacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

const metricsFile = "metrics.jsonl"

// Metrics exports the epoch logs as Prometheus gauges and appends them to
// Dir/metrics.jsonl.
type Metrics struct {
	Registerer prometheus.Registerer
	Fs         afero.Fs
	Dir        string

	values *prometheus.GaugeVec
	epoch  prometheus.Gauge
}

type metricsRecord struct {
	Time  time.Time `json:"time"`
	Epoch int       `json:"epoch"`
	Batch int       `json:"batch"`
	Logs  Logs      `json:"logs"`
}

// NewMetrics registers the training gauges with reg. A nil reg skips
// registration; an empty dir disables the JSONL log.
func NewMetrics(reg prometheus.Registerer, fs afero.Fs, dir string) (*Metrics, error) {
	m := &Metrics{
		Registerer: reg,
		Fs:         fs,
		Dir:        dir,
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "headliner",
			Subsystem: "train",
			Name:      "metric",
			Help:      "Latest value of each metric logged at epoch end.",
		}, []string{"name"}),
		epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "headliner",
			Subsystem: "train",
			Name:      "epoch",
			Help:      "Number of completed epochs.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.values, err = register(reg, m.values); err != nil {
		return nil, err
	}
	if m.epoch, err = register(reg, m.epoch); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the already registered collector when an equal one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("failed to register metrics: %w", err)
}

// OnEpochEnd sets one gauge per log entry and, when Dir is set, appends the
// entries to the metrics log.
func (m *Metrics) OnEpochEnd(ctx context.Context, e *EpochEnd) error {
	for name, value := range e.Logs {
		m.values.WithLabelValues(name).Set(value)
	}
	m.epoch.Set(float64(e.Epoch + 1))
	if m.Dir == "" || m.Fs == nil {
		return nil
	}
	if err := m.append(metricsRecord{Time: time.Now().UTC(), Epoch: e.Epoch, Batch: e.Batch, Logs: e.Logs}); err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("Metrics written", "epoch", e.Epoch, "path", filepath.Join(m.Dir, metricsFile))
	return nil
}

func (m *Metrics) append(rec metricsRecord) error {
	if err := m.Fs.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	f, err := m.Fs.OpenFile(filepath.Join(m.Dir, metricsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to write metrics log: %w", err)
	}
	return f.Close()
}
