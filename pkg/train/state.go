package train

import (
	"maps"

	"github.com/joelsearcy/headliner-go/pkg/callbacks"
)

// Phase is the lifecycle position of a Trainer.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseTraining
	PhaseEvaluating
	PhaseDone
	PhaseFailed
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseTraining:
		return "training"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of training progress. Batch counts steps across the
// whole run, not per epoch.
type State struct {
	Phase Phase
	Epoch int
	Batch int
	Logs  callbacks.Logs
}

func (s State) clone() State {
	s.Logs = maps.Clone(s.Logs)
	return s
}
