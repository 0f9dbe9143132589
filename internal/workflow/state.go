// Package workflow drives a classified request through its stages: it
// invokes the executor for the current stage, asks the router for the
// next one, retries failed stages in place and stops on a terminal stage
// or when the error budget is spent.
package workflow

import (
	"time"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/memory"
)

// State is the record of one run. The engine owns it; executors receive
// a copy and report back only through their Outcome.
type State struct {
	RunID        string
	Prompt       string
	Signal       domain.Signal
	CurrentStage domain.Stage
	StageOutputs map[domain.Stage]domain.Outcome
	ErrorCount   int
	Attempt      int // 1-based attempt number of CurrentStage
	Status       domain.Status
	LastError    string
	History      []memory.Entry // classifications preceding this run
}

// Output returns the recorded outcome of stage, if any.
func (s State) Output(stage domain.Stage) (domain.Outcome, bool) {
	o, ok := s.StageOutputs[stage]
	return o, ok
}

// snapshot copies s so an executor cannot reach the engine's maps or the
// signal's slices.
func (s *State) snapshot() State {
	out := *s
	out.Signal = s.Signal.Clone()
	out.StageOutputs = make(map[domain.Stage]domain.Outcome, len(s.StageOutputs))
	for k, v := range s.StageOutputs {
		out.StageOutputs[k] = v
	}
	out.History = append([]memory.Entry(nil), s.History...)
	return out
}

// FinalResult is what a caller receives from Run. Status is always
// Completed or Failed.
type FinalResult struct {
	RunID          string                          `json:"run_id"`
	Prompt         string                          `json:"prompt"`
	Signal         domain.Signal                   `json:"signal"`
	Status         domain.Status                   `json:"status"`
	StageOutputs   map[domain.Stage]domain.Outcome `json:"stage_outputs"`
	Path           []domain.Stage                  `json:"path"`
	ErrorCount     int                             `json:"error_count"`
	LastError      string                          `json:"last_error,omitempty"`
	CompletionTime time.Time                       `json:"completion_time"`
	Duration       time.Duration                   `json:"duration"`
}

// Status reports engine activity across runs.
type Status struct {
	StagesExecuted int64                  `json:"stages_executed"`
	StageCounts    map[domain.Stage]int64 `json:"stage_counts"`
	RunsCompleted  int64                  `json:"runs_completed"`
	RunsFailed     int64                  `json:"runs_failed"`
	MemorySize     int                    `json:"memory_size"`
	MemoryCapacity int                    `json:"memory_capacity"`
	LastActivity   time.Time              `json:"last_activity,omitempty"`
}
