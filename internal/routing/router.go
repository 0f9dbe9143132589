package routing

import (
	"fmt"
	"sort"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

// edge is a (previous stage, status) pair in the transition table.
type edge struct {
	from   domain.Stage
	status domain.Status
}

// Router resolves the next stage of a workflow run. It is immutable after
// construction, so Next is a pure function of its arguments.
type Router struct {
	entry       map[domain.Intent]domain.Stage
	transitions map[edge]func(domain.Signal) domain.Stage
	invalid     []string
}

// NewRouter creates a router. Nil routing uses the built-in intent table.
// Overrides naming an unknown intent or a stage that cannot follow
// Classify are ignored and reported by InvalidOverrides.
func NewRouter(routing *IntentRouting) *Router {
	r := &Router{
		entry: make(map[domain.Intent]domain.Stage, len(defaultEntry)),
	}
	for intent, stage := range defaultEntry {
		r.entry[intent] = stage
	}

	if routing != nil {
		for name, stageName := range routing.Overrides {
			intent, err := ParseIntent(name)
			if err != nil {
				r.invalid = append(r.invalid, name)
				continue
			}
			stage, err := ParseStage(stageName)
			if err != nil || !entryStages[stage] {
				r.invalid = append(r.invalid, fmt.Sprintf("%s=%s", name, stageName))
				continue
			}
			r.entry[intent] = stage
		}
		sort.Strings(r.invalid)
	}

	toStage := func(s domain.Stage) func(domain.Signal) domain.Stage {
		return func(domain.Signal) domain.Stage { return s }
	}

	r.transitions = make(map[edge]func(domain.Signal) domain.Stage)
	for _, status := range []domain.Status{domain.StatusRunning, domain.StatusRetrying} {
		r.transitions[edge{domain.StageClassify, status}] = r.Entry
		r.transitions[edge{domain.StageGenerate, status}] = toStage(domain.StageValidate)
		r.transitions[edge{domain.StageCodeGen, status}] = toStage(domain.StageValidate)
		// Validation never loops back: any score proceeds to Finalize.
		r.transitions[edge{domain.StageValidate, status}] = toStage(domain.StageFinalize)
		r.transitions[edge{domain.StageFinalize, status}] = toStage(domain.StageFinalize)
		r.transitions[edge{domain.StageErrorHandler, status}] = toStage(domain.StageErrorHandler)
	}
	return r
}

// Entry returns the first work stage for a freshly classified signal.
func (r *Router) Entry(sig domain.Signal) domain.Stage {
	if stage, ok := r.entry[sig.Intent]; ok {
		return stage
	}
	return domain.StageGenerate
}

// Next returns the stage to execute after prev completed under status.
// A failed status always routes to ErrorHandler, a completed run stays on
// its terminal stage, and unknown inputs fall back to ErrorHandler, so
// the result is always a member of the fixed stage set.
func (r *Router) Next(sig domain.Signal, status domain.Status, prev domain.Stage) domain.Stage {
	switch status {
	case domain.StatusFailed:
		return domain.StageErrorHandler
	case domain.StatusCompleted:
		if prev.Terminal() {
			return prev
		}
		return domain.StageFinalize
	}

	if next, ok := r.transitions[edge{prev, status}]; ok {
		return next(sig)
	}
	return domain.StageErrorHandler
}

// InvalidOverrides returns the configured overrides that were rejected.
func (r *Router) InvalidOverrides() []string {
	return r.invalid
}

// EntryTable returns a copy of the effective intent → stage table.
func (r *Router) EntryTable() map[domain.Intent]domain.Stage {
	out := make(map[domain.Intent]domain.Stage, len(r.entry))
	for k, v := range r.entry {
		out[k] = v
	}
	return out
}
