package workflow

import (
	"context"
	"fmt"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

// Executor runs one stage. Implementations must tolerate being invoked
// again for the same run after a failure.
type Executor interface {
	Execute(ctx context.Context, state State) domain.Outcome
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, state State) domain.Outcome

func (f ExecutorFunc) Execute(ctx context.Context, state State) domain.Outcome {
	return f(ctx, state)
}

// Executors maps work stages to their executors.
type Executors map[domain.Stage]Executor

// requiredStages are dispatched to executors; Classify and ErrorHandler
// are handled by the engine itself.
var requiredStages = []domain.Stage{
	domain.StageGenerate,
	domain.StageCodeGen,
	domain.StageValidate,
	domain.StageFinalize,
}

// validate checks that every work stage has an executor and that no
// executor is registered for a stage outside the fixed set.
func (e Executors) validate() error {
	for _, stage := range requiredStages {
		if e[stage] == nil {
			return fmt.Errorf("%w: %s", domain.ErrNoExecutor, stage)
		}
	}
	for stage := range e {
		if !stage.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrUnknownStage, stage)
		}
	}
	return nil
}
