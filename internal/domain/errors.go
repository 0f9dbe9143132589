package domain

import "errors"

// Sentinel errors for engine and routing operations.
var (
	ErrStageFailed       = errors.New("stage failed")
	ErrWorkflowExhausted = errors.New("workflow error budget exhausted")
	ErrUnknownStage      = errors.New("unknown stage")
	ErrNoExecutor        = errors.New("no executor registered for stage")
)
