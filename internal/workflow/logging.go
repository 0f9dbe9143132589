package workflow

import (
	"fmt"

	"github.com/andywolf/prompttoproduct/internal/logging"
)

// logInfo logs at INFO level to both local logger and structured logger
func (e *Engine) logInfo(state *State, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Printf("[%s] %s", shortID(state.RunID), logging.Redact(msg))
	e.cloudLogger.Log(logging.SeverityInfo, msg, runFields(state))
}

// logWarning logs at WARNING level to both local logger and structured logger
func (e *Engine) logWarning(state *State, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Printf("[%s] Warning: %s", shortID(state.RunID), logging.Redact(msg))
	e.cloudLogger.Log(logging.SeverityWarning, msg, runFields(state))
}

// logError logs at ERROR level to both local logger and structured logger
func (e *Engine) logError(state *State, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Printf("[%s] Error: %s", shortID(state.RunID), logging.Redact(msg))
	e.cloudLogger.Log(logging.SeverityError, msg, runFields(state))
}

func runFields(state *State) map[string]any {
	return map[string]any{
		"run_id":      state.RunID,
		"stage":       string(state.CurrentStage),
		"status":      string(state.Status),
		"error_count": state.ErrorCount,
		"intent":      string(state.Signal.Intent),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
