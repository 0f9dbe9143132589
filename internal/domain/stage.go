package domain

// Stage is one discrete unit of work in the workflow.
type Stage string

const (
	StageClassify     Stage = "CLASSIFY"
	StageGenerate     Stage = "GENERATE"
	StageCodeGen      Stage = "CODEGEN"
	StageValidate     Stage = "VALIDATE"
	StageFinalize     Stage = "FINALIZE"
	StageErrorHandler Stage = "ERROR_HANDLER"
)

// Stages lists the fixed stage set in pipeline order.
var Stages = []Stage{
	StageClassify,
	StageGenerate,
	StageCodeGen,
	StageValidate,
	StageFinalize,
	StageErrorHandler,
}

// Valid reports whether s is a member of the fixed stage set.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the engine stops after reaching s.
func (s Stage) Terminal() bool {
	return s == StageFinalize || s == StageErrorHandler
}

func (s Stage) String() string {
	return string(s)
}

// Status is the lifecycle state of a workflow run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Active reports whether the engine loop keeps going in this status.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusRetrying
}

func (s Status) String() string {
	return string(s)
}

// Outcome is the tagged result of one stage invocation: either a payload
// (Ok) or a failure reason.
type Outcome struct {
	OK      bool           `json:"ok"`
	Payload map[string]any `json:"payload,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

// Ok builds a successful outcome.
func Ok(payload map[string]any) Outcome {
	return Outcome{OK: true, Payload: payload}
}

// Failed builds a failed outcome carrying reason verbatim.
func Failed(reason string) Outcome {
	return Outcome{OK: false, Reason: reason}
}
