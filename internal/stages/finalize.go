package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// Finalizer writes the run's artifacts under Dir/<run id>/. Files are
// overwritten, so re-running after a failure is safe. They carry the raw
// request text, so only the owner can read them.
type Finalizer struct {
	Dir string
	Now func() time.Time
}

type summary struct {
	RunID       string         `json:"run_id"`
	Prompt      string         `json:"prompt"`
	Signal      domain.Signal  `json:"signal"`
	Validation  map[string]any `json:"validation,omitempty"`
	ErrorCount  int            `json:"error_count"`
	FinalizedAt time.Time      `json:"finalized_at"`
}

func (f *Finalizer) Execute(ctx context.Context, state workflow.State) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(fmt.Sprintf("finalize: %v", err))
	}

	dir := filepath.Join(f.Dir, state.RunID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return domain.Failed(fmt.Sprintf("finalize: failed to create %s: %v", dir, err))
	}

	var files []string
	if kind, md, ok := artifact(state); ok {
		path := filepath.Join(dir, kind+".md")
		if err := os.WriteFile(path, []byte(md), 0o600); err != nil {
			return domain.Failed(fmt.Sprintf("finalize: failed to write %s: %v", path, err))
		}
		files = append(files, path)
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	s := summary{
		RunID:       state.RunID,
		Prompt:      state.Prompt,
		Signal:      state.Signal,
		ErrorCount:  state.ErrorCount,
		FinalizedAt: now().UTC(),
	}
	if out, ok := state.Output(domain.StageValidate); ok && out.OK {
		s.Validation = out.Payload
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return domain.Failed(fmt.Sprintf("finalize: failed to encode summary: %v", err))
	}
	path := filepath.Join(dir, "summary.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return domain.Failed(fmt.Sprintf("finalize: failed to write %s: %v", path, err))
	}
	files = append(files, path)

	return domain.Ok(map[string]any{
		KeyDir:   dir,
		KeyFiles: files,
	})
}
