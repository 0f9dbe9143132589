package stages

import (
	"context"
	"fmt"
	"math"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/template"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// Validate scores the artifact produced earlier in the run by the share
// of required sections it contains. A run with nothing to check scores 0.
// The score is informational; routing ignores it.
func Validate(ctx context.Context, state workflow.State) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(fmt.Sprintf("validate: %v", err))
	}

	kind, md, ok := artifact(state)
	if !ok {
		return domain.Ok(map[string]any{
			KeyScore:   0.0,
			KeyMissing: []string{},
			"note":     "no artifact produced in this run",
		})
	}

	m, err := template.LoadManifest()
	if err != nil {
		return domain.Failed(err.Error())
	}
	spec, found := m.Spec(kind)
	if !found {
		return domain.Failed(fmt.Sprintf("validate: unknown artifact kind %q", kind))
	}
	missing, err := template.MissingSections(kind, md)
	if err != nil {
		return domain.Failed(err.Error())
	}
	if missing == nil {
		missing = []string{}
	}

	score := 1.0
	if n := len(spec.Required); n > 0 {
		score = math.Round(float64(n-len(missing))/float64(n)*100) / 100
	}
	return domain.Ok(map[string]any{
		KeyKind:    kind,
		KeyScore:   score,
		KeyMissing: missing,
	})
}

// artifact returns the markdown produced by Generate or CodeGen.
func artifact(state workflow.State) (kind, markdown string, ok bool) {
	for _, stage := range []domain.Stage{domain.StageGenerate, domain.StageCodeGen} {
		out, found := state.Output(stage)
		if !found || !out.OK {
			continue
		}
		md, _ := out.Payload[KeyMarkdown].(string)
		k, _ := out.Payload[KeyKind].(string)
		if md != "" && k != "" {
			return k, md, true
		}
	}
	return "", "", false
}
