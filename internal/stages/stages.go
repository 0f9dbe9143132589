// Package stages provides the stock executors for the work stages. They
// render markdown artifacts from the embedded templates, score them and
// write the result set to disk.
package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/template"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// Payload keys shared between stages.
const (
	KeyKind     = "kind"
	KeyTitle    = "title"
	KeyMarkdown = "markdown"
	KeyScore    = "score"
	KeyMissing  = "missing"
	KeyFiles    = "files"
	KeyDir      = "dir"
)

// DefaultOutputDir is where Finalize writes artifacts.
const DefaultOutputDir = "output"

// Config holds executor settings.
type Config struct {
	OutputDir string `mapstructure:"dir" yaml:"dir"`
}

// Executors returns the stock executor for every work stage.
func Executors(cfg Config) workflow.Executors {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	return workflow.Executors{
		domain.StageGenerate: workflow.ExecutorFunc(Generate),
		domain.StageCodeGen:  workflow.ExecutorFunc(CodeGen),
		domain.StageValidate: workflow.ExecutorFunc(Validate),
		domain.StageFinalize: &Finalizer{Dir: cfg.OutputDir},
	}
}

// Generate renders the requirement artifact matching the run's intent.
func Generate(ctx context.Context, state workflow.State) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(fmt.Sprintf("generate: %v", err))
	}
	kind := artifactKind(state.Signal)
	return render(kind, state)
}

// CodeGen renders an implementation outline.
func CodeGen(ctx context.Context, state workflow.State) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(fmt.Sprintf("codegen: %v", err))
	}
	return render(template.KindCode, state)
}

func render(kind string, state workflow.State) domain.Outcome {
	title := titleFrom(state.Prompt)
	md, err := template.RenderArtifact(kind, variables(title, state))
	if err != nil {
		return domain.Failed(err.Error())
	}
	if left := template.Placeholders(md); left != nil {
		return domain.Failed(fmt.Sprintf("%s template left %v unresolved", kind, left))
	}
	return domain.Ok(map[string]any{
		KeyKind:     kind,
		KeyTitle:    title,
		KeyMarkdown: md,
	})
}

// artifactKind picks the template for a signal. Update and analysis
// requests target the broadest referenced item.
func artifactKind(sig domain.Signal) string {
	switch sig.Intent {
	case domain.IntentCreateEpic:
		return template.KindEpic
	case domain.IntentCreateFeature:
		return template.KindFeature
	case domain.IntentCreateStory:
		return template.KindStory
	}
	switch {
	case len(sig.ReferencesOf(domain.RefEpic)) > 0:
		return template.KindEpic
	case len(sig.ReferencesOf(domain.RefFeature)) > 0:
		return template.KindFeature
	case len(sig.ReferencesOf(domain.RefStory)) > 0:
		return template.KindStory
	}
	return template.KindFeature
}

// defaultVariables fill the templates when nothing was detected.
var defaultVariables = map[string]string{
	"domains":      "- none detected",
	"domain_label": "banking",
	"references":   "- none",
	"package":      "service",
}

func variables(title string, state workflow.State) map[string]string {
	detected := map[string]string{
		"title":   title,
		"summary": strings.TrimSpace(state.Prompt),
	}

	if names := state.Signal.DomainNames(); len(names) > 0 {
		lines := make([]string, len(names))
		for i, n := range names {
			lines[i] = "- " + n
		}
		detected["domains"] = strings.Join(lines, "\n")
		detected["domain_label"] = strings.ReplaceAll(strings.Join(names, ", "), "_", " ")
		detected["package"] = names[0]
	}

	if len(state.Signal.References) > 0 {
		lines := make([]string, len(state.Signal.References))
		for i, r := range state.Signal.References {
			lines[i] = fmt.Sprintf("- %s %s", r.Kind, r.ID)
		}
		detected["references"] = strings.Join(lines, "\n")
	}

	return template.MergeVariables(defaultVariables, detected)
}

const maxTitleRunes = 80

// subjectMarker is matched on the original text so the offset stays valid
// when case folding changes a rune's byte length.
var subjectMarker = regexp.MustCompile(`(?i) for `)

// titleFrom takes the subject of a request: the text after the first
// " for ", or the whole prompt.
func titleFrom(prompt string) string {
	t := strings.TrimSpace(prompt)
	if loc := subjectMarker.FindStringIndex(t); loc != nil {
		t = t[loc[1]:]
	}
	t = strings.TrimRightFunc(t, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if t == "" {
		return "Untitled request"
	}
	runes := []rune(t)
	if len(runes) > maxTitleRunes {
		runes = runes[:maxTitleRunes]
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
