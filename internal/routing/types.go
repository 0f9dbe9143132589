package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

// IntentRouting maps intents to the first work stage after classification.
// Keys and values are names as they appear in config files.
type IntentRouting struct {
	Overrides map[string]string `json:"overrides,omitempty" yaml:"overrides,omitempty" mapstructure:"overrides"`
}

// entryStages are the stages a run may enter directly from Classify.
var entryStages = map[domain.Stage]bool{
	domain.StageGenerate: true,
	domain.StageCodeGen:  true,
	domain.StageValidate: true,
}

// defaultEntry is the built-in intent → first-stage table.
var defaultEntry = map[domain.Intent]domain.Stage{
	domain.IntentCreateEpic:    domain.StageGenerate,
	domain.IntentCreateFeature: domain.StageGenerate,
	domain.IntentCreateStory:   domain.StageGenerate,
	domain.IntentGenerateCode:  domain.StageCodeGen,
	domain.IntentValidate:      domain.StageValidate,
	domain.IntentUpdate:        domain.StageGenerate,
	domain.IntentAnalyze:       domain.StageGenerate,
	domain.IntentGeneral:       domain.StageGenerate,
}

// ValidStageNames returns the sorted list of recognized stage names.
func ValidStageNames() []string {
	names := make([]string, 0, len(domain.Stages))
	for _, s := range domain.Stages {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

// ParseStage resolves a stage name case-insensitively.
func ParseStage(name string) (domain.Stage, error) {
	s := domain.Stage(strings.ToUpper(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q (valid: %s)", domain.ErrUnknownStage, name, strings.Join(ValidStageNames(), ", "))
	}
	return s, nil
}

// ParseIntent resolves an intent name case-insensitively.
func ParseIntent(name string) (domain.Intent, error) {
	i := domain.Intent(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := defaultEntry[i]; !ok {
		return "", fmt.Errorf("unknown intent: %q", name)
	}
	return i, nil
}
