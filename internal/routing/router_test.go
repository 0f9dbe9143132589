package routing

import (
	"errors"
	"testing"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

func sig(intent domain.Intent) domain.Signal {
	return domain.Signal{Intent: intent, Confidence: 0.5}
}

func TestEntryFromClassify(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		intent domain.Intent
		want   domain.Stage
	}{
		{domain.IntentCreateEpic, domain.StageGenerate},
		{domain.IntentCreateFeature, domain.StageGenerate},
		{domain.IntentCreateStory, domain.StageGenerate},
		{domain.IntentGenerateCode, domain.StageCodeGen},
		{domain.IntentValidate, domain.StageValidate},
		{domain.IntentUpdate, domain.StageGenerate},
		{domain.IntentAnalyze, domain.StageGenerate},
		{domain.IntentGeneral, domain.StageGenerate},
		{domain.Intent("bogus"), domain.StageGenerate},
	}
	for _, tt := range tests {
		got := r.Next(sig(tt.intent), domain.StatusRunning, domain.StageClassify)
		if got != tt.want {
			t.Errorf("intent %s: got %s, want %s", tt.intent, got, tt.want)
		}
	}
}

func TestWorkStagesProceedToValidate(t *testing.T) {
	r := NewRouter(nil)
	for _, prev := range []domain.Stage{domain.StageGenerate, domain.StageCodeGen} {
		for _, status := range []domain.Status{domain.StatusRunning, domain.StatusRetrying} {
			if got := r.Next(sig(domain.IntentGeneral), status, prev); got != domain.StageValidate {
				t.Errorf("%s/%s: got %s, want VALIDATE", prev, status, got)
			}
		}
	}
}

func TestValidateAlwaysFinalizes(t *testing.T) {
	r := NewRouter(nil)
	for _, intent := range []domain.Intent{domain.IntentValidate, domain.IntentCreateEpic, domain.IntentGenerateCode} {
		for _, status := range []domain.Status{domain.StatusRunning, domain.StatusRetrying} {
			if got := r.Next(sig(intent), status, domain.StageValidate); got != domain.StageFinalize {
				t.Errorf("%s/%s: got %s, want FINALIZE", intent, status, got)
			}
		}
	}
}

func TestFailedAlwaysRoutesToErrorHandler(t *testing.T) {
	r := NewRouter(nil)
	for _, prev := range domain.Stages {
		if got := r.Next(sig(domain.IntentCreateEpic), domain.StatusFailed, prev); got != domain.StageErrorHandler {
			t.Errorf("prev %s: got %s, want ERROR_HANDLER", prev, got)
		}
	}
}

func TestTerminalStagesAreSticky(t *testing.T) {
	r := NewRouter(nil)
	for _, status := range []domain.Status{domain.StatusRunning, domain.StatusCompleted} {
		if got := r.Next(sig(domain.IntentGeneral), status, domain.StageFinalize); got != domain.StageFinalize {
			t.Errorf("FINALIZE/%s: got %s", status, got)
		}
		if got := r.Next(sig(domain.IntentGeneral), status, domain.StageErrorHandler); got != domain.StageErrorHandler {
			t.Errorf("ERROR_HANDLER/%s: got %s", status, got)
		}
	}
}

func TestNextAlwaysInStageSet(t *testing.T) {
	r := NewRouter(nil)
	prevs := append([]domain.Stage{"", "NOPE"}, domain.Stages...)
	statuses := []domain.Status{domain.StatusRunning, domain.StatusRetrying, domain.StatusCompleted, domain.StatusFailed, "weird"}
	intents := []domain.Intent{domain.IntentGeneral, domain.IntentValidate, domain.IntentGenerateCode, ""}

	for _, prev := range prevs {
		for _, status := range statuses {
			for _, intent := range intents {
				got := r.Next(sig(intent), status, prev)
				if !got.Valid() {
					t.Errorf("Next(%s, %s, %s) = %q, not in stage set", intent, status, prev, got)
				}
			}
		}
	}
}

func TestNextIsPure(t *testing.T) {
	r := NewRouter(nil)
	s := domain.Signal{
		Intent:     domain.IntentGenerateCode,
		Domains:    []domain.DomainTag{domain.DomainPayments},
		References: []domain.Reference{{Kind: domain.RefStory, ID: "S001"}},
		Confidence: 0.8,
	}
	for _, prev := range domain.Stages {
		first := r.Next(s, domain.StatusRunning, prev)
		second := r.Next(s, domain.StatusRunning, prev)
		if first != second {
			t.Errorf("prev %s: Next not deterministic: %s vs %s", prev, first, second)
		}
	}
	if s.Intent != domain.IntentGenerateCode || len(s.Domains) != 1 || len(s.References) != 1 {
		t.Errorf("signal mutated: %+v", s)
	}
}

func TestOverrides(t *testing.T) {
	r := NewRouter(&IntentRouting{
		Overrides: map[string]string{
			"analyze":  "validate",
			"update":   "CODEGEN",
			"general":  "FINALIZE",
			"frobnish": "GENERATE",
		},
	})

	if got := r.Entry(sig(domain.IntentAnalyze)); got != domain.StageValidate {
		t.Errorf("analyze override: got %s", got)
	}
	if got := r.Entry(sig(domain.IntentUpdate)); got != domain.StageCodeGen {
		t.Errorf("update override: got %s", got)
	}
	if got := r.Entry(sig(domain.IntentGeneral)); got != domain.StageGenerate {
		t.Errorf("FINALIZE is not an entry stage, general should keep default, got %s", got)
	}

	invalid := r.InvalidOverrides()
	if len(invalid) != 2 {
		t.Fatalf("expected 2 invalid overrides, got %v", invalid)
	}
	if invalid[0] != "frobnish" || invalid[1] != "general=FINALIZE" {
		t.Errorf("unexpected invalid overrides: %v", invalid)
	}
}

func TestEntryTableIsCopy(t *testing.T) {
	r := NewRouter(nil)
	table := r.EntryTable()
	table[domain.IntentValidate] = domain.StageGenerate

	if got := r.Entry(sig(domain.IntentValidate)); got != domain.StageValidate {
		t.Errorf("EntryTable leaked router state, got %s", got)
	}
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage(" validate ")
	if err != nil || s != domain.StageValidate {
		t.Errorf("ParseStage(validate) = %s, %v", s, err)
	}
	if _, err := ParseStage("deploy"); !errors.Is(err, domain.ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestValidStageNames(t *testing.T) {
	names := ValidStageNames()
	if len(names) != len(domain.Stages) {
		t.Fatalf("expected %d names, got %d", len(domain.Stages), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}
