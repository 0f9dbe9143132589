// Package classify turns free-form request text into a structured Signal
// using ordered keyword tables and identifier patterns.
package classify

import (
	"context"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/memory"
)

// Memory is the part of the memory store the classifier uses.
type Memory interface {
	Append(ctx context.Context, entry memory.Entry) error
	Recent(limit int) []memory.Entry
}

// Classifier extracts Signals and records each one in memory.
type Classifier struct {
	memory   Memory
	stageFor func(domain.Signal) domain.Stage
	now      func() time.Time
	logger   *log.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithStageFunc sets how the chosen stage recorded in memory is derived
// from a signal; the engine passes its router's entry lookup.
func WithStageFunc(fn func(domain.Signal) domain.Stage) Option {
	return func(c *Classifier) {
		c.stageFor = fn
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithLogger sets the logger used for memory persistence warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New creates a classifier. A nil memory disables recording.
func New(mem Memory, opts ...Option) *Classifier {
	c := &Classifier{
		memory: mem,
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify analyses text and appends the result to memory. It never
// fails: empty or unmatched input yields IntentGeneral with base
// confidence.
func (c *Classifier) Classify(ctx context.Context, text string) domain.Signal {
	sig := Analyze(text)

	if c.memory != nil {
		stage := domain.StageClassify
		if c.stageFor != nil {
			stage = c.stageFor(sig)
		}
		err := c.memory.Append(ctx, memory.Entry{
			Timestamp: c.now(),
			Text:      text,
			Signal:    sig.Clone(),
			Stage:     stage,
		})
		if err != nil {
			c.logger.Printf("Warning: %v", err)
		}
	}
	return sig
}

// Context returns up to limit previous classifications, most recent last.
func (c *Classifier) Context(limit int) []memory.Entry {
	if c.memory == nil {
		return nil
	}
	return c.memory.Recent(limit)
}

// Analyze is the pure part of classification.
func Analyze(text string) domain.Signal {
	lower := strings.ToLower(text)
	tokens := tokenSet(lower)

	intent, intentHits := detectIntent(tokens)
	domains, domainHits := detectDomains(lower)

	return domain.Signal{
		Intent:       intent,
		Domains:      domains,
		References:   extractReferences(text),
		Confidence:   score(intentHits, domainHits),
		Technologies: detectTechnologies(lower),
		Stakeholders: extractStakeholders(text),
	}
}

func detectTechnologies(lower string) []string {
	var techs []string
	for _, kw := range techKeywords {
		if strings.Contains(lower, kw) {
			techs = append(techs, kw)
		}
	}
	return techs
}

// extractStakeholders returns the lower-cased, de-duplicated words
// following "as a"/"as an"/"as" and "for", pattern by pattern.
func extractStakeholders(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range stakeholderPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			who := strings.ToLower(m[1])
			if seen[who] {
				continue
			}
			seen[who] = true
			out = append(out, who)
		}
	}
	return out
}

func tokenSet(lower string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(lower, -1) {
		tokens[tok] = true
	}
	return tokens
}

// detectIntent returns the first intent whose keywords intersect the
// tokens, and how many of its keywords matched.
func detectIntent(tokens map[string]bool) (domain.Intent, int) {
	for _, rule := range intentRules {
		hits := 0
		for _, kw := range rule.keywords {
			if tokens[kw] {
				hits++
			}
		}
		if hits > 0 {
			return rule.intent, hits
		}
	}
	return domain.IntentGeneral, 0
}

// detectDomains returns every tag with a substring match and the number of
// distinct keywords matched across all tags.
func detectDomains(lower string) ([]domain.DomainTag, int) {
	var tags []domain.DomainTag
	matched := make(map[string]bool)
	for _, rule := range domainRules {
		present := false
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				present = true
				matched[kw] = true
			}
		}
		if present {
			tags = append(tags, rule.tag)
		}
	}
	return tags, len(matched)
}

// extractReferences collects identifiers grouped by kind (epic, feature,
// story), uppercased and deduplicated, in order of appearance.
func extractReferences(text string) []domain.Reference {
	var refs []domain.Reference
	seen := make(map[string]bool)
	for _, p := range refPatterns {
		for _, m := range p.pattern.FindAllString(text, -1) {
			id := strings.ToUpper(m)
			if seen[id] {
				continue
			}
			seen[id] = true
			refs = append(refs, domain.Reference{Kind: p.kind, ID: id})
		}
	}
	return refs
}

// score is monotonic in both hit counts and capped at MaxConfidence.
func score(intentHits, domainHits int) float64 {
	c := BaseConfidence +
		IntentKeywordBoost*float64(intentHits) +
		DomainKeywordBoost*float64(domainHits)
	if c > MaxConfidence {
		c = MaxConfidence
	}
	return math.Round(c*100) / 100
}
