// Package domain holds the shared value types of the routing engine: the
// classification Signal and the workflow Stage/Status vocabulary.
package domain

import "sort"

// Intent is the primary purpose detected in a request.
type Intent string

const (
	IntentCreateEpic    Intent = "create_epic"
	IntentCreateFeature Intent = "create_feature"
	IntentCreateStory   Intent = "create_story"
	IntentGenerateCode  Intent = "generate_code"
	IntentValidate      Intent = "validate"
	IntentUpdate        Intent = "update"
	IntentAnalyze       Intent = "analyze"
	IntentGeneral       Intent = "general"
)

// DomainTag is a topical category attached to a Signal.
type DomainTag string

const (
	DomainLoans          DomainTag = "loans"
	DomainCards          DomainTag = "cards"
	DomainPayments       DomainTag = "payments"
	DomainInvestments    DomainTag = "investments"
	DomainAccounts       DomainTag = "accounts"
	DomainDigitalBanking DomainTag = "digital_banking"
	DomainCompliance     DomainTag = "compliance"
)

// RefKind identifies the kind of work item a Reference points at.
type RefKind string

const (
	RefEpic    RefKind = "epic"
	RefFeature RefKind = "feature"
	RefStory   RefKind = "story"
)

// Reference is an identifier such as E001 found in the request text.
type Reference struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}

// Signal is the structured result of classifying one request.
// Callers treat it as immutable once returned by the classifier.
type Signal struct {
	Intent     Intent      `json:"intent"`
	Domains    []DomainTag `json:"domains,omitempty"`
	References []Reference `json:"references,omitempty"`
	Confidence float64     `json:"confidence"`

	// Request context reported with the signal; not used for routing or scoring.
	Technologies []string `json:"technologies,omitempty"`
	Stakeholders []string `json:"stakeholders,omitempty"`
}

// HasDomain reports whether the signal carries the given tag.
func (s Signal) HasDomain(tag DomainTag) bool {
	for _, d := range s.Domains {
		if d == tag {
			return true
		}
	}
	return false
}

// ReferencesOf returns the IDs of all references of the given kind, in order.
func (s Signal) ReferencesOf(kind RefKind) []string {
	var ids []string
	for _, r := range s.References {
		if r.Kind == kind {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Clone returns a deep copy so that holders cannot alias each other's slices.
func (s Signal) Clone() Signal {
	out := s
	if s.Domains != nil {
		out.Domains = append([]DomainTag(nil), s.Domains...)
	}
	if s.References != nil {
		out.References = append([]Reference(nil), s.References...)
	}
	if s.Technologies != nil {
		out.Technologies = append([]string(nil), s.Technologies...)
	}
	if s.Stakeholders != nil {
		out.Stakeholders = append([]string(nil), s.Stakeholders...)
	}
	return out
}

// DomainNames returns the signal's domain tags as sorted strings.
func (s Signal) DomainNames() []string {
	names := make([]string, 0, len(s.Domains))
	for _, d := range s.Domains {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}
