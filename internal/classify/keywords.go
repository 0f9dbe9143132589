package classify

import (
	"regexp"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

// intentRule pairs an intent with the tokens that select it.
type intentRule struct {
	intent   domain.Intent
	keywords []string
}

// intentRules is evaluated in order; the first rule with any token present
// wins, so order is the tie-break between intents.
var intentRules = []intentRule{
	{domain.IntentCreateEpic, []string{"epic", "epics"}},
	{domain.IntentCreateFeature, []string{"feature", "features"}},
	{domain.IntentCreateStory, []string{"story", "stories"}},
	{domain.IntentGenerateCode, []string{"code", "coding", "implement", "implementation", "develop", "program"}},
	{domain.IntentValidate, []string{"validate", "validation", "check", "verify", "audit", "test"}},
	{domain.IntentUpdate, []string{"update", "modify", "change", "edit"}},
	{domain.IntentAnalyze, []string{"analyze", "analyse", "review", "investigate", "examine"}},
}

// domainRule lists substrings that mark a domain tag.
type domainRule struct {
	tag      domain.DomainTag
	keywords []string
}

var domainRules = []domainRule{
	{domain.DomainLoans, []string{"loan", "lending", "mortgage", "credit", "financing", "borrowing", "underwriting"}},
	{domain.DomainCards, []string{"credit card", "card", "plastic", "rewards", "cashback", "points", "fraud"}},
	{domain.DomainPayments, []string{"payment", "transfer", "wire transfer", "ach transfer", "settlement", "transaction", "p2p"}},
	{domain.DomainInvestments, []string{"investment", "portfolio", "trading", "stocks", "bonds", "funds", "wealth"}},
	{domain.DomainAccounts, []string{"account", "savings", "checking", "deposit", "balance", "statement"}},
	{domain.DomainDigitalBanking, []string{"mobile app", "online banking", "digital", "api", "microservice"}},
	{domain.DomainCompliance, []string{"kyc", "aml", "pci-dss", "sox", "gdpr", "basel", "compliance", "regulatory"}},
}

// refPattern extracts work item identifiers of one kind.
type refPattern struct {
	kind    domain.RefKind
	pattern *regexp.Regexp
}

var refPatterns = []refPattern{
	{domain.RefEpic, regexp.MustCompile(`(?i)\bE\d{3}\b`)},
	{domain.RefFeature, regexp.MustCompile(`(?i)\bF\d{3}\b`)},
	{domain.RefStory, regexp.MustCompile(`(?i)\bS\d{3}\b`)},
}

// techKeywords are matched as substrings of the lower-cased request.
var techKeywords = []string{
	"python", "java", "javascript", "react", "angular", "api", "microservices", "docker", "kubernetes",
}

// stakeholderPatterns capture the word naming who a request is for.
var stakeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bas\s+(?:an?\s+)?(\w+)`),
	regexp.MustCompile(`(?i)\bfor\s+(\w+)`),
}

// tokenPattern splits input into lower-case word tokens.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Confidence scoring constants.
const (
	BaseConfidence     = 0.5
	IntentKeywordBoost = 0.15
	DomainKeywordBoost = 0.1
	MaxConfidence      = 1.0
)
