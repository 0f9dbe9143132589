package logging

import "regexp"

// redactRule replaces every match of pattern with replacement.
type redactRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order. Card numbers come last so the digits inside tokens
// and IBANs are not masked as a PAN.
var redactRules = []redactRule{
	{regexp.MustCompile(`(?s)-----BEGIN[[:space:]]+(?:RSA[[:space:]]+)?PRIVATE[[:space:]]+KEY-----.*?-----END[[:space:]]+(?:RSA[[:space:]]+)?PRIVATE[[:space:]]+KEY-----`), "[REDACTED-PRIVATE-KEY]"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), "[REDACTED-JWT]"},
	{regexp.MustCompile(`(?i)bearer[[:space:]]+[a-zA-Z0-9_\-\.]+`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?token|access[_-]?token|secret)([[:space:]]*[:=][[:space:]]*)['"]?[a-zA-Z0-9_\-./+=]{12,}['"]?`), "${1}${2}[REDACTED]"},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([[:space:]]*[:=][[:space:]]*)['"]?[^[:space:]'"]+['"]?`), "${1}${2}[REDACTED]"},
	{regexp.MustCompile(`(?i)(redis|rediss|https?)://([^:/@[:space:]]*):[^@[:space:]]+@`), "${1}://${2}:[REDACTED]@"},
	{regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:[ ]?[A-Z0-9]{4}){3,7}(?:[ ]?[A-Z0-9]{1,3})?\b`), "[REDACTED-IBAN]"},
	// Payment card numbers: 13-19 digits, optionally grouped by spaces or dashes.
	{regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`), "[REDACTED-PAN]"},
}

// Redact masks credentials and customer account numbers in s.
func Redact(s string) string {
	for _, r := range redactRules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// unredactedFields hold engine-generated identifiers.
var unredactedFields = map[string]bool{"run_id": true}

// redactFields returns a copy of fields with string values redacted.
func redactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && !unredactedFields[k] {
			v = Redact(s)
		}
		out[k] = v
	}
	return out
}
