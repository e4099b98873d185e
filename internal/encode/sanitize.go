package encode

import "regexp"

// Rule is a single redaction pattern. Matches are replaced with a visible
// placeholder naming the rule, so redacted content is distinguishable from
// genuinely absent content.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Ruleset is an ordered list of redaction rules, applied in order.
type Ruleset []Rule

// DefaultRuleset covers the common PII and credential shapes: email addresses,
// phone numbers, and key-like bearer tokens. Credential rules run before the
// phone rule so digit runs inside a key are not misread as phone numbers.
// Sanitization is opt-in; the engine never applies a ruleset unless the
// caller asked for it.
func DefaultRuleset() Ruleset {
	return Ruleset{
		{Name: "email", Pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
		{Name: "api_key", Pattern: regexp.MustCompile(`(?i)\b(?:sk|pk|rk|key|token)[-_][A-Za-z0-9\-_]{16,}\b`)},
		{Name: "bearer", Pattern: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)},
		{Name: "phone", Pattern: regexp.MustCompile(`\+?\d[\d\s\-().]{7,}\d`)},
	}
}

// Sanitize applies rs to s, replacing every match with "[REDACTED:<rule>]".
// An empty ruleset returns s unchanged.
func Sanitize(s string, rs Ruleset) string {
	for _, rule := range rs {
		s = rule.Pattern.ReplaceAllString(s, "[REDACTED:"+rule.Name+"]")
	}
	return s
}
