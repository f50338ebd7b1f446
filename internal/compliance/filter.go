// Package compliance scans and rewrites generated text against platform-
// and vertical-specific forbidden-phrase rules.
package compliance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/marketbeam/taskgate/internal/domain"
)

// Scope identifies which policy applies to a piece of content.
type Scope struct {
	Platform string
	Vertical string
}

// Rule forbids one phrase within a policy scope. Matching is
// case-insensitive substring matching. Replacement may be empty, in which
// case the phrase is stripped; it must never itself contain a forbidden
// phrase, or filtering would not be idempotent.
type Rule struct {
	Phrase      string
	Replacement string
}

// Policy is the rule set for one (platform, vertical) pair.
type Policy struct {
	Rules []Rule

	// Reminders are advisory strings always surfaced for the platform,
	// whether or not a violation fired.
	Reminders []string
}

// Filter applies per-scope policies to generated content.
type Filter struct {
	// policies keyed by platform|vertical; the "platform|" entry (empty
	// vertical) applies to every vertical on that platform.
	policies map[string]Policy
}

// New creates a Filter with the built-in policy table plus any extra
// config-supplied policies merged on top.
func New(extra map[string]Policy) *Filter {
	policies := builtinPolicies()
	for key, p := range extra {
		merged := policies[key]
		merged.Rules = append(merged.Rules, p.Rules...)
		merged.Reminders = append(merged.Reminders, p.Reminders...)
		policies[key] = merged
	}
	return &Filter{policies: policies}
}

// Apply filters content for the given scope. The returned content contains
// none of the scope's forbidden phrases; re-applying the filter to its own
// output yields zero new violations.
func (f *Filter) Apply(content string, scope Scope) domain.ComplianceResult {
	result := domain.ComplianceResult{
		Content:                content,
		Violations:             []string{},
		AccessibilityReminders: []string{},
	}

	platformKey := strings.ToLower(scope.Platform) + "|"
	scopedKey := platformKey + strings.ToLower(scope.Vertical)

	keys := []string{platformKey}
	if scopedKey != platformKey {
		keys = append(keys, scopedKey)
	}

	for _, key := range keys {
		policy, ok := f.policies[key]
		if !ok {
			continue
		}
		for _, rule := range policy.Rules {
			cleaned, found := replaceFold(result.Content, rule.Phrase, rule.Replacement)
			if found {
				result.Violations = append(result.Violations, rule.Phrase)
				result.Content = cleaned
			}
		}
		result.AccessibilityReminders = append(result.AccessibilityReminders, policy.Reminders...)
	}

	return result
}

// replaceFold replaces every case-insensitive occurrence of phrase in
// content and reports whether any was found. The scan walks content rune
// by rune rather than lowercasing the whole string, because case mapping
// can change byte lengths and would misalign match offsets.
func replaceFold(content, phrase, replacement string) (string, bool) {
	if phrase == "" {
		return content, false
	}

	var b strings.Builder
	found := false
	for i := 0; i < len(content); {
		if n := foldPrefixLen(content[i:], phrase); n > 0 {
			found = true
			b.WriteString(replacement)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(content[i:])
		b.WriteString(content[i : i+size])
		i += size
	}
	if !found {
		return content, false
	}
	return collapseSpaces(b.String()), true
}

// foldPrefixLen returns the byte length of the prefix of s that matches
// phrase case-insensitively, or 0 when s does not start with phrase.
func foldPrefixLen(s, phrase string) int {
	n := 0
	for _, pr := range phrase {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0
		}
		if r != pr && unicode.ToLower(r) != unicode.ToLower(pr) {
			return 0
		}
		n += size
	}
	return n
}

// collapseSpaces tidies the seams left by stripped phrases: runs of spaces
// become one, and spaces before punctuation are dropped.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteRune(r)
			continue
		}
		if prevSpace && (r == ',' || r == '.' || r == ';' || r == ':' || r == '!' || r == '?') {
			out := b.String()
			b.Reset()
			b.WriteString(out[:len(out)-1])
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
