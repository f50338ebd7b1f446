// Package confidence scores generated text and classifies it as
// safe-to-return, needs-clarification, or must-fallback.
package confidence

import (
	"encoding/json"
	"strings"

	"github.com/marketbeam/taskgate/internal/domain"
)

// Scoring starts from a perfect 1.0 and subtracts fixed penalties. The
// floor is 0.0: penalties clamp, the score is never negative.
const (
	penaltyHedging   = 0.2
	penaltyLength    = 0.2
	penaltyTruncated = 0.1
	penaltyNotJSON   = 0.4

	minAcceptableLen = 50
	maxAcceptableLen = 5000

	// ProceedThreshold is the default confidence threshold.
	ProceedThreshold = 0.7
	clarifyThreshold = 0.5
	scoreFloor       = 0.0
)

// hedgingTerms flag output where the model is visibly unsure of itself.
var hedgingTerms = []string{
	"i'm not sure",
	"i am not sure",
	"i cannot determine",
	"i can't determine",
	"it's unclear",
	"it is unclear",
	"i don't know",
	"as an ai",
	"i'm unable to",
	"i am unable to",
	"might be wrong",
}

// terminalRunes are accepted as a well-formed ending for prose or
// structured output.
const terminalRunes = ".!?\"'`)]}>"

// Assess scores responseText for the given task. Pure function: identical
// inputs always yield identical assessments.
func Assess(responseText string, task domain.Task) domain.ConfidenceAssessment {
	score := 1.0

	lower := strings.ToLower(responseText)
	for _, term := range hedgingTerms {
		if strings.Contains(lower, term) {
			score -= penaltyHedging
			break
		}
	}

	if n := len(responseText); n < minAcceptableLen || n > maxAcceptableLen {
		score -= penaltyLength
	}

	if looksTruncated(responseText) {
		score -= penaltyTruncated
	}

	if task.IsClassificationStyle() && !isJSONObject(responseText) {
		score -= penaltyNotJSON
	}

	if score < scoreFloor {
		score = scoreFloor
	}

	return domain.ConfidenceAssessment{
		Score:           score,
		IsConfident:     score >= ProceedThreshold,
		SuggestedAction: actionFor(score),
	}
}

func actionFor(score float64) domain.SuggestedAction {
	switch {
	case score >= ProceedThreshold:
		return domain.ActionProceed
	case score >= clarifyThreshold:
		return domain.ActionClarify
	default:
		return domain.ActionFallback
	}
}

// looksTruncated reports whether the text ends mid-thought: a trailing
// ellipsis or no terminal punctuation at all.
func looksTruncated(text string) bool {
	trimmed := strings.TrimRight(text, " \t\n\r")
	if trimmed == "" {
		return true
	}
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
		return true
	}
	last := trimmed[len(trimmed)-1]
	return !strings.ContainsRune(terminalRunes, rune(last))
}

// isJSONObject reports whether the text parses as a JSON object. The
// brace check rules out bare "null", which unmarshals into a map without
// error.
func isJSONObject(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(trimmed), &obj) == nil
}
