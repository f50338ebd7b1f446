// Package discipline augments prompts with formatting and length
// constraints before generation. Pure string composition, no state.
package discipline

import (
	"fmt"
	"strings"

	"github.com/marketbeam/taskgate/internal/compliance"
	"github.com/marketbeam/taskgate/internal/domain"
)

// platformCharLimits bounds output length per delivery platform.
var platformCharLimits = map[string]int{
	"linkedin": 3000,
	"telegram": 4096,
	"email":    2000,
}

// Apply appends the response constraints for one task and scope to the
// caller's prompt. The returned prompt is what actually goes to the model.
func Apply(prompt string, task domain.Task, scope compliance.Scope) string {
	var constraints []string

	if task.IsClassificationStyle() {
		constraints = append(constraints,
			"Respond with a single JSON object and nothing else.",
			"Do not wrap the JSON in markdown fences.")
	} else {
		constraints = append(constraints,
			"Write complete sentences and finish your final thought.",
			"Do not include preamble such as \"Here is\" or \"Sure\".")
	}

	platform := strings.ToLower(scope.Platform)
	if limit, ok := platformCharLimits[platform]; ok {
		constraints = append(constraints, fmt.Sprintf("Keep the response under %d characters.", limit))
	}
	if platform == "linkedin" {
		constraints = append(constraints, "Do not place URLs in the body text.")
	}

	return prompt + "\n\nResponse requirements:\n- " + strings.Join(constraints, "\n- ")
}

// Tighten produces the stricter prompt used for the single regeneration
// attempt after a low-confidence response.
func Tighten(prompt string, task domain.Task) string {
	var extra string
	if task.IsClassificationStyle() {
		extra = "Your previous answer was not a valid JSON object. Return only a syntactically valid JSON object."
	} else {
		extra = "Your previous answer was incomplete or uncertain. Answer directly and completely, without hedging."
	}
	return prompt + "\n\n" + extra
}
