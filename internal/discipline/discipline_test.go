package discipline

import (
	"strings"
	"testing"

	"github.com/marketbeam/taskgate/internal/compliance"
	"github.com/marketbeam/taskgate/internal/domain"
)

func TestApplyAddsStructuredConstraints(t *testing.T) {
	got := Apply("Classify this lead.", domain.TaskClassification, compliance.Scope{})
	if !strings.HasPrefix(got, "Classify this lead.") {
		t.Errorf("original prompt must be preserved, got %q", got)
	}
	if !strings.Contains(got, "single JSON object") {
		t.Errorf("classification constraint missing: %q", got)
	}
}

func TestApplyAddsPlatformLimits(t *testing.T) {
	got := Apply("Write a post.", domain.TaskContentGeneration, compliance.Scope{Platform: "LinkedIn"})
	if !strings.Contains(got, "under 3000 characters") {
		t.Errorf("linkedin char limit missing: %q", got)
	}
	if !strings.Contains(got, "Do not place URLs in the body text.") {
		t.Errorf("linkedin link constraint missing: %q", got)
	}
}

func TestApplyUnknownPlatformHasNoLimit(t *testing.T) {
	got := Apply("Write a post.", domain.TaskContentGeneration, compliance.Scope{Platform: "fax"})
	if strings.Contains(got, "characters") {
		t.Errorf("unexpected char limit for unknown platform: %q", got)
	}
}

func TestTightenMentionsPreviousFailure(t *testing.T) {
	prose := Tighten("Summarize the report.", domain.TaskSummarization)
	if !strings.Contains(prose, "without hedging") {
		t.Errorf("prose tightening missing: %q", prose)
	}
	structured := Tighten("Score this post.", domain.TaskScoring)
	if !strings.Contains(structured, "valid JSON object") {
		t.Errorf("structured tightening missing: %q", structured)
	}
}
