// Package domain holds the value types shared across the gateway:
// tasks, routes, assessments, and the canonical error taxonomy.
package domain

import (
	"fmt"
	"time"
)

// Task identifies the kind of work a caller is asking the gateway to do.
type Task string

const (
	TaskContentGeneration Task = "content_generation"
	TaskAnalysis          Task = "analysis"
	TaskSummarization     Task = "summarization"
	TaskClassification    Task = "classification"
	TaskScoring           Task = "scoring"
	TaskProjection        Task = "projection"
	TaskFiltering         Task = "filtering"
	TaskHealth            Task = "health"
)

// Valid reports whether t is a recognized task.
func (t Task) Valid() bool {
	switch t {
	case TaskContentGeneration, TaskAnalysis, TaskSummarization,
		TaskClassification, TaskScoring, TaskProjection, TaskFiltering, TaskHealth:
		return true
	}
	return false
}

// IsClassificationStyle reports whether the task is expected to produce
// structured (JSON object) output rather than prose.
func (t Task) IsClassificationStyle() bool {
	switch t {
	case TaskClassification, TaskScoring, TaskFiltering:
		return true
	}
	return false
}

// Priority expresses what the caller wants the router to optimize for.
type Priority string

const (
	PrioritySpeed   Priority = "speed"
	PriorityQuality Priority = "quality"
	PriorityCost    Priority = "cost"
)

// Tier is the capability class of a routed model.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierAccurate Tier = "accurate"
)

// Request is the inbound unit of work.
type Request struct {
	Task     Task           `json:"task"`
	Prompt   string         `json:"prompt"`
	CallerID string         `json:"caller_id,omitempty"`
	Priority Priority       `json:"priority,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Platform and Vertical scope the compliance policy applied to the
	// generated output. Empty values mean no vertical-specific rules.
	Platform string `json:"platform,omitempty"`
	Vertical string `json:"vertical,omitempty"`
}

// Validate checks the request invariants that hold for every path.
func (r *Request) Validate() error {
	if r.Task == "" {
		return ErrInvalidRequest("task is required")
	}
	if !r.Task.Valid() {
		return ErrInvalidRequest(fmt.Sprintf("unknown task %q", r.Task))
	}
	if r.Prompt == "" {
		return ErrInvalidRequest("prompt is required")
	}
	if r.CallerID == "" {
		return ErrInvalidRequest("caller_id is required")
	}
	return nil
}

// RouteDecision is the model/parameter combination chosen for one request.
// It is produced fresh per request and never mutated afterwards.
type RouteDecision struct {
	Model       string  `json:"model"`
	Tier        Tier    `json:"tier"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Reason      string  `json:"reason"`
}

// SuggestedAction is the confidence gate's verdict on a generated response.
type SuggestedAction string

const (
	ActionProceed  SuggestedAction = "proceed"
	ActionClarify  SuggestedAction = "clarify"
	ActionFallback SuggestedAction = "fallback"
)

// ConfidenceAssessment scores a generated response. Derived purely from
// the response text and task type; identical inputs always yield
// identical assessments.
type ConfidenceAssessment struct {
	Score           float64         `json:"score"`
	IsConfident     bool            `json:"is_confident"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
}

// ComplianceResult is the output of the compliance filter. Content is the
// (possibly rewritten) text; Violations records which forbidden phrases
// were found, in rule order, for audit purposes.
type ComplianceResult struct {
	Content                string   `json:"content"`
	Violations             []string `json:"violations"`
	AccessibilityReminders []string `json:"accessibility_reminders"`
}

// RateLimitSnapshot is the limiter state returned alongside a decision so
// callers can schedule retries precisely.
type RateLimitSnapshot struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Usage is the token consumption reported for one completed generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total returns the combined token count.
func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }
