package router

import (
	"testing"

	"github.com/marketbeam/taskgate/internal/domain"
)

func TestRouteDecisionTable(t *testing.T) {
	r := New(DefaultCatalog())

	tests := []struct {
		name          string
		task          domain.Task
		priority      domain.Priority
		payloadTokens int
		wantTier      domain.Tier
		wantTemp      float64
		wantMaxTokens int
	}{
		{
			name:          "cost priority caps fast tier",
			task:          domain.TaskFiltering,
			priority:      domain.PriorityCost,
			payloadTokens: 1000,
			wantTier:      domain.TierFast,
			wantTemp:      0,
			wantMaxTokens: 2000,
		},
		{
			name:          "cost priority hits hard cap",
			task:          domain.TaskFiltering,
			priority:      domain.PriorityCost,
			payloadTokens: 3000,
			wantTier:      domain.TierFast,
			wantTemp:      0,
			wantMaxTokens: 2048,
		},
		{
			name:          "quality widens ceiling with payload",
			task:          domain.TaskContentGeneration,
			priority:      domain.PriorityQuality,
			payloadTokens: 1500,
			wantTier:      domain.TierAccurate,
			wantTemp:      0.7,
			wantMaxTokens: 3000,
		},
		{
			name:          "quality hard cap",
			task:          domain.TaskContentGeneration,
			priority:      domain.PriorityQuality,
			payloadTokens: 5000,
			wantTier:      domain.TierAccurate,
			wantTemp:      0.7,
			wantMaxTokens: 4096,
		},
		{
			name:          "speed default with default payload",
			task:          domain.TaskSummarization,
			priority:      "",
			payloadTokens: 0,
			wantTier:      domain.TierBalanced,
			wantTemp:      0.3,
			wantMaxTokens: 1024,
		},
		{
			name:          "health is always deterministic",
			task:          domain.TaskHealth,
			priority:      domain.PrioritySpeed,
			payloadTokens: 100,
			wantTier:      domain.TierBalanced,
			wantTemp:      0,
			wantMaxTokens: 200,
		},
		{
			name:          "classification stays deterministic on quality",
			task:          domain.TaskClassification,
			priority:      domain.PriorityQuality,
			payloadTokens: 100,
			wantTier:      domain.TierAccurate,
			wantTemp:      0,
			wantMaxTokens: 200,
		},
		{
			name:          "unrecognized priority falls back to balanced",
			task:          domain.TaskAnalysis,
			priority:      domain.Priority("turbo"),
			payloadTokens: 400,
			wantTier:      domain.TierBalanced,
			wantTemp:      0.3,
			wantMaxTokens: 800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Route(tt.task, tt.priority, tt.payloadTokens)
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %s, want %s", got.Tier, tt.wantTier)
			}
			if got.Temperature != tt.wantTemp {
				t.Errorf("Temperature = %v, want %v", got.Temperature, tt.wantTemp)
			}
			if got.MaxTokens != tt.wantMaxTokens {
				t.Errorf("MaxTokens = %d, want %d", got.MaxTokens, tt.wantMaxTokens)
			}
			if got.Model == "" {
				t.Error("Model should never be empty")
			}
			if got.Reason == "" {
				t.Error("Reason should never be empty")
			}
		})
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	r := New(DefaultCatalog())
	a := r.Route(domain.TaskAnalysis, domain.PriorityQuality, 777)
	b := r.Route(domain.TaskAnalysis, domain.PriorityQuality, 777)
	if a != b {
		t.Errorf("identical inputs produced different routes: %+v vs %+v", a, b)
	}
}

func TestRouteUsesCatalogOverrides(t *testing.T) {
	r := New(Catalog{Fast: "tiny-1", Balanced: "mid-1", Accurate: "big-1"})
	if got := r.Route(domain.TaskAnalysis, domain.PriorityCost, 100).Model; got != "tiny-1" {
		t.Errorf("cost route model = %s, want tiny-1", got)
	}
	if got := r.Route(domain.TaskAnalysis, domain.PriorityQuality, 100).Model; got != "big-1" {
		t.Errorf("quality route model = %s, want big-1", got)
	}
	if got := r.Route(domain.TaskAnalysis, domain.PrioritySpeed, 100).Model; got != "mid-1" {
		t.Errorf("speed route model = %s, want mid-1", got)
	}
}
