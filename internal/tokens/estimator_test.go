package tokens

import (
	"strings"
	"testing"
)

func TestEstimateEmptyText(t *testing.T) {
	e := NewEstimator()
	if got := e.Estimate("", "gpt-4o"); got != 0 {
		t.Errorf("Estimate(empty) = %d, want 0", got)
	}
}

func TestEstimateIsPositiveForText(t *testing.T) {
	e := NewEstimator()
	for _, model := range []string{"gpt-4o", "gpt-4.1", "gpt-3.5-turbo", "some-custom-model"} {
		got := e.Estimate("Summarize the quarterly performance report for the sales team.", model)
		if got <= 0 {
			t.Errorf("Estimate for %s = %d, want > 0", model, got)
		}
	}
}

func TestEstimateScalesWithLength(t *testing.T) {
	e := NewEstimator()
	short := e.Estimate("One sentence.", "gpt-4o")
	long := e.Estimate(strings.Repeat("A much longer body of text. ", 50), "gpt-4o")
	if long <= short {
		t.Errorf("longer text estimated at %d tokens, shorter at %d", long, short)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	e := NewEstimator()
	text := "Identical input must produce identical counts."
	if a, b := e.Estimate(text, "gpt-4o"), e.Estimate(text, "gpt-4o"); a != b {
		t.Errorf("estimates differ: %d vs %d", a, b)
	}
}

func TestHeuristicFloor(t *testing.T) {
	if got := heuristic("ab"); got != 1 {
		t.Errorf("heuristic(2 chars) = %d, want 1", got)
	}
	if got := heuristic(strings.Repeat("x", 400)); got != 100 {
		t.Errorf("heuristic(400 chars) = %d, want 100", got)
	}
}
