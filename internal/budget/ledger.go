// Package budget tracks generation spend against a periodic cap.
package budget

import (
	"math"
	"sync"
	"time"
)

// usdPrecision fixes recorded amounts to six decimal places so that many
// small additions do not accumulate floating drift.
const usdPrecision = 1e6

// Status is a point-in-time view of the ledger.
type Status struct {
	SpentUSD     float64   `json:"spent_usd"`
	CapUSD       float64   `json:"cap_usd"`
	RemainingUSD float64   `json:"remaining_usd"`
	Exceeded     bool      `json:"exceeded"`
	PeriodStart  time.Time `json:"period_start"`
}

// Ledger accumulates spend for one scope. Safe for concurrent use; the
// mutex is never held across any external call.
type Ledger struct {
	mu          sync.Mutex
	spentUSD    float64
	capUSD      float64
	periodStart time.Time
}

// NewLedger creates a ledger with the given period cap in USD.
func NewLedger(capUSD float64) *Ledger {
	return &Ledger{
		capUSD:      capUSD,
		periodStart: time.Now().UTC(),
	}
}

// RecordSpend adds amountUSD to the period total. The triggering call is
// always accounted, even when it crosses the cap; admission of the next
// request is where exceeded takes effect.
func (l *Ledger) RecordSpend(amountUSD float64) {
	if amountUSD <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spentUSD = roundUSD(l.spentUSD + amountUSD)
}

// Status reports the current period's spend against the cap.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := roundUSD(l.capUSD - l.spentUSD)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		SpentUSD:     l.spentUSD,
		CapUSD:       l.capUSD,
		RemainingUSD: remaining,
		Exceeded:     l.spentUSD > l.capUSD,
		PeriodStart:  l.periodStart,
	}
}

// Reset clears the period total at a period boundary.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spentUSD = 0
	l.periodStart = time.Now().UTC()
}

// Cost converts token usage into USD at a per-thousand-token price.
func Cost(tokens int, pricePerThousandUSD float64) float64 {
	return roundUSD(float64(tokens) / 1000 * pricePerThousandUSD)
}

func roundUSD(v float64) float64 {
	return math.Round(v*usdPrecision) / usdPrecision
}
