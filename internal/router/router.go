// Package router maps a (task, priority, payload size) tuple onto a
// concrete model configuration. Routing is a pure decision table: no
// network access, no state, no failure path.
package router

import (
	"fmt"

	"github.com/marketbeam/taskgate/internal/domain"
)

const (
	// DefaultPayloadTokens is assumed when the caller gives no estimate.
	DefaultPayloadTokens = 512

	// Token ceilings per priority. The output budget is twice the payload
	// estimate, capped at the tier's hard maximum.
	maxTokensQuality = 4096
	maxTokensCost    = 2048
	maxTokensDefault = 1024
)

// Catalog maps each tier to a concrete model identifier. Values come from
// config with these defaults.
type Catalog struct {
	Fast     string
	Balanced string
	Accurate string
}

// DefaultCatalog is used when config supplies no overrides.
func DefaultCatalog() Catalog {
	return Catalog{
		Fast:     "gpt-4o-mini",
		Balanced: "gpt-4o",
		Accurate: "gpt-4.1",
	}
}

func (c Catalog) model(tier domain.Tier) string {
	switch tier {
	case domain.TierFast:
		return c.Fast
	case domain.TierAccurate:
		return c.Accurate
	default:
		return c.Balanced
	}
}

// Router selects routes from a static decision table.
type Router struct {
	catalog Catalog
}

// New creates a Router over the given model catalog.
func New(catalog Catalog) *Router {
	if catalog == (Catalog{}) {
		catalog = DefaultCatalog()
	}
	return &Router{catalog: catalog}
}

// Route picks the model configuration for one request. An empty priority
// defaults to speed; an unrecognized priority falls back to the balanced
// route rather than failing. payloadTokens <= 0 uses DefaultPayloadTokens.
func (r *Router) Route(task domain.Task, priority domain.Priority, payloadTokens int) domain.RouteDecision {
	if payloadTokens <= 0 {
		payloadTokens = DefaultPayloadTokens
	}
	if priority == "" {
		priority = domain.PrioritySpeed
	}

	switch priority {
	case domain.PriorityQuality:
		return domain.RouteDecision{
			Model:       r.catalog.model(domain.TierAccurate),
			Tier:        domain.TierAccurate,
			Temperature: temperatureFor(task, 0.7),
			MaxTokens:   outputBudget(payloadTokens, maxTokensQuality),
			Reason:      fmt.Sprintf("quality priority for %s", task),
		}
	case domain.PriorityCost:
		return domain.RouteDecision{
			Model:       r.catalog.model(domain.TierFast),
			Tier:        domain.TierFast,
			Temperature: 0,
			MaxTokens:   outputBudget(payloadTokens, maxTokensCost),
			Reason:      fmt.Sprintf("cost priority for %s", task),
		}
	default:
		// Speed and anything unrecognized take the balanced route.
		return domain.RouteDecision{
			Model:       r.catalog.model(domain.TierBalanced),
			Tier:        domain.TierBalanced,
			Temperature: temperatureFor(task, 0.3),
			MaxTokens:   outputBudget(payloadTokens, maxTokensDefault),
			Reason:      fmt.Sprintf("balanced default for %s", task),
		}
	}
}

// outputBudget widens the token ceiling proportional to payload size,
// capped at the tier's hard maximum.
func outputBudget(payloadTokens, cap int) int {
	budget := payloadTokens * 2
	if budget > cap {
		return cap
	}
	return budget
}

// temperatureFor applies the task-specific overrides: structured tasks
// and health checks always run deterministic.
func temperatureFor(task domain.Task, base float64) float64 {
	if task == domain.TaskHealth || task.IsClassificationStyle() {
		return 0
	}
	return base
}
