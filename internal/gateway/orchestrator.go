// Package gateway composes admission control, routing, generation, and
// output validation into the single path every AI-backed request takes.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketbeam/taskgate/internal/budget"
	"github.com/marketbeam/taskgate/internal/compliance"
	"github.com/marketbeam/taskgate/internal/confidence"
	"github.com/marketbeam/taskgate/internal/discipline"
	"github.com/marketbeam/taskgate/internal/domain"
	"github.com/marketbeam/taskgate/internal/provider"
	"github.com/marketbeam/taskgate/internal/ratelimit"
	"github.com/marketbeam/taskgate/internal/router"
	"github.com/marketbeam/taskgate/internal/tokens"
)

// State is a step in the request lifecycle. Transitions are logged so a
// rejected request can be traced to the exact gate that stopped it.
type State string

const (
	StateReceived       State = "RECEIVED"
	StateAdmitted       State = "ADMITTED"
	StateRouted         State = "ROUTED"
	StateGenerated      State = "GENERATED"
	StateValidated      State = "VALIDATED"
	StateDelivered      State = "DELIVERED"
	StateRejected       State = "REJECTED"
	StateRetryScheduled State = "RETRY_SCHEDULED"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond

	// defaultPricePerThousand is the spend rate applied to models missing
	// from the pricing table.
	defaultPricePerThousand = 0.01
)

// Decision is what the orchestrator hands back to the caller.
type Decision struct {
	State              State                    `json:"state"`
	Content            string                   `json:"content,omitempty"`
	Model              string                   `json:"model,omitempty"`
	Tier               domain.Tier              `json:"tier,omitempty"`
	CostUSD            float64                  `json:"cost_usd"`
	Confidence         float64                  `json:"confidence"`
	NeedsClarification bool                     `json:"needs_clarification,omitempty"`
	Violations         []string                 `json:"violations,omitempty"`
	Reminders          []string                 `json:"reminders,omitempty"`
	RateLimit          domain.RateLimitSnapshot `json:"rate_limit"`
}

// Params collects the orchestrator's collaborators. Limiter, Ledger,
// Router, Generator, and Filter are required.
type Params struct {
	Limiter   *ratelimit.Limiter
	Ledger    *budget.Ledger
	Router    *router.Router
	Generator provider.Generator
	Filter    *compliance.Filter
	Estimator *tokens.Estimator
	Logger    *slog.Logger

	// DailyLimit is the per-caller request ceiling per UTC day.
	DailyLimit int

	// PricePerThousand maps model id to USD per 1000 tokens.
	PricePerThousand map[string]float64

	// MaxAttempts bounds generation retries; BackoffBase seeds the
	// exponential backoff between them.
	MaxAttempts int
	BackoffBase time.Duration
}

// Orchestrator owns the runtime state of the gateway: the only mutable
// pieces are the limiter's counters and the ledger's accumulator, each of
// which owns its own locking. Requests are otherwise independent and run
// concurrently; admission for one caller never waits on another caller's
// in-flight generation.
type Orchestrator struct {
	limiter     *ratelimit.Limiter
	ledger      *budget.Ledger
	router      *router.Router
	generator   provider.Generator
	filter      *compliance.Filter
	estimator   *tokens.Estimator
	logger      *slog.Logger
	tracer      trace.Tracer
	dailyLimit  int
	pricing     map[string]float64
	maxAttempts int
	backoffBase time.Duration

	// sleep is swapped out in tests so backoff does not slow them down.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator from params, applying defaults for the
// optional fields.
func New(p Params) *Orchestrator {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Estimator == nil {
		p.Estimator = tokens.NewEstimator()
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}
	return &Orchestrator{
		limiter:     p.Limiter,
		ledger:      p.Ledger,
		router:      p.Router,
		generator:   p.Generator,
		filter:      p.Filter,
		estimator:   p.Estimator,
		logger:      p.Logger,
		tracer:      otel.Tracer("taskgate/gateway"),
		dailyLimit:  p.DailyLimit,
		pricing:     p.PricePerThousand,
		maxAttempts: p.MaxAttempts,
		backoffBase: p.BackoffBase,
		sleep:       sleepCtx,
	}
}

// Handle runs one request through the full state machine. On rejection the
// returned Decision carries the terminal state and any accumulated cost,
// and err is a *domain.GatewayError with the reason code.
func (o *Orchestrator) Handle(ctx context.Context, req domain.Request) (Decision, error) {
	ctx, span := o.tracer.Start(ctx, "gateway.Handle")
	defer span.End()

	state := StateReceived
	decision := Decision{State: state}

	if err := req.Validate(); err != nil {
		decision.State = StateRejected
		return decision, err
	}

	// Admission: rate limit first (cheap), then budget.
	rl, err := o.limiter.Check(ctx, req.CallerID, o.dailyLimit)
	if err != nil {
		decision.State = StateRejected
		return decision, domain.ErrAdmissionUnavailable("rate limit store unavailable")
	}
	decision.RateLimit = rl
	if !rl.Allowed {
		o.transition(ctx, req, state, StateRejected, "rate_limited")
		decision.State = StateRejected
		return decision, domain.ErrRateLimited(
			fmt.Sprintf("caller %s exceeded %d requests for the current window", req.CallerID, rl.Limit),
		).WithResetAt(rl.ResetAt)
	}

	if st := o.ledger.Status(); st.Exceeded {
		o.transition(ctx, req, state, StateRejected, "budget_exceeded")
		decision.State = StateRejected
		return decision, domain.ErrBudgetExceeded(
			fmt.Sprintf("period spend %.6f USD exceeds cap %.2f USD", st.SpentUSD, st.CapUSD),
		).WithDetail("cap_usd", st.CapUSD).WithDetail("spent_usd", st.SpentUSD)
	}
	state = o.transition(ctx, req, state, StateAdmitted, "")

	// Routing is a pure function; it cannot fail.
	scope := compliance.Scope{Platform: req.Platform, Vertical: req.Vertical}
	prompt := discipline.Apply(req.Prompt, req.Task, scope)
	payloadTokens := o.estimator.Estimate(prompt, "")
	route := o.router.Route(req.Task, req.Priority, payloadTokens)
	decision.Model = route.Model
	decision.Tier = route.Tier
	state = o.transition(ctx, req, state, StateRouted, route.Reason)

	gen, err := o.generateWithRetry(ctx, req, route, prompt)
	if err != nil {
		decision.State = StateRejected
		return decision, err
	}
	decision.CostUSD += o.recordSpend(route.Model, gen.Usage)
	state = o.transition(ctx, req, state, StateGenerated, "")

	// Confidence before compliance: a response we are going to discard is
	// not worth filtering.
	assessment := confidence.Assess(gen.Text, req.Task)
	if assessment.SuggestedAction == domain.ActionFallback {
		// Policy: exactly one regeneration with a tightened prompt,
		// then reject.
		o.logger.Info("low confidence, regenerating once",
			slog.String("caller_id", req.CallerID),
			slog.Float64("score", assessment.Score),
		)
		regen, regenErr := o.generateWithRetry(ctx, req, route, discipline.Tighten(prompt, req.Task))
		if regenErr != nil {
			decision.State = StateRejected
			return decision, regenErr
		}
		decision.CostUSD += o.recordSpend(route.Model, regen.Usage)

		assessment = confidence.Assess(regen.Text, req.Task)
		if assessment.SuggestedAction == domain.ActionFallback {
			o.transition(ctx, req, state, StateRejected, "low_confidence")
			decision.State = StateRejected
			decision.Confidence = assessment.Score
			return decision, domain.ErrLowConfidence(
				fmt.Sprintf("response scored %.2f after regeneration", assessment.Score),
			)
		}
		gen = regen
	}
	decision.Confidence = assessment.Score
	decision.NeedsClarification = assessment.SuggestedAction == domain.ActionClarify

	// Compliance violations never block delivery: the cleaned content
	// ships and the violations ride along as an audit record.
	result := o.filter.Apply(gen.Text, scope)
	decision.Content = result.Content
	decision.Violations = result.Violations
	decision.Reminders = result.AccessibilityReminders
	state = o.transition(ctx, req, state, StateValidated, "")

	o.transition(ctx, req, state, StateDelivered, "")
	decision.State = StateDelivered
	span.SetAttributes(
		attribute.String("taskgate.model", route.Model),
		attribute.Float64("taskgate.cost_usd", decision.CostUSD),
	)
	return decision, nil
}

// generateWithRetry calls the generator with bounded exponential backoff.
// Only transient provider failures are retried; terminal failures and
// context cancellation surface immediately.
func (o *Orchestrator) generateWithRetry(ctx context.Context, req domain.Request, route domain.RouteDecision, prompt string) (provider.Generation, error) {
	ctx, span := o.tracer.Start(ctx, "gateway.generate",
		trace.WithAttributes(attribute.String("taskgate.model", route.Model)))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		gen, err := o.generator.Generate(ctx, route, prompt)
		if err == nil {
			return gen, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// A cancelled call never completed, so nothing is recorded
			// against the budget.
			return provider.Generation{}, domain.ErrProvider("generation cancelled before completion")
		}
		if !provider.IsTransient(err) {
			return provider.Generation{}, domain.ErrProvider(err.Error())
		}
		if attempt == o.maxAttempts {
			break
		}

		backoff := o.backoffBase * (1 << (attempt - 1))
		o.transition(ctx, req, StateRouted, StateRetryScheduled,
			fmt.Sprintf("attempt %d failed, retrying in %s", attempt, backoff))
		if err := o.sleep(ctx, backoff); err != nil {
			return provider.Generation{}, domain.ErrProvider("generation cancelled during backoff")
		}
	}
	return provider.Generation{}, domain.ErrProvider(
		fmt.Sprintf("provider failed after %d attempts: %v", o.maxAttempts, lastErr),
	)
}

// recordSpend accounts a completed generation and returns its cost.
func (o *Orchestrator) recordSpend(model string, usage domain.Usage) float64 {
	price, ok := o.pricing[model]
	if !ok {
		price = defaultPricePerThousand
	}
	cost := budget.Cost(usage.Total(), price)
	o.ledger.RecordSpend(cost)
	return cost
}

func (o *Orchestrator) transition(ctx context.Context, req domain.Request, from, to State, reason string) State {
	attrs := []slog.Attr{
		slog.String("caller_id", req.CallerID),
		slog.String("task", string(req.Task)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "state transition", attrs...)
	return to
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
