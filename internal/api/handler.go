// Package api exposes the gateway's request operation over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marketbeam/taskgate/internal/delivery"
	"github.com/marketbeam/taskgate/internal/domain"
	"github.com/marketbeam/taskgate/internal/gateway"
	"github.com/marketbeam/taskgate/internal/server"
)

// Handler handles task submission requests.
type Handler struct {
	orchestrator *gateway.Orchestrator
	dispatcher   *delivery.Dispatcher
	logger       *slog.Logger
}

// NewHandler creates a task API handler. dispatcher may be nil when no
// outbound channels are configured.
func NewHandler(o *gateway.Orchestrator, dispatcher *delivery.Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orchestrator: o, dispatcher: dispatcher, logger: logger}
}

// Routes mounts the handler's endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/tasks", h.HandleSubmitTask)
	r.Get("/healthz", h.HandleHealth)
}

// taskRequest is the wire form of a task submission.
type taskRequest struct {
	Task     string            `json:"task"`
	Prompt   string            `json:"prompt"`
	CallerID string            `json:"caller_id"`
	Priority string            `json:"priority,omitempty"`
	Platform string         `json:"platform,omitempty"`
	Vertical string         `json:"vertical,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Optional outbound delivery. When JobID and Channel are set, the
	// validated content is dispatched through the named channel with
	// at-most-once semantics per logical job.
	JobID     string `json:"job_id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Variant   string `json:"variant,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// taskResponse is the wire form of a delivered decision.
type taskResponse struct {
	Content            string   `json:"content"`
	Model              string   `json:"model"`
	Tier               string   `json:"tier"`
	CostUSD            float64  `json:"cost_usd"`
	Confidence         float64  `json:"confidence"`
	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Violations         []string `json:"violations,omitempty"`
	Reminders          []string `json:"reminders,omitempty"`
	Delivered          *bool    `json:"delivered,omitempty"`
}

// HandleSubmitTask handles POST /v1/tasks.
func (h *Handler) HandleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var wire taskRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		h.writeError(w, domain.ErrInvalidRequest("invalid request body: "+err.Error()))
		return
	}

	req := domain.Request{
		Task:     domain.Task(wire.Task),
		Prompt:   wire.Prompt,
		CallerID: wire.CallerID,
		Priority: domain.Priority(wire.Priority),
		Platform: wire.Platform,
		Vertical: wire.Vertical,
		Metadata: wire.Metadata,
	}

	decision, err := h.orchestrator.Handle(r.Context(), req)
	if decision.RateLimit.Limit > 0 {
		server.SetRateLimit(r.Context(), decision.RateLimit)
	}
	server.AddLogField(r.Context(), "task", wire.Task)
	server.AddLogField(r.Context(), "caller_id", wire.CallerID)
	server.AddLogField(r.Context(), "model", decision.Model)

	if err != nil {
		server.AddError(r.Context(), err)
		h.writeError(w, err)
		return
	}

	resp := taskResponse{
		Content:            decision.Content,
		Model:              decision.Model,
		Tier:               string(decision.Tier),
		CostUSD:            decision.CostUSD,
		Confidence:         decision.Confidence,
		NeedsClarification: decision.NeedsClarification,
		Violations:         decision.Violations,
		Reminders:          decision.Reminders,
	}

	if h.dispatcher != nil && wire.JobID != "" && wire.Channel != "" {
		delivered, dispatchErr := h.dispatcher.Dispatch(r.Context(), delivery.Message{
			JobID:     wire.JobID,
			Channel:   wire.Channel,
			Variant:   wire.Variant,
			Recipient: wire.Recipient,
			Body:      decision.Content,
		})
		if dispatchErr != nil {
			server.AddError(r.Context(), dispatchErr)
			h.writeError(w, domain.ErrProvider("delivery failed: "+dispatchErr.Error()))
			return
		}
		resp.Delivered = &delivered
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var gerr *domain.GatewayError
	if !errors.As(err, &gerr) {
		gerr = domain.ErrProvider(err.Error())
	}

	body := map[string]any{
		"code":    gerr.Code,
		"message": gerr.Message,
	}
	if !gerr.ResetAt.IsZero() {
		body["reset_at"] = gerr.ResetAt.UTC().Format(time.RFC3339)
	}
	if len(gerr.Details) > 0 {
		body["details"] = gerr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gerr.HTTPStatusCode())
	json.NewEncoder(w).Encode(map[string]any{"error": body})
}
