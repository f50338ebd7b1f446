// Package delivery routes side-effecting jobs (posting content, sending
// messages) to outbound channel adapters. Channels are capabilities, not
// concrete clients; the dispatcher's job is to make delivery safe to
// retry by deduplicating on the job's idempotency key.
package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marketbeam/taskgate/internal/idempotency"
)

// Message is one outbound delivery job. JobID and Variant identify the
// logical job; resubmitting the same logical job after a timeout must not
// double-deliver.
type Message struct {
	JobID     string
	Channel   string
	Variant   string
	Recipient string
	Body      string
}

// Channel is the outbound capability interface (email, telegram,
// linkedin). Implementations may fail transiently; callers resubmit.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher fans messages out to registered channels with at-most-once
// semantics per logical job.
type Dispatcher struct {
	channels map[string]Channel
	exec     *idempotency.Executor
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(exec *idempotency.Executor, logger *slog.Logger, channels ...Channel) *Dispatcher {
	m := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		m[ch.Name()] = ch
	}
	return &Dispatcher{channels: m, exec: exec, logger: logger}
}

// Dispatch delivers msg through its channel unless the same logical job
// already ran. It reports whether a delivery actually happened.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (bool, error) {
	ch, ok := d.channels[msg.Channel]
	if !ok {
		return false, fmt.Errorf("unknown delivery channel %q", msg.Channel)
	}

	key := idempotency.Key(msg.JobID, msg.Channel, msg.Variant, []byte(msg.Body))
	delivered, err := d.exec.Do(ctx, key, func(ctx context.Context) error {
		return ch.Deliver(ctx, msg)
	})
	if err != nil {
		return false, fmt.Errorf("deliver via %s: %w", msg.Channel, err)
	}

	if !delivered {
		d.logger.Info("duplicate job suppressed",
			slog.String("job_id", msg.JobID),
			slog.String("channel", msg.Channel),
			slog.String("idempotency_key", key),
		)
	}
	return delivered, nil
}
