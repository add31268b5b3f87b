package events

import (
	"context"
	"log/slog"

	"hemobank/pkg/requestcontext"
)

// Publisher accepts events from domain services. Publishing must never block
// or fail a domain operation; the state change has already committed.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// ChannelPublisher buffers events on a channel for the worker to drain. When
// the buffer is full the event is dropped with a warning rather than stalling
// the caller.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelPublisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) {
	if event.Correlation == "" {
		event.Correlation = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "event buffer full, dropping event",
			"type", event.Type,
			"unit_id", event.UnitID,
			"request_id", event.RequestID,
		)
	}
}

// Events exposes the inbox to the worker.
func (p *ChannelPublisher) Events() <-chan Event {
	return p.inbox
}

// NopPublisher discards events. Useful in tests that don't assert on them.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
