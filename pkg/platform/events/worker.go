package events

import (
	"context"
	"log/slog"
)

// Sink forwards events to an external transport (Kafka). Optional; the worker
// persists to the store regardless.
type Sink interface {
	Forward(ctx context.Context, event Event) error
}

// Worker drains the publisher channel, persists every event, and forwards it
// to the sink when one is configured. A sink failure is logged and skipped —
// the persisted log remains the source of truth.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

type WorkerOption func(*Worker)

func WithSink(sink Sink) WorkerOption {
	return func(w *Worker) { w.sink = sink }
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{store: store, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist event",
					"type", event.Type,
					"error", err.Error(),
				)
				continue
			}
			if w.sink != nil {
				if err := w.sink.Forward(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "failed to forward event to sink",
						"type", event.Type,
						"error", err.Error(),
					)
				}
			}
		}
	}
}
