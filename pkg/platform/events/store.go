package events

import "context"

// Store is the append-only event log read by the reporting side.
type Store interface {
	Append(ctx context.Context, event Event) error

	// ListByRequest returns the history of one request, oldest first.
	ListByRequest(ctx context.Context, requestID string) ([]Event, error)

	// ListRecent returns up to limit latest events, newest first.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
