package donor

import (
	"context"
	"time"

	id "hemobank/pkg/domain"
)

// Store persists donor records.
//
// Commitment changes are compare-and-set on the current commitment so that two
// concurrent staff sessions cannot double-book a donor: the loser receives
// sentinel.ErrConflict.
type Store interface {
	// Get returns the record for a person, or sentinel.ErrNotFound.
	Get(ctx context.Context, personID id.PersonID) (*Record, error)

	// Create inserts a new record; sentinel.ErrConflict if one exists.
	Create(ctx context.Context, record *Record) error

	// UpdateCommitment swaps the commitment from -> to atomically.
	// Returns sentinel.ErrConflict when the current commitment is not `from`.
	UpdateCommitment(ctx context.Context, personID id.PersonID, from, to Commitment) error

	// RecordCollection stamps the last donation time and moves the commitment
	// scheduled -> awaiting_processing in one step. sentinel.ErrConflict when
	// the donor was not in the scheduled state.
	RecordCollection(ctx context.Context, personID id.PersonID, at time.Time) error

	// MarkProcessed increments the processed-donation count and clears an
	// awaiting_processing commitment. Called once per raw unit outcome.
	MarkProcessed(ctx context.Context, personID id.PersonID, at time.Time) error
}
