package issuance

import (
	"context"

	id "hemobank/pkg/domain"
)

// Store is the append-only issuance log.
//
// The unit-uniqueness constraint is the engine's last line of defense for
// at-most-once issuance: a second Append for the same unit fails with
// sentinel.ErrConflict regardless of what the ledger believed.
type Store interface {
	// Append records an issuance. sentinel.ErrConflict when the unit already
	// appears in the log.
	Append(ctx context.Context, record *Record) error

	// GetByRequest returns the issuance fulfilling a request, or
	// sentinel.ErrNotFound.
	GetByRequest(ctx context.Context, requestID id.RequestID) (*Record, error)

	// GetByUnit returns the issuance consuming a unit, or sentinel.ErrNotFound.
	GetByUnit(ctx context.Context, unitID id.UnitID) (*Record, error)
}
