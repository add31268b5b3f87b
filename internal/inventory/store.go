package inventory

import (
	"context"
	"time"

	id "hemobank/pkg/domain"
)

// Store persists blood units and owns the atomicity of status transitions.
//
// Every mutation is a compare-and-set keyed by unit ID: the status may only
// move along the lifecycle table, and a caller racing another writer loses
// with sentinel.ErrConflict. An attempt to leave a terminal state, or to take
// an illegal step, fails with sentinel.ErrInvalidTransition — that is a
// programming error, not a retryable condition. Stores are otherwise pure
// I/O; ordering policy (FEFO) and eligibility live above.
type Store interface {
	// Get returns a unit or sentinel.ErrNotFound.
	Get(ctx context.Context, unitID id.UnitID) (*BloodUnit, error)

	// Insert adds a new unit; sentinel.ErrConflict if the ID exists.
	Insert(ctx context.Context, unit *BloodUnit) error

	// ListAvailable returns available units of a component, unordered.
	ListAvailable(ctx context.Context, component id.Component) ([]*BloodUnit, error)

	// ListByStatus returns units in any of the given statuses.
	ListByStatus(ctx context.Context, statuses ...UnitStatus) ([]*BloodUnit, error)

	// Reserve swaps available -> reserved for the given request.
	// sentinel.ErrConflict when another reservation won the race.
	Reserve(ctx context.Context, unitID id.UnitID, requestID id.RequestID, at time.Time) error

	// ReleaseReservation swaps reserved -> available and clears the
	// reservation bookkeeping.
	ReleaseReservation(ctx context.Context, unitID id.UnitID) error

	// MarkIssued swaps reserved -> issued for the reserving request.
	// A second issuance attempt fails with sentinel.ErrInvalidTransition.
	MarkIssued(ctx context.Context, unitID id.UnitID, requestID id.RequestID, at time.Time) error

	// MarkProcessed swaps temporary_pending -> processed.
	MarkProcessed(ctx context.Context, unitID id.UnitID) error

	// MarkDiscarded swaps temporary_pending -> discarded with a reason.
	MarkDiscarded(ctx context.Context, unitID id.UnitID, reason string) error

	// MarkExpired swaps available|reserved -> expired.
	MarkExpired(ctx context.Context, unitID id.UnitID) error
}
