package request

import (
	"context"
	"time"

	id "hemobank/pkg/domain"
)

// Store persists requests.
//
// Status changes are compare-and-set on the current status. A CAS that loses
// to a concurrent writer returns sentinel.ErrConflict; a CAS whose target is
// not reachable from the stored status (terminal states included) returns
// sentinel.ErrInvalidTransition.
type Store interface {
	// Get returns a request, or sentinel.ErrNotFound.
	Get(ctx context.Context, requestID id.RequestID) (*Request, error)

	// Create inserts a new request; sentinel.ErrConflict if the ID exists.
	Create(ctx context.Context, request *Request) error

	// ListByPerson returns every request made by a person, newest first.
	ListByPerson(ctx context.Context, personID id.PersonID) ([]*Request, error)

	// HasActive reports whether the person has a request in a non-terminal
	// state.
	HasActive(ctx context.Context, personID id.PersonID) (bool, error)

	// Transition swaps status from -> to atomically.
	Transition(ctx context.Context, requestID id.RequestID, from, to Status) error

	// AttachReservation records the unit reserved for the request.
	AttachReservation(ctx context.Context, requestID id.RequestID, unitID id.UnitID) error

	// DetachReservation clears the reserved unit. No-op when none is set.
	DetachReservation(ctx context.Context, requestID id.RequestID) error

	// MarkIssued swaps status from -> issued and links the issuance record in
	// one step.
	MarkIssued(ctx context.Context, requestID id.RequestID, from Status, issuanceID id.IssuanceID, at time.Time) error
}
