package issuance

import (
	"time"

	id "hemobank/pkg/domain"
)

// Record is the immutable fact that a request was fulfilled with a specific
// unit. Created exactly once at fulfillment, never mutated or deleted.
type Record struct {
	ID        id.IssuanceID
	RequestID id.RequestID
	UnitID    id.UnitID
	StaffID   id.PersonID
	IssuedAt  time.Time
}
