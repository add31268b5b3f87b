package donor

import (
	"time"

	id "hemobank/pkg/domain"
)

// Commitment is the donor's current donation commitment. A donor holds at most
// one active commitment at any time.
type Commitment string

const (
	// CommitmentNone means the donor is free to schedule a donation.
	CommitmentNone Commitment = "none"
	// CommitmentScheduled means an appointment exists but blood has not been
	// collected yet.
	CommitmentScheduled Commitment = "scheduled"
	// CommitmentAwaitingProcessing means blood was collected and the raw unit
	// has not been processed or discarded yet.
	CommitmentAwaitingProcessing Commitment = "awaiting_processing"
)

// Active reports whether the commitment blocks new donor activity.
func (c Commitment) Active() bool {
	return c == CommitmentScheduled || c == CommitmentAwaitingProcessing
}

// Record is the engine's view of a donor. Identity beyond the opaque person ID
// lives with the external identity provider.
type Record struct {
	PersonID  id.PersonID
	BloodType id.BloodType

	// LastDonationAt is the time of the last successful collection, nil for a
	// donor who has never donated. Drives the recovery-period rule.
	LastDonationAt *time.Time

	Commitment Commitment

	// ProcessedDonations counts donations whose unit lineage reached Processed
	// or later. Drives the donate-before-receive rule; a collected-but-raw
	// donation does not count yet.
	ProcessedDonations int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasProcessedDonation reports whether the donate-before-receive rule is met.
func (r *Record) HasProcessedDonation() bool {
	return r.ProcessedDonations > 0
}
