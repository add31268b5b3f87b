package inventory

import (
	"time"

	id "hemobank/pkg/domain"
)

// UnitStatus is the lifecycle state of a physical blood unit.
//
// The status is monotonic along
//
//	temporary_pending -> {processed | discarded}
//	(children of processing start at available)
//	available -> reserved -> {issued | available (release)}
//	available|reserved -> expired
//
// Release is the only backward step; everything else moves forward once.
type UnitStatus string

const (
	// StatusTemporaryPending is a raw collection awaiting staff processing.
	StatusTemporaryPending UnitStatus = "temporary_pending"
	// StatusProcessed marks a parent unit consumed by splitting; the derived
	// bank units carry the usable inventory from here on.
	StatusProcessed UnitStatus = "processed"
	StatusDiscarded UnitStatus = "discarded"
	StatusAvailable UnitStatus = "available"
	StatusReserved  UnitStatus = "reserved"
	StatusIssued    UnitStatus = "issued"
	StatusExpired   UnitStatus = "expired"
)

// validTransitions is the authoritative transition table. Absence means the
// transition is illegal.
var validTransitions = map[UnitStatus]map[UnitStatus]bool{
	StatusTemporaryPending: {StatusProcessed: true, StatusDiscarded: true},
	StatusAvailable:        {StatusReserved: true, StatusExpired: true},
	StatusReserved:         {StatusIssued: true, StatusAvailable: true, StatusExpired: true},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to UnitStatus) bool {
	return validTransitions[from][to]
}

// Terminal reports whether no transition leaves the status.
func (s UnitStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// BloodUnit is a physical unit, raw or banked.
type BloodUnit struct {
	ID        id.UnitID
	DonorID   id.PersonID
	BloodType id.BloodType
	Component id.Component
	VolumeML  int

	// ParentID links a derived bank unit to the raw collection it was split
	// from; nil for raw collections.
	ParentID *id.UnitID

	CollectedAt time.Time
	// ExpiresAt is computed as CollectedAt plus the component shelf life,
	// never user-entered.
	ExpiresAt time.Time

	Status UnitStatus

	// Reservation bookkeeping, set while Status is reserved.
	ReservedFor *id.RequestID
	ReservedAt  *time.Time

	IssuedAt      *time.Time
	DiscardReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PastExpiry reports whether the unit has outlived its shelf life.
func (u *BloodUnit) PastExpiry(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

// Split describes one output of processing a raw unit.
type Split struct {
	Component id.Component `json:"component"`
	VolumeML  int          `json:"volume_ml"`
}
