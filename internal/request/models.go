package request

import (
	"time"

	id "hemobank/pkg/domain"
)

// Kind distinguishes who the request serves.
type Kind string

const (
	// KindRecipient is a registered person requesting blood for themselves.
	// Gated by eligibility (donate-before-receive, commitment exclusivity).
	KindRecipient Kind = "recipient"
	// KindPartner is a partner organization requesting on behalf of an
	// external patient. Never eligibility-gated.
	KindPartner Kind = "partner"
)

// Status is the request lifecycle state.
type Status string

const (
	StatusRequested Status = "requested"
	StatusAgreed    Status = "agreed"
	StatusIssued    Status = "issued"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

var validTransitions = map[Status]map[Status]bool{
	StatusRequested: {StatusAgreed: true, StatusCancelled: true, StatusRejected: true},
	StatusAgreed:    {StatusIssued: true, StatusCancelled: true},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	return validTransitions[from][to]
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusIssued || s == StatusCancelled || s == StatusRejected
}

// Active reports whether the request still counts against the requester's
// one-active-request limit.
func (s Status) Active() bool {
	return s == StatusRequested || s == StatusAgreed
}

// Request is a standing ask for one unit of a component.
type Request struct {
	ID       id.RequestID
	Kind     Kind
	PersonID id.PersonID

	// PatientName is set on partner requests only; the patient is external
	// and has no person record.
	PatientName string

	BloodType id.BloodType
	Component id.Component
	Note      string

	// PreferredAt is the recipient's preferred transfusion slot; Deadline is
	// the partner's latest useful delivery time. Each kind sets one of them.
	PreferredAt *time.Time
	Deadline    *time.Time

	Status         Status
	ReservedUnitID *id.UnitID
	IssuanceID     *id.IssuanceID

	CreatedAt time.Time
	UpdatedAt time.Time
}
