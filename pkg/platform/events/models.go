// Package events carries state-change notifications out of the engine.
//
// The ledger and the request lifecycle publish an event for every transition
// they commit; external collaborators (notification, reporting) subscribe
// instead of polling. Events are emitted after the state change commits, so a
// consumer may see an event at-least-once but never for a change that did not
// happen.
package events

import "time"

// Type names a committed state change.
type Type string

const (
	// Inventory lifecycle
	TypeDonationRecorded    Type = "donation_recorded"
	TypeUnitProcessed       Type = "unit_processed"
	TypeUnitDiscarded       Type = "unit_discarded"
	TypeUnitExpired         Type = "unit_expired"
	TypeUnitReserved        Type = "unit_reserved"
	TypeReservationReleased Type = "reservation_released"
	TypeUnitIssued          Type = "unit_issued"

	// Request lifecycle
	TypeRequestCreated   Type = "request_created"
	TypeRequestAgreed    Type = "request_agreed"
	TypeRequestIssued    Type = "request_issued"
	TypeRequestCancelled Type = "request_cancelled"
	TypeRequestRejected  Type = "request_rejected"
)

// Kafka topics for external fan-out. Inventory and request streams are
// separate so the reporting side can consume them independently.
const (
	TopicInventory = "hemobank.inventory"
	TopicRequests  = "hemobank.requests"
)

// TopicFor routes an event type to its topic.
func TopicFor(eventType Type) string {
	switch eventType {
	case TypeRequestCreated, TypeRequestAgreed, TypeRequestIssued,
		TypeRequestCancelled, TypeRequestRejected:
		return TopicRequests
	default:
		return TopicInventory
	}
}

// Event is emitted from domain logic to capture a committed transition. Keep
// it transport-agnostic so stores and sinks can fan out; IDs are plain strings
// for the same reason.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	PersonID  string `json:"person_id,omitempty"`
	UnitID    string `json:"unit_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Actor is the staff person who performed the action, when different from
	// the subject person.
	Actor string `json:"actor,omitempty"`

	// Detail carries the human-readable specifics (discard reason, split
	// layout, blocking reasons).
	Detail string `json:"detail,omitempty"`

	// Correlation is the HTTP request ID that triggered the change.
	Correlation string `json:"correlation,omitempty"`
}
