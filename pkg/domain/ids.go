package domain

import (
	"github.com/google/uuid"

	dErrors "hemobank/pkg/domain-errors"
)

// Typed identifiers keep the engine's entities from being mixed up at compile
// time. Construct via the Parse helpers at trust boundaries; direct conversion
// from uuid.UUID is reserved for stores and tests.
type (
	// PersonID is the opaque identity supplied by the external identity
	// provider. The engine never sees names or contact details.
	PersonID uuid.UUID

	// UnitID identifies a physical blood unit, temporary or banked.
	UnitID uuid.UUID

	// RequestID identifies a recipient or partner request.
	RequestID uuid.UUID

	// IssuanceID identifies an immutable issuance record.
	IssuanceID uuid.UUID
)

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "nil id")
	}
	return parsed, nil
}

// ParsePersonID validates and converts a raw string into a PersonID.
func ParsePersonID(raw string) (PersonID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return PersonID{}, err
	}
	return PersonID(parsed), nil
}

// ParseUnitID validates and converts a raw string into a UnitID.
func ParseUnitID(raw string) (UnitID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UnitID{}, err
	}
	return UnitID(parsed), nil
}

// ParseRequestID validates and converts a raw string into a RequestID.
func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(parsed), nil
}

// NewPersonID returns a fresh random PersonID. Intended for tests and seeds;
// production person IDs arrive from the identity provider.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewUnitID returns a fresh random UnitID.
func NewUnitID() UnitID { return UnitID(uuid.New()) }

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewIssuanceID returns a fresh random IssuanceID.
func NewIssuanceID() IssuanceID { return IssuanceID(uuid.New()) }

func (id PersonID) String() string   { return uuid.UUID(id).String() }
func (id UnitID) String() string     { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id IssuanceID) String() string { return uuid.UUID(id).String() }

func (id PersonID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UnitID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id IssuanceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
