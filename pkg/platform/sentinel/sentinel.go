package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a compare-and-set lost to a concurrent writer, or a
//   uniqueness constraint fired (e.g. second issuance of the same unit)
// - ErrInvalidTransition: a unit or request transition attempted from a state
//   that does not permit it, including any transition out of a terminal state
// - ErrExpired: the unit is past its expiry date
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrExpired           = errors.New("expired")
	ErrUnavailable       = errors.New("unavailable")
)
