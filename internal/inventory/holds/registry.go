// Package holds tracks live reservation holds. A hold is placed when a unit
// is reserved and lives for the grace window; the expiry sweeper releases
// reservations whose hold has lapsed so a stalled request cannot pin
// inventory forever.
package holds

import (
	"context"
	"time"

	id "hemobank/pkg/domain"
)

// Registry is the hold store. TTL handling is the store's job: a hold simply
// stops being live once its window passes.
type Registry interface {
	// Place records a hold for the reserving request with the given TTL.
	Place(ctx context.Context, unitID id.UnitID, requestID id.RequestID, ttl time.Duration) error

	// Live reports whether an unexpired hold exists for the unit.
	Live(ctx context.Context, unitID id.UnitID) (bool, error)

	// Release drops the hold; releasing an absent hold is a no-op.
	Release(ctx context.Context, unitID id.UnitID) error
}
