// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping the package
// free of net/http lets the engine be driven from HTTP handlers, background
// sweepers, and tests alike. The (person, role) pair is the explicit
// capability context every engine call receives — there is no ambient
// permission state anywhere in the engine.
//
// Usage in services (read values):
//
//	personID := requestcontext.PersonID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPersonID(ctx, personID)
package requestcontext

import (
	"context"
	"time"

	id "hemobank/pkg/domain"
)

// Role is the trusted role claim supplied by the external identity provider.
type Role string

const (
	RoleDonor   Role = "donor"
	RolePartner Role = "partner"
	RoleStaff   Role = "staff"
)

// Context key types (unexported for encapsulation).
type (
	personIDKey    struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// PersonID retrieves the authenticated person ID from the context.
// Returns the zero value (nil UUID) if not set.
func PersonID(ctx context.Context) id.PersonID {
	if personID, ok := ctx.Value(personIDKey{}).(id.PersonID); ok {
		return personID
	}
	return id.PersonID{}
}

// WithPersonID injects a person ID into the context.
func WithPersonID(ctx context.Context, personID id.PersonID) context.Context {
	return context.WithValue(ctx, personIDKey{}, personID)
}

// ActorRole retrieves the role claim from the context.
func ActorRole(ctx context.Context) Role {
	if role, ok := ctx.Value(roleKey{}).(Role); ok {
		return role
	}
	return ""
}

// WithRole injects a role claim into the context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts like sweepers and CLIs.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full middleware chain, and for sweeps that need a
// consistent time across a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
