// Package allocation selects and reserves inventory for transfusion requests.
//
// Candidate units are ordered first-expiring-first so the oldest viable stock
// leaves the shelf before it is lost to expiry. Reservation races are resolved
// optimistically: a lost compare-and-swap moves the matcher to the next
// candidate instead of failing the allocation.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hemobank/internal/allocation/metrics"
	"hemobank/internal/compat"
	"hemobank/internal/inventory"
	id "hemobank/pkg/domain"
	"hemobank/pkg/requestcontext"
)

// ErrNoneAvailable means no available, unexpired, compatible unit could be
// reserved. The request stays open; a later attempt may succeed.
var ErrNoneAvailable = errors.New("no compatible inventory available")

// Ledger is the slice of the inventory service the matcher needs.
type Ledger interface {
	ListAvailable(ctx context.Context, component id.Component) ([]*inventory.BloodUnit, error)
	Reserve(ctx context.Context, unitID id.UnitID, requestID id.RequestID) error
}

type Matcher struct {
	ledger  Ledger
	logger  *slog.Logger
	metrics *metrics.AllocationMetrics
	tracer  trace.Tracer
}

type Option func(*Matcher)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

func WithMetrics(mtr *metrics.AllocationMetrics) Option {
	return func(m *Matcher) { m.metrics = mtr }
}

func NewMatcher(ledger Ledger, opts ...Option) (*Matcher, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	m := &Matcher{
		ledger: ledger,
		logger: slog.Default(),
		tracer: otel.Tracer("hemobank/allocation"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// FindAndReserve picks the best compatible available unit and reserves it for
// the request. Returns ErrNoneAvailable when every candidate is gone, which
// includes the case where concurrent allocators took them all mid-scan.
func (m *Matcher) FindAndReserve(ctx context.Context, requestID id.RequestID, recipient id.BloodType, component id.Component) (*inventory.BloodUnit, error) {
	ctx, span := m.tracer.Start(ctx, "allocation.FindAndReserve",
		trace.WithAttributes(
			attribute.String("request.id", requestID.String()),
			attribute.String("recipient.blood_type", recipient.String()),
			attribute.String("component", string(component)),
		))
	defer span.End()

	if m.metrics != nil {
		m.metrics.Attempts.Inc()
	}

	acceptable := compat.DonorTypesFor(recipient, component)
	if len(acceptable) == 0 {
		span.SetStatus(codes.Error, "no donor types for recipient")
		return nil, m.noneAvailable(ctx, span, requestID, 0)
	}

	units, err := m.ledger.ListAvailable(ctx, component)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list available failed")
		return nil, fmt.Errorf("list available units: %w", err)
	}

	candidates := rankCandidates(units, acceptable, requestcontext.Now(ctx))
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	for _, c := range candidates {
		err := m.ledger.Reserve(ctx, c.unit.ID, requestID)
		if err == nil {
			if m.metrics != nil {
				m.metrics.Reserved.Inc()
			}
			span.SetAttributes(attribute.String("unit.id", c.unit.ID.String()))
			m.logger.InfoContext(ctx, "unit reserved",
				"unit_id", c.unit.ID.String(),
				"request_id", requestID.String(),
				"blood_type", c.unit.BloodType.String(),
				"rank", c.rank,
			)
			return c.unit, nil
		}
		// A lost race just means someone else got this unit first.
		if m.metrics != nil {
			m.metrics.Conflicts.Inc()
		}
		m.logger.DebugContext(ctx, "reservation lost, trying next candidate",
			"unit_id", c.unit.ID.String(),
			"request_id", requestID.String(),
			"error", err.Error(),
		)
	}

	return nil, m.noneAvailable(ctx, span, requestID, len(candidates))
}

func (m *Matcher) noneAvailable(ctx context.Context, span trace.Span, requestID id.RequestID, scanned int) error {
	if m.metrics != nil {
		m.metrics.NoneAvailable.Inc()
	}
	span.SetStatus(codes.Error, ErrNoneAvailable.Error())
	m.logger.InfoContext(ctx, "no compatible inventory",
		"request_id", requestID.String(),
		"candidates_scanned", scanned,
	)
	return ErrNoneAvailable
}

type candidate struct {
	unit *inventory.BloodUnit
	rank int
}

// rankCandidates filters to compatible, unexpired units and orders them by
// preference rank, then soonest expiry, then unit ID for a deterministic
// tiebreak. Units past expiry are skipped even if the sweeper has not marked
// them yet.
func rankCandidates(units []*inventory.BloodUnit, acceptable []compat.Match, now time.Time) []candidate {
	candidates := make([]candidate, 0, len(units))
	for _, unit := range units {
		if unit.PastExpiry(now) {
			continue
		}
		rank, ok := compat.Contains(acceptable, unit.BloodType)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{unit: unit, rank: rank})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if !a.unit.ExpiresAt.Equal(b.unit.ExpiresAt) {
			return a.unit.ExpiresAt.Before(b.unit.ExpiresAt)
		}
		return a.unit.ID.String() < b.unit.ID.String()
	})
	return candidates
}
