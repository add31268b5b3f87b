// Package eligibility decides whether a person may currently donate blood or
// request a reception. The rules are evaluated independently and every
// blocking reason is reported.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"hemobank/internal/donor"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/requestcontext"
)

// DonorDirectory is the gate's read view of donor records.
type DonorDirectory interface {
	Get(ctx context.Context, personID id.PersonID) (*donor.Record, error)
}

// RequestDirectory reports whether a person has a non-terminal request.
type RequestDirectory interface {
	HasActive(ctx context.Context, personID id.PersonID) (bool, error)
}

type Gate struct {
	donors   DonorDirectory
	requests RequestDirectory
	logger   *slog.Logger
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func NewGate(donors DonorDirectory, requests RequestDirectory, opts ...Option) (*Gate, error) {
	if donors == nil {
		return nil, fmt.Errorf("donor directory is required")
	}
	if requests == nil {
		return nil, fmt.Errorf("request directory is required")
	}
	g := &Gate{donors: donors, requests: requests, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CanDonate evaluates the recovery period and the active-commitment
// exclusivity. A person with no donor record yet is a fresh donor and passes.
func (g *Gate) CanDonate(ctx context.Context, personID id.PersonID) (Decision, error) {
	now := requestcontext.Now(ctx)

	record, err := g.donors.Get(ctx, personID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return g.withRequestCheck(ctx, personID, nil)
		}
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor record")
	}

	var reasons []Reason
	if record.LastDonationAt != nil {
		elapsed := now.Sub(*record.LastDonationAt)
		if elapsed < id.RecoveryPeriod {
			remaining := id.RecoveryPeriod - elapsed
			reasons = append(reasons, Reason{
				Code:          ReasonRecoveryPeriod,
				DaysRemaining: int(math.Ceil(remaining.Hours() / 24)),
			})
		}
	}
	if record.Commitment.Active() {
		reasons = append(reasons, Reason{Code: ReasonActiveCommitment})
	}

	return g.withRequestCheck(ctx, personID, reasons)
}

// CanRequestReception evaluates donate-before-receive and the
// active-commitment exclusivity. Partner requests never pass through here;
// they are raised on behalf of third parties.
func (g *Gate) CanRequestReception(ctx context.Context, personID id.PersonID) (Decision, error) {
	record, err := g.donors.Get(ctx, personID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor record")
	}

	var reasons []Reason
	if record == nil || !record.HasProcessedDonation() {
		reasons = append(reasons, Reason{Code: ReasonNeverDonated})
	}
	if record != nil && record.Commitment.Active() {
		reasons = append(reasons, Reason{Code: ReasonActiveCommitment})
	}

	return g.withRequestCheck(ctx, personID, reasons)
}

// withRequestCheck appends the active-request exclusivity reason and folds the
// accumulated reasons into a Decision.
func (g *Gate) withRequestCheck(ctx context.Context, personID id.PersonID, reasons []Reason) (Decision, error) {
	active, err := g.requests.HasActive(ctx, personID)
	if err != nil {
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active requests")
	}
	if active {
		reasons = append(reasons, Reason{Code: ReasonActiveRequest})
	}
	if len(reasons) > 0 {
		g.logger.DebugContext(ctx, "eligibility blocked",
			"person_id", personID,
			"reasons", len(reasons),
		)
		return blocked(reasons...), nil
	}
	return eligible(), nil
}
