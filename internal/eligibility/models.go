package eligibility

// ReasonCode enumerates why a person is blocked. Codes are stable strings
// surfaced verbatim to callers; they change only when the underlying rule does.
type ReasonCode string

const (
	// ReasonRecoveryPeriod blocks donation until 84 days have elapsed since
	// the last donation. Detail carries the remaining days.
	ReasonRecoveryPeriod ReasonCode = "recovery_period_remaining"
	// ReasonActiveCommitment blocks while a donation appointment or collected
	// donation is still in flight.
	ReasonActiveCommitment ReasonCode = "active_commitment_exists"
	// ReasonActiveRequest blocks while a recipient or partner request of any
	// kind is non-terminal.
	ReasonActiveRequest ReasonCode = "active_request_exists"
	// ReasonNeverDonated blocks reception until at least one donation has been
	// processed (donate-before-receive).
	ReasonNeverDonated ReasonCode = "never_donated"
)

// Reason is one independent blocking condition.
type Reason struct {
	Code ReasonCode `json:"code"`
	// DaysRemaining is set only for ReasonRecoveryPeriod.
	DaysRemaining int `json:"days_remaining,omitempty"`
}

// Decision is the gate's verdict. Callers receive every blocking reason, not
// just the first, so the UI can show the complete picture.
type Decision struct {
	Eligible bool     `json:"eligible"`
	Reasons  []Reason `json:"reasons,omitempty"`
}

func blocked(reasons ...Reason) Decision {
	return Decision{Eligible: false, Reasons: reasons}
}

func eligible() Decision {
	return Decision{Eligible: true}
}
