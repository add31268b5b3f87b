package domain

import (
	"fmt"
	"time"
)

// ABOGroup is the ABO axis of a blood type.
// Invariant: the value must be one of the supported groups, or ABOUnknown for
// donors/recipients that have not been typed yet.
//
// Usage: construct via ParseABOGroup at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ABOGroup string

const (
	ABOUnknown ABOGroup = "unknown"
	ABOO       ABOGroup = "O"
	ABOA       ABOGroup = "A"
	ABOB       ABOGroup = "B"
	ABOAB      ABOGroup = "AB"
)

// Rh is the Rhesus axis of a blood type.
type Rh string

const (
	RhUnknown  Rh = "unknown"
	RhPositive Rh = "+"
	RhNegative Rh = "-"
)

// BloodType pairs the two independent typing axes.
type BloodType struct {
	ABO ABOGroup
	Rh  Rh
}

// Known reports whether both axes have been typed.
func (t BloodType) Known() bool {
	return t.ABO != ABOUnknown && t.ABO != "" && t.Rh != RhUnknown && t.Rh != ""
}

func (t BloodType) String() string {
	if t.ABO == ABOUnknown || t.ABO == "" {
		return "unknown"
	}
	if t.Rh == RhUnknown || t.Rh == "" {
		return string(t.ABO) + "?"
	}
	return string(t.ABO) + string(t.Rh)
}

// ParseABOGroup validates a raw ABO group string.
func ParseABOGroup(raw string) (ABOGroup, error) {
	switch g := ABOGroup(raw); g {
	case ABOO, ABOA, ABOB, ABOAB, ABOUnknown:
		return g, nil
	case "":
		return ABOUnknown, nil
	default:
		return "", fmt.Errorf("unknown ABO group: %q", raw)
	}
}

// ParseRh validates a raw Rh string.
func ParseRh(raw string) (Rh, error) {
	switch r := Rh(raw); r {
	case RhPositive, RhNegative, RhUnknown:
		return r, nil
	case "":
		return RhUnknown, nil
	default:
		return "", fmt.Errorf("unknown Rh factor: %q", raw)
	}
}

// Component is a blood product derived from a donation. Each component carries
// its own compatibility rules and shelf life.
type Component string

const (
	ComponentWholeBlood Component = "whole_blood"
	ComponentRedCells   Component = "red_cells"
	ComponentPlasma     Component = "plasma"
	ComponentPlatelets  Component = "platelets"
)

// Components lists every supported component.
func Components() []Component {
	return []Component{ComponentWholeBlood, ComponentRedCells, ComponentPlasma, ComponentPlatelets}
}

// ParseComponent validates a raw component string.
func ParseComponent(raw string) (Component, error) {
	switch c := Component(raw); c {
	case ComponentWholeBlood, ComponentRedCells, ComponentPlasma, ComponentPlatelets:
		return c, nil
	default:
		return "", fmt.Errorf("unknown component: %q", raw)
	}
}

// shelfLives holds the fixed shelf life per component. Expiry is always
// computed from the collection date, never user-entered.
var shelfLives = map[Component]time.Duration{
	ComponentWholeBlood: 35 * 24 * time.Hour,
	ComponentRedCells:   42 * 24 * time.Hour,
	ComponentPlasma:     365 * 24 * time.Hour,
	ComponentPlatelets:  5 * 24 * time.Hour,
}

// ShelfLife returns the fixed shelf life for a component.
func (c Component) ShelfLife() time.Duration {
	return shelfLives[c]
}

// RecoveryPeriod is the minimum elapsed time between two donations by the same
// person. The boundary is inclusive: exactly 84 elapsed days is sufficient.
const RecoveryPeriod = 84 * 24 * time.Hour
