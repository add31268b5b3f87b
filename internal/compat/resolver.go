// Package compat is the single source of truth for blood compatibility.
// Every caller resolves donor/recipient sets through this package; no other
// module carries its own copy of the tables.
package compat

import (
	id "hemobank/pkg/domain"
)

// Match is one acceptable counterpart type. Rank orders preference where a
// component defines one (platelets); for every other component all matches
// carry RankExact and form an unordered acceptable set.
type Match struct {
	Type id.BloodType
	Rank int
}

// Preference ranks. Lower is better.
const (
	RankExact     = 0 // exact ABO+Rh match
	RankSameABO   = 1 // same ABO, any Rh (platelets only)
	RankUniversal = 2 // universal platelet donor (O)
)

// DonorTypesFor returns the donor types a recipient of the given type may
// receive for the given component.
//
// Unknown policy: an un-typed recipient is resolved as the universal-safe
// recipient, so only units that are safe against every concrete type qualify.
// Un-typed donor units never appear in any set; they are unusable until
// re-typed (see Contains).
func DonorTypesFor(recipient id.BloodType, component id.Component) []Match {
	switch component {
	case id.ComponentPlasma:
		return plasmaDonors(recipient.ABO)
	case id.ComponentPlatelets:
		return plateletDonors(recipient)
	default:
		// Whole blood and red cells share the classic transfusion lattice.
		return redCellDonors(recipient)
	}
}

// RecipientTypesFor is the inverse of DonorTypesFor: the recipient types a
// donor unit of the given type may serve. An un-typed donor serves nobody.
func RecipientTypesFor(donor id.BloodType, component id.Component) []Match {
	if !donor.Known() {
		return nil
	}
	switch component {
	case id.ComponentPlasma:
		return plasmaRecipients(donor.ABO)
	case id.ComponentPlatelets:
		return plateletRecipients(donor)
	default:
		return redCellRecipients(donor)
	}
}

// Contains reports whether a concrete unit type is acceptable, and at which
// rank. Un-typed unit types are always rejected.
func Contains(matches []Match, unitType id.BloodType) (int, bool) {
	if !unitType.Known() {
		return 0, false
	}
	for _, m := range matches {
		if m.Type == unitType {
			return m.Rank, true
		}
	}
	return 0, false
}

func redCellDonors(recipient id.BloodType) []Match {
	abo := recipient.ABO
	if abo == id.ABOUnknown || abo == "" {
		abo = id.ABOO // universal-safe recipient accepts only universal donors
	}
	rhs := []id.Rh{id.RhNegative}
	if recipient.Rh == id.RhPositive {
		rhs = []id.Rh{id.RhPositive, id.RhNegative}
	}
	var out []Match
	for _, donorABO := range aboDonorsFor[abo] {
		for _, rh := range rhs {
			out = append(out, Match{Type: id.BloodType{ABO: donorABO, Rh: rh}})
		}
	}
	return out
}

func redCellRecipients(donor id.BloodType) []Match {
	rhs := []id.Rh{id.RhPositive}
	if donor.Rh == id.RhNegative {
		rhs = []id.Rh{id.RhPositive, id.RhNegative}
	}
	var out []Match
	for _, recipientABO := range aboRecipientsFor[donor.ABO] {
		for _, rh := range rhs {
			out = append(out, Match{Type: id.BloodType{ABO: recipientABO, Rh: rh}})
		}
	}
	return out
}

// plasmaDonors applies the ABO-inverse lattice. Rh is never evaluated for
// plasma, so both Rh variants of each acceptable ABO group are returned and
// must never be filtered downstream.
func plasmaDonors(recipientABO id.ABOGroup) []Match {
	if recipientABO == id.ABOUnknown || recipientABO == "" {
		// Safe against every concrete recipient: AB, the universal plasma donor.
		recipientABO = id.ABOAB
	}
	return bothRh(plasmaDonorsFor[recipientABO], RankExact)
}

func plasmaRecipients(donorABO id.ABOGroup) []Match {
	return bothRh(plasmaRecipientsFor[donorABO], RankExact)
}

// plateletDonors builds the ranked platelet preference list. ABO match is a
// soft preference and Rh mismatch penalizes rank but never excludes.
func plateletDonors(recipient id.BloodType) []Match {
	var out []Match
	if recipient.ABO != id.ABOUnknown && recipient.ABO != "" {
		if recipient.Rh == id.RhPositive || recipient.Rh == id.RhNegative {
			out = append(out, Match{Type: id.BloodType{ABO: recipient.ABO, Rh: recipient.Rh}, Rank: RankExact})
		}
		out = appendRanked(out, bothRh([]id.ABOGroup{recipient.ABO}, RankSameABO))
	}
	out = appendRanked(out, bothRh([]id.ABOGroup{id.ABOO}, RankUniversal))
	return out
}

func plateletRecipients(donor id.BloodType) []Match {
	out := []Match{{Type: donor, Rank: RankExact}}
	out = appendRanked(out, bothRh([]id.ABOGroup{donor.ABO}, RankSameABO))
	if donor.ABO == id.ABOO {
		for _, abo := range []id.ABOGroup{id.ABOA, id.ABOB, id.ABOAB} {
			out = appendRanked(out, bothRh([]id.ABOGroup{abo}, RankUniversal))
		}
	}
	return out
}

func bothRh(groups []id.ABOGroup, rank int) []Match {
	var out []Match
	for _, abo := range groups {
		out = append(out,
			Match{Type: id.BloodType{ABO: abo, Rh: id.RhPositive}, Rank: rank},
			Match{Type: id.BloodType{ABO: abo, Rh: id.RhNegative}, Rank: rank},
		)
	}
	return out
}

// appendRanked merges candidates, keeping the best rank for types seen twice.
func appendRanked(existing []Match, candidates []Match) []Match {
	for _, c := range candidates {
		seen := false
		for _, e := range existing {
			if e.Type == c.Type {
				seen = true
				break
			}
		}
		if !seen {
			existing = append(existing, c)
		}
	}
	return existing
}
