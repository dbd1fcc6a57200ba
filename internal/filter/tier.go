package filter

import "strings"

// Tier is the ventilation category a visible household is drawn with.
type Tier string

const (
	TierPoor Tier = "kurang"
	TierFair Tier = "cukup"
	TierGood Tier = "baik"
)

// Tiers lists every tier, worst first.
var Tiers = []Tier{TierPoor, TierFair, TierGood}

// TierOf classifies a record by exact match on its lower-cased ventilation
// value. Absent or unrecognised values fall back to TierGood.
func TierOf(r Record) Tier {
	return ParseTier(r.Attr(FieldVentilation))
}

// ParseTier maps a raw ventilation value to its tier.
func ParseTier(v string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(v))) {
	case TierPoor:
		return TierPoor
	case TierFair:
		return TierFair
	}
	return TierGood
}
