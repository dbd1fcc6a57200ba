package filter

import (
	"strings"

	"github.com/rotisserie/eris"
)

// All is the wildcard selector value.
const All = "all"

// Selector names a control-panel filter.
type Selector string

const (
	SelectorVentilation Selector = "ventilasi"
	SelectorFuel        Selector = "bb"
)

// Selectors lists the known selectors in panel order.
var Selectors = []Selector{SelectorVentilation, SelectorFuel}

// ErrUnknownSelector is returned when a selector name is not one of Selectors.
var ErrUnknownSelector = eris.New("filter: unknown selector")

// labelRemap maps panel labels to the token stored in the data.
var labelRemap = map[string]string{
	"buruk": "kurang",
}

// Criteria holds the two selector values. The zero value is not "show all";
// use DefaultCriteria.
type Criteria struct {
	Ventilation string `json:"ventilasi" doc:"Ventilation selector" example:"all"`
	Fuel        string `json:"bb" doc:"Fuel type selector" example:"all"`
}

// DefaultCriteria returns criteria with both selectors set to All.
func DefaultCriteria() Criteria {
	return Criteria{Ventilation: All, Fuel: All}
}

// With returns a copy of c with one selector changed.
func (c Criteria) With(sel Selector, value string) (Criteria, error) {
	switch Selector(strings.ToLower(string(sel))) {
	case SelectorVentilation:
		c.Ventilation = value
	case SelectorFuel:
		c.Fuel = value
	default:
		return c, eris.Wrapf(ErrUnknownSelector, "%q", sel)
	}
	return c, nil
}

// Value returns the raw value of one selector.
func (c Criteria) Value(sel Selector) string {
	switch sel {
	case SelectorVentilation:
		return c.Ventilation
	case SelectorFuel:
		return c.Fuel
	}
	return ""
}

// IsAll reports whether every selector is the wildcard.
func (c Criteria) IsAll() bool {
	return isWildcard(c.Ventilation) && isWildcard(c.Fuel)
}

// Decision is the per-record outcome. Tier is empty when Visible is false.
type Decision struct {
	Visible bool
	Tier    Tier
}

// matcher is Criteria prepared for repeated matching: lower-cased, wildcard
// resolved and the ventilation label remapped.
type matcher struct {
	vent, fuel       string
	anyVent, anyFuel bool
}

func compile(c Criteria) matcher {
	vent := strings.ToLower(c.Ventilation)
	fuel := strings.ToLower(c.Fuel)
	m := matcher{
		anyVent: vent == All,
		anyFuel: fuel == All,
		fuel:    fuel,
	}
	if mapped, ok := labelRemap[vent]; ok {
		vent = mapped
	}
	m.vent = vent
	return m
}

func (m matcher) match(r Record) bool {
	if !m.anyVent && !strings.Contains(strings.ToLower(r.Attr(FieldVentilation)), m.vent) {
		return false
	}
	if !m.anyFuel && !strings.Contains(strings.ToLower(r.Attr(FieldFuel)), m.fuel) {
		return false
	}
	return true
}

// Decide reports whether r is visible under c and, if so, its tier.
func Decide(r Record, c Criteria) Decision {
	if !compile(c).match(r) {
		return Decision{}
	}
	return Decision{Visible: true, Tier: TierOf(r)}
}

// DecideAll evaluates every record once. The result is index-aligned with
// records.
func DecideAll(records []Record, c Criteria) []Decision {
	m := compile(c)
	out := make([]Decision, len(records))
	for i, r := range records {
		if m.match(r) {
			out[i] = Decision{Visible: true, Tier: TierOf(r)}
		}
	}
	return out
}

// Count returns how many records are visible under c. It always rescans.
func Count(records []Record, c Criteria) int {
	m := compile(c)
	n := 0
	for _, r := range records {
		if m.match(r) {
			n++
		}
	}
	return n
}

func isWildcard(v string) bool {
	return strings.EqualFold(v, All)
}
