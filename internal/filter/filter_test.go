package filter

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func household(fid int, vent, fuel string) Record {
	props := geojson.Properties{FieldFID: float64(fid), FieldHouseID: fmt.Sprintf("R-%03d", fid)}
	if vent != "" {
		props[FieldVentilation] = vent
	}
	if fuel != "" {
		props[FieldFuel] = fuel
	}
	return Record{ID: fmt.Sprint(fid), Geometry: orb.Point{101.44, 0.53}, Properties: props}
}

func sample() []Record {
	return []Record{
		household(0, "Kurang", "Kayu Bakar"),
		household(1, "cukup", "LPG 3 kg"),
		household(2, "Baik", "lpg"),
		household(3, "", "minyak tanah"),
		household(4, "KURANG", ""),
		household(5, "", ""),
	}
}

func TestDecide_AllSelectorsShowEverything(t *testing.T) {
	c := DefaultCriteria()
	for _, r := range sample() {
		assert.True(t, Decide(r, c).Visible, "record %s", r.ID)
	}

	upper := Criteria{Ventilation: "ALL", Fuel: "All"}
	assert.True(t, upper.IsAll())
	assert.Equal(t, len(sample()), Count(sample(), upper))
}

func TestDecide_SubstringMatch(t *testing.T) {
	c := Criteria{Ventilation: All, Fuel: "lpg"}
	records := sample()

	assert.False(t, Decide(records[0], c).Visible)
	assert.True(t, Decide(records[1], c).Visible, "lpg is a substring of 'LPG 3 kg'")
	assert.True(t, Decide(records[2], c).Visible)
	assert.False(t, Decide(records[5], c).Visible, "missing attribute never matches a specific value")
}

func TestDecide_NonMatchingSelectorHides(t *testing.T) {
	for _, r := range sample() {
		d := Decide(r, Criteria{Ventilation: "zzz", Fuel: All})
		assert.False(t, d.Visible)
		assert.Empty(t, d.Tier, "hidden records carry no tier")
	}
}

func TestDecide_LabelRemapBeforeSubstring(t *testing.T) {
	r := household(7, "kurang", "kayu")
	d := Decide(r, Criteria{Ventilation: "buruk", Fuel: All})
	require.True(t, d.Visible)
	assert.Equal(t, TierPoor, d.Tier)

	d = Decide(r, Criteria{Ventilation: "Buruk", Fuel: All})
	assert.True(t, d.Visible, "remap applies after lower-casing the selector")

	// The raw label itself is never looked for in the data.
	assert.False(t, Decide(household(8, "buruk sekali", ""), Criteria{Ventilation: "buruk", Fuel: All}).Visible)
}

func TestDecide_BothSelectorsMustMatch(t *testing.T) {
	records := sample()
	c := Criteria{Ventilation: "kurang", Fuel: "kayu"}

	assert.True(t, Decide(records[0], c).Visible)
	assert.False(t, Decide(records[4], c).Visible)
	assert.Equal(t, 1, Count(records, c))
}

func TestDecide_Tiers(t *testing.T) {
	c := DefaultCriteria()
	cases := map[string]Tier{
		"kurang":      TierPoor,
		"KURANG":      TierPoor,
		"cukup":       TierFair,
		"baik":        TierGood,
		"":            TierGood,
		"kurang baik": TierGood,
	}
	for vent, want := range cases {
		assert.Equal(t, want, Decide(household(1, vent, ""), c).Tier, "ventilation %q", vent)
	}
}

func TestCount_MatchesFreshScan(t *testing.T) {
	records := sample()
	for _, c := range []Criteria{
		DefaultCriteria(),
		{Ventilation: "kurang", Fuel: All},
		{Ventilation: "cukup", Fuel: "lpg"},
		{Ventilation: All, Fuel: "minyak"},
		{Ventilation: "nothing", Fuel: "nothing"},
	} {
		want := 0
		for _, r := range records {
			if Decide(r, c).Visible {
				want++
			}
		}
		assert.Equal(t, want, Count(records, c), "criteria %+v", c)

		visible := 0
		for _, d := range DecideAll(records, c) {
			if d.Visible {
				visible++
			}
		}
		assert.Equal(t, want, visible)
	}
}

func TestCriteria_With(t *testing.T) {
	c, err := DefaultCriteria().With(SelectorFuel, "lpg")
	require.NoError(t, err)
	assert.Equal(t, "lpg", c.Fuel)
	assert.Equal(t, All, c.Ventilation)

	c, err = c.With("VENTILASI", "cukup")
	require.NoError(t, err)
	assert.Equal(t, "cukup", c.Value(SelectorVentilation))

	_, err = c.With("colour", "red")
	assert.ErrorIs(t, err, ErrUnknownSelector)
}

func TestCull_KeepsBelowThreshold(t *testing.T) {
	records := make([]Record, 150)
	for i := range records {
		records[i] = household(i, "baik", "lpg")
	}

	kept, removed := Cull(records, DefaultCullThreshold)
	assert.Equal(t, 50, removed)
	require.Len(t, kept, 100)
	for i, r := range kept {
		fid, ok := r.Number(FieldFID)
		require.True(t, ok)
		assert.Equal(t, float64(i), fid)
	}
}

func TestCull_InterleavedAndNonNumeric(t *testing.T) {
	records := []Record{
		household(120, "", ""),
		household(3, "", ""),
		household(101, "", ""),
		household(100, "", ""),
		{ID: "x", Properties: geojson.Properties{FieldFID: "150"}},
		{ID: "y", Properties: geojson.Properties{FieldFID: "abc"}},
		{ID: "z", Properties: geojson.Properties{}},
		household(99, "", ""),
	}

	kept, removed := Cull(records, 100)
	assert.Equal(t, 5, removed)
	ids := make([]string, 0, len(kept))
	for _, r := range kept {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"3", "y", "z", "99"}, ids)
}

func TestNewRecord_Identity(t *testing.T) {
	f := geojson.NewFeature(orb.Point{1, 2})
	f.Properties[FieldFID] = float64(42)
	assert.Equal(t, "42", NewRecord(f, 0).ID)

	g := geojson.NewFeature(orb.Point{1, 2})
	g.ID = "house-9"
	assert.Equal(t, "house-9", NewRecord(g, 3).ID)

	h := geojson.NewFeature(orb.Point{1, 2})
	h.Properties = nil
	r := NewRecord(h, 5)
	assert.Equal(t, "5", r.ID)
	assert.Equal(t, "", r.Attr(FieldVentilation))
}
