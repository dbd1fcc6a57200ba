// Package filter decides which survey records are visible under the current
// control-panel criteria and which ventilation tier a visible record falls in.
//
// Nothing here knows about rendering: a Decision with Visible=false is the hide
// signal, and the Tier is the key the style cache is consulted with.
package filter

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Attribute names carried by the household survey GeoJSON.
const (
	FieldFID         = "FID"
	FieldVentilation = "ventilasi_"
	FieldFuel        = "jenis_baha"
	FieldHouseID     = "id_rumah"
	FieldAddress     = "alamat"
	FieldOccupants   = "jumlah_pen"
	FieldVillage     = "kelurahan"
)

// Record is one attributed feature loaded from a source file.
// Records are immutable once the owning set reaches the ready phase.
type Record struct {
	ID         string             `json:"id"`
	Geometry   orb.Geometry       `json:"-"`
	Properties geojson.Properties `json:"properties"`
}

// NewRecord builds a record from a decoded GeoJSON feature. The identity is
// the FID property when present, else the feature id, else the position in
// the collection.
func NewRecord(f *geojson.Feature, index int) Record {
	props := f.Properties
	if props == nil {
		props = geojson.Properties{}
	}
	r := Record{Geometry: f.Geometry, Properties: props}
	switch {
	case props[FieldFID] != nil:
		r.ID = attrString(props[FieldFID])
	case f.ID != nil:
		r.ID = attrString(f.ID)
	default:
		r.ID = strconv.Itoa(index)
	}
	return r
}

// Attr returns the named attribute as a string, or "" when absent.
func (r Record) Attr(name string) string {
	return attrString(r.Properties[name])
}

// Number returns the named attribute as a float. Numeric strings are parsed;
// anything else reports ok=false.
func (r Record) Number(name string) (float64, bool) {
	switch v := r.Properties[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Has reports whether the attribute is present and not empty.
func (r Record) Has(name string) bool {
	return r.Attr(name) != ""
}

func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
