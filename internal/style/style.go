// Package style builds rendering descriptors for map features and caches them
// by key so each distinct key is constructed exactly once.
package style

import (
	"fmt"

	"github.com/joeblew999/plat-survey/internal/filter"
)

// Descriptor is the rendering instruction handed to the map library.
// Treat it as read-only: the same pointer is shared by every feature with the
// same key.
type Descriptor struct {
	Fill        string  `json:"fill" doc:"Fill colour (CSS)" example:"#10b981"`
	Stroke      string  `json:"stroke,omitempty" doc:"Stroke colour (CSS)" example:"#fff"`
	StrokeWidth float64 `json:"strokeWidth,omitempty" doc:"Stroke width in pixels" example:"2"`
	Radius      float64 `json:"radius,omitempty" doc:"Point radius in pixels" example:"6"`
}

// Properties flattens the descriptor into GeoJSON feature properties.
func (d *Descriptor) Properties() map[string]any {
	p := map[string]any{"fill": d.Fill}
	if d.Stroke != "" {
		p["stroke"] = d.Stroke
		p["strokeWidth"] = d.StrokeWidth
	}
	if d.Radius > 0 {
		p["radius"] = d.Radius
	}
	return p
}

// Tier colours for household points.
const (
	ColorPoor = "#ef4444"
	ColorFair = "#eab308"
	ColorGood = "#10b981"
)

// Household point geometry.
const (
	PointRadius      = 6
	PointStroke      = "#fff"
	PointStrokeWidth = 2
)

// ForTier builds the circle style for a ventilation tier.
func ForTier(t filter.Tier) *Descriptor {
	fill := ColorGood
	switch t {
	case filter.TierPoor:
		fill = ColorPoor
	case filter.TierFair:
		fill = ColorFair
	}
	return &Descriptor{
		Fill:        fill,
		Stroke:      PointStroke,
		StrokeWidth: PointStrokeWidth,
		Radius:      PointRadius,
	}
}

// Boundary is the region outline style.
var Boundary = Descriptor{
	Fill:        "rgba(59, 130, 246, 0.1)",
	Stroke:      "#3b82f6",
	StrokeWidth: 2,
}

// Buffer is the buffer polygon style.
var Buffer = Descriptor{
	Fill:        "rgba(251, 191, 36, 0.3)",
	Stroke:      "#f59e0b",
	StrokeWidth: 2,
}

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
