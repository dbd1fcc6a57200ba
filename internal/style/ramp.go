package style

import "math"

// Polygon id range coloured by the boundary ramp.
const (
	RampMin = 1
	RampMax = 1283
)

// Ramp interpolates linearly between two colours over [Min, Max].
type Ramp struct {
	Min, Max   float64
	Start, End RGB
}

// BoundaryRamp colours boundary polygons from light to dark blue by id.
var BoundaryRamp = Ramp{
	Min:   RampMin,
	Max:   RampMax,
	Start: RGB{R: 191, G: 219, B: 254},
	End:   RGB{R: 30, G: 64, B: 175},
}

// Ratio returns where v falls in the range, clamped to [0, 1].
func (r Ramp) Ratio(v float64) float64 {
	if r.Max <= r.Min {
		return 0
	}
	ratio := (v - r.Min) / (r.Max - r.Min)
	switch {
	case math.IsNaN(ratio), ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// At returns the interpolated colour for v.
func (r Ramp) At(v float64) RGB {
	t := r.Ratio(v)
	return RGB{
		R: lerp(r.Start.R, r.End.R, t),
		G: lerp(r.Start.G, r.End.G, t),
		B: lerp(r.Start.B, r.End.B, t),
	}
}

// Descriptor builds the polygon style for key v.
func (r Ramp) Descriptor(v int) *Descriptor {
	return &Descriptor{
		Fill:        r.At(float64(v)).Hex(),
		Stroke:      Boundary.Stroke,
		StrokeWidth: 1,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
