package session

import (
	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-survey/internal/style"
)

// Layer identifies one overlay on the map.
type Layer string

const (
	LayerPoints   Layer = "points"
	LayerBoundary Layer = "boundary"
	LayerBuffer   Layer = "buffer"
)

// Layers lists the overlays bottom to top.
var Layers = []Layer{LayerBoundary, LayerBuffer, LayerPoints}

// LayerState is a layer's visibility plus its base style.
type LayerState struct {
	ID       Layer             `json:"id" doc:"Layer identifier" example:"points"`
	Name     string            `json:"name" doc:"Display name" example:"Households"`
	Visible  bool              `json:"visible" doc:"Whether the layer is drawn" example:"true"`
	Features int               `json:"features" doc:"Features loaded into the layer" example:"100"`
	Style    *style.Descriptor `json:"style,omitempty" doc:"Base style; points are styled per tier"`
}

var layerNames = map[Layer]string{
	LayerPoints:   "Households",
	LayerBoundary: "Region boundary",
	LayerBuffer:   "Buffer",
}

// ParseLayer validates a layer id.
func ParseLayer(id string) (Layer, error) {
	l := Layer(id)
	if _, ok := layerNames[l]; !ok {
		return "", eris.Wrapf(ErrUnknownLayer, "%q", id)
	}
	return l, nil
}

// SetLayerVisible shows or hides a layer. It does not change the visible
// household count.
func (c *Controller) SetLayerVisible(l Layer, visible bool) error {
	if _, ok := layerNames[l]; !ok {
		return eris.Wrapf(ErrUnknownLayer, "%q", l)
	}
	c.mu.Lock()
	changed := c.layers[l] != visible
	c.layers[l] = visible
	c.mu.Unlock()

	if changed {
		c.bus.Publish(Event{Resource: "layers", Action: "toggled", ID: string(l)})
	}
	return nil
}

// LayerVisible reports whether a layer is drawn.
func (c *Controller) LayerVisible(l Layer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers[l]
}

// LayerStates returns every layer in draw order.
func (c *Controller) LayerStates() []LayerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LayerState, 0, len(Layers))
	for _, l := range Layers {
		s := LayerState{ID: l, Name: layerNames[l], Visible: c.layers[l]}
		switch l {
		case LayerPoints:
			s.Features = len(c.households)
		case LayerBoundary:
			s.Features = len(c.boundary)
			s.Style = &style.Boundary
		case LayerBuffer:
			s.Features = len(c.buffer)
			s.Style = &style.Buffer
		}
		out = append(out, s)
	}
	return out
}
