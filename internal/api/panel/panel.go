package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/session"
)

// Signal names bound by the panel.
const (
	SignalTotal       = "totalPoints"
	SignalPhase       = "phase"
	SignalShowPoints  = "showPoints"
	SignalShowPolygon = "showPolygon"
	SignalShowBuffer  = "showBuffer"
)

// layerSignals maps the panel checkboxes onto map layers.
var layerSignals = map[string]session.Layer{
	SignalShowPoints:  session.LayerPoints,
	SignalShowPolygon: session.LayerBoundary,
	SignalShowBuffer:  session.LayerBuffer,
}

type Handler struct {
	ctrl *session.Controller
}

func NewHandler(ctrl *session.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/panel/filter", h.Filter, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/reset", h.Reset, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/layers", h.Layers, huma.OperationTags("panel"))
	huma.Get(api, "/api/v1/panel/events", h.Events, huma.OperationTags("panel"))
}

// Filter applies the ventilasi and bb signals and patches the new count.
func (h *Handler) Filter(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := ParseSignals(input.RawBody)
	if err != nil {
		return invalidSignals(err), nil
	}
	criteria := CriteriaFromSignals(signals, h.ctrl.Criteria())
	visible := h.ctrl.OnFilterChanged(criteria)

	return Stream(func(sse SSE) {
		sse.Signals(map[string]any{SignalTotal: visible})
	}), nil
}

// Reset puts both selects back to "all".
func (h *Handler) Reset(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	visible := h.ctrl.Reset()
	return Stream(func(sse SSE) {
		sse.Signals(map[string]any{
			string(filter.SelectorVentilation): filter.All,
			string(filter.SelectorFuel):        filter.All,
			SignalTotal:                        visible,
		})
	}), nil
}

// Layers toggles the layers whose checkbox signals were sent.
func (h *Handler) Layers(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := ParseSignals(input.RawBody)
	if err != nil {
		return invalidSignals(err), nil
	}
	for name, layer := range layerSignals {
		visible, ok := signals.Bool(name)
		if !ok {
			continue
		}
		if err := h.ctrl.SetLayerVisible(layer, visible); err != nil {
			return nil, huma.Error500InternalServerError("Failed to toggle layer", err)
		}
	}
	return Stream(func(sse SSE) {
		sse.Signals(Snapshot(h.ctrl))
	}), nil
}

// Events sends a snapshot, then a fresh one after every controller event.
func (h *Handler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return Stream(func(sse SSE) {
		bus := h.ctrl.Bus()
		ch := bus.Subscribe(16)
		defer bus.Unsubscribe(ch)

		sse.Signals(Snapshot(h.ctrl))
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				sse.Signals(Snapshot(h.ctrl))
				sse.DispatchCustomEvent("resource-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
				})
			}
		}
	}), nil
}

// invalidSignals reports a malformed signal body to the panel, which shows
// the error signal instead of an HTTP error page.
func invalidSignals(err error) *huma.StreamResponse {
	return Stream(func(sse SSE) {
		sse.Error("Invalid signals: " + err.Error())
	})
}

// CriteriaFromSignals overlays the selector signals onto current. Selectors
// that were not sent keep their current value.
func CriteriaFromSignals(signals Signals, current filter.Criteria) filter.Criteria {
	for _, sel := range filter.Selectors {
		if v := signals.String(string(sel)); v != "" {
			current, _ = current.With(sel, v)
		}
	}
	return current
}

// Snapshot is the full signal state of the panel.
func Snapshot(ctrl *session.Controller) map[string]any {
	stats := ctrl.Stats()
	out := map[string]any{
		string(filter.SelectorVentilation): stats.Criteria.Ventilation,
		string(filter.SelectorFuel):        stats.Criteria.Fuel,
		SignalTotal:                        stats.Visible,
		SignalPhase:                        string(stats.Phase),
	}
	for name, layer := range layerSignals {
		out[name] = ctrl.LayerVisible(layer)
	}
	return out
}
