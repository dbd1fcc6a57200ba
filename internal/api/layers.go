package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/session"
)

type LayerIDInput struct {
	ID string `path:"id" enum:"points,boundary,buffer" doc:"Layer ID" example:"points"`
}

type LayerVisibilityInput struct {
	LayerIDInput
	Body struct {
		Visible bool `json:"visible" doc:"Whether the layer is drawn" example:"false"`
	}
}

type LayersOutput struct {
	Body []session.LayerState
}

type LayerOutput struct {
	Body session.LayerState
}

// RegisterLayers registers layer visibility routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}", h.PutLayer, huma.OperationTags("layers"))
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	return &LayersOutput{Body: h.svc.Session.LayerStates()}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *LayerIDInput) (*LayerOutput, error) {
	state, err := h.layerState(input.ID)
	if err != nil {
		return nil, err
	}
	return &LayerOutput{Body: state}, nil
}

func (h *APIHandler) PutLayer(ctx context.Context, input *LayerVisibilityInput) (*LayerOutput, error) {
	l, err := session.ParseLayer(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if err := h.svc.Session.SetLayerVisible(l, input.Body.Visible); err != nil {
		return nil, toHTTPError(err)
	}
	state, err := h.layerState(input.ID)
	if err != nil {
		return nil, err
	}
	return &LayerOutput{Body: state}, nil
}

func (h *APIHandler) layerState(id string) (session.LayerState, error) {
	l, err := session.ParseLayer(id)
	if err != nil {
		return session.LayerState{}, toHTTPError(err)
	}
	for _, s := range h.svc.Session.LayerStates() {
		if s.ID == l {
			return s, nil
		}
	}
	return session.LayerState{}, huma.Error404NotFound("layer not found")
}
