package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/session"
	"github.com/joeblew999/plat-survey/internal/style"
)

const geoJSONType = "application/geo+json"

// GeoJSONOutput carries a pre-encoded FeatureCollection.
type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type FeatureIDInput struct {
	ID string `path:"id" doc:"Household identity (FID)" example:"12"`
}

// HouseholdDetails is what the map popup shows for one household.
type HouseholdDetails struct {
	ID               string            `json:"id" doc:"Household identity" example:"12"`
	Village          string            `json:"kelurahan" doc:"Village" example:"Tangkerang"`
	HouseID          string            `json:"idRumah" doc:"Survey house id" example:"R-012"`
	Address          string            `json:"alamat" doc:"Street address" example:"Jl. Melati 4"`
	Occupants        int               `json:"jumlahPen" doc:"Affected occupants" example:"3"`
	Fuel             string            `json:"jenisBaha" doc:"Cooking fuel" example:"kayu bakar"`
	FuelLabel        string            `json:"jenisBahaLabel" doc:"Cooking fuel for display" example:"Kayu Bakar"`
	Ventilation      string            `json:"ventilasi" doc:"Ventilation quality" example:"kurang"`
	VentilationLabel string            `json:"ventilasiLabel" doc:"Ventilation quality for display" example:"Kurang"`
	Tier             filter.Tier       `json:"tier" enum:"kurang,cukup,baik" doc:"Ventilation tier" example:"kurang"`
	Visible          bool              `json:"visible" doc:"Whether the household passes the current criteria"`
	Style            *style.Descriptor `json:"style,omitempty" doc:"Style when visible"`
}

// missing is shown for absent text attributes.
const missing = "-"

// RegisterFeatures registers the GeoJSON feature routes.
func (h *APIHandler) RegisterFeatures(api huma.API) {
	huma.Get(api, "/api/v1/features", h.GetFeatures, huma.OperationTags("features"))
	huma.Get(api, "/api/v1/features/{id}", h.GetFeature, huma.OperationTags("features"))
	huma.Get(api, "/api/v1/boundary", h.GetBoundary, huma.OperationTags("features"))
	huma.Get(api, "/api/v1/buffer", h.GetBuffer, huma.OperationTags("features"))
}

// GetFeatures returns the visible households with their styles. Hidden
// households are left out.
func (h *APIHandler) GetFeatures(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	return encodeStyled(h.svc.Session.Render())
}

func (h *APIHandler) GetFeature(ctx context.Context, input *FeatureIDInput) (*struct{ Body HouseholdDetails }, error) {
	s, err := h.svc.Session.StyledHousehold(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if !s.Record.Has(filter.FieldHouseID) {
		return nil, huma.Error404NotFound("not a household feature")
	}

	details := describe(s.Record)
	details.Visible = !s.Hidden()
	details.Style = s.Style
	return &struct{ Body HouseholdDetails }{Body: details}, nil
}

func (h *APIHandler) GetBoundary(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	return encodeStyled(h.svc.Session.Boundary())
}

func (h *APIHandler) GetBuffer(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	return encodeStyled(h.svc.Session.Buffer())
}

func encodeStyled(items []session.Styled) (*GeoJSONOutput, error) {
	data, err := featureCollection(items).MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode features", err)
	}
	return &GeoJSONOutput{ContentType: geoJSONType, Body: data}, nil
}

// featureCollection converts styled records to GeoJSON. Each feature keeps
// its source properties and gains "style" and, for households, "tier".
func featureCollection(items []session.Styled) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range items {
		if s.Hidden() || s.Record.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(s.Record.Geometry)
		f.ID = s.Record.ID
		props := s.Record.Properties.Clone()
		props["style"] = s.Style.Properties()
		if s.Tier != "" {
			props["tier"] = string(s.Tier)
		}
		f.Properties = props
		fc.Append(f)
	}
	return fc
}

func describe(r filter.Record) HouseholdDetails {
	d := HouseholdDetails{
		ID:          r.ID,
		Village:     orMissing(r.Attr(filter.FieldVillage)),
		HouseID:     orMissing(r.Attr(filter.FieldHouseID)),
		Address:     orMissing(r.Attr(filter.FieldAddress)),
		Fuel:        orMissing(r.Attr(filter.FieldFuel)),
		Ventilation: orMissing(r.Attr(filter.FieldVentilation)),
		Tier:        filter.TierOf(r),
	}
	if n, ok := r.Number(filter.FieldOccupants); ok {
		d.Occupants = int(n)
	}
	d.FuelLabel = label(d.Fuel)
	d.VentilationLabel = label(d.Ventilation)
	return d
}

func orMissing(v string) string {
	if strings.TrimSpace(v) == "" {
		return missing
	}
	return v
}

func label(v string) string {
	if v == missing {
		return v
	}
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Title(language.Indonesian).String(strings.ToLower(v))
}
