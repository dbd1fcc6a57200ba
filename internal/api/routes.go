// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/session"
	"github.com/joeblew999/plat-survey/internal/source"
	"github.com/joeblew999/plat-survey/internal/style"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the dependencies for API handlers.
type Services struct {
	Session *session.Controller
	Source  *source.Service
	DB      *sql.DB
	DataDir string
}

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

type CriteriaOutput struct {
	Body filter.Criteria
}

type SelectorInput struct {
	Selector string `path:"selector" enum:"ventilasi,bb" doc:"Selector to change" example:"bb"`
	Body     struct {
		Value string `json:"value" required:"true" minLength:"1" doc:"Selector value, or \"all\"" example:"lpg"`
	}
}

type CountBody struct {
	Criteria filter.Criteria `json:"criteria" doc:"Criteria after the change"`
	Visible  int             `json:"visible" doc:"Households visible under the criteria" example:"42"`
}

type CountOutput struct {
	Body CountBody
}

type StatsOutput struct {
	Body session.Stats
}

type CacheOutput struct {
	Body []style.CacheStats
}

// APIHandler holds the REST handlers. Methods named Register* are picked up
// by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler(svc.DataDir, svc.DB != nil).RegisterRoutes(api)
	NewDBHandler(svc.DB).RegisterRoutes(api)
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCriteria registers the filter control routes.
func (h *APIHandler) RegisterCriteria(api huma.API) {
	huma.Get(api, "/api/v1/criteria", h.GetCriteria, huma.OperationTags("criteria"))
	huma.Put(api, "/api/v1/criteria/{selector}", h.PutCriteria, huma.OperationTags("criteria"))
	huma.Post(api, "/api/v1/criteria/reset", h.ResetCriteria, huma.OperationTags("criteria"))
	huma.Get(api, "/api/v1/stats", h.GetStats, huma.OperationTags("criteria"))
	huma.Get(api, "/api/v1/cache", h.GetCache, huma.OperationTags("criteria"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetCriteria(ctx context.Context, input *struct{}) (*CriteriaOutput, error) {
	return &CriteriaOutput{Body: h.svc.Session.Criteria()}, nil
}

func (h *APIHandler) PutCriteria(ctx context.Context, input *SelectorInput) (*CountOutput, error) {
	visible, err := h.svc.Session.SetCriteria(filter.Selector(input.Selector), input.Body.Value)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &CountOutput{Body: CountBody{Criteria: h.svc.Session.Criteria(), Visible: visible}}, nil
}

func (h *APIHandler) ResetCriteria(ctx context.Context, input *struct{}) (*CountOutput, error) {
	visible := h.svc.Session.Reset()
	return &CountOutput{Body: CountBody{Criteria: h.svc.Session.Criteria(), Visible: visible}}, nil
}

func (h *APIHandler) GetStats(ctx context.Context, input *struct{}) (*StatsOutput, error) {
	return &StatsOutput{Body: h.svc.Session.Stats()}, nil
}

func (h *APIHandler) GetCache(ctx context.Context, input *struct{}) (*CacheOutput, error) {
	return &CacheOutput{Body: h.svc.Session.CacheStats()}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []source.SourceFile }, error) {
	if h.svc.Source == nil {
		return &struct{ Body []source.SourceFile }{Body: []source.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list sources", err)
	}
	return &struct{ Body []source.SourceFile }{Body: sources}, nil
}

// toHTTPError maps session and filter errors onto Huma status errors.
func toHTTPError(err error) error {
	switch {
	case eris.Is(err, filter.ErrUnknownSelector):
		return huma.Error422UnprocessableEntity(err.Error())
	case eris.Is(err, session.ErrUnknownLayer), eris.Is(err, session.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case eris.Is(err, session.ErrAlreadyLoaded):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
