package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/filter"
)

// InfoHandler reports static service information.
type InfoHandler struct {
	dataDir string
	dbOK    bool
}

func NewInfoHandler(dataDir string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name      string   `json:"name" doc:"Service name"`
	Version   string   `json:"version" doc:"Service version"`
	DataDir   string   `json:"data_dir" doc:"Data directory path"`
	DB        bool     `json:"db" doc:"Whether database is available"`
	Features  []string `json:"features" doc:"Available features"`
	Selectors []string `json:"selectors" doc:"Filter selectors accepted by /api/v1/criteria/{selector}"`
	Tiers     []string `json:"tiers" doc:"Ventilation tiers, worst first"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:      "plat-survey",
		Version:   Version,
		DataDir:   h.dataDir,
		DB:        h.dbOK,
		Features:  []string{"households", "boundary", "buffer", "filter", "duckdb", "metrics"},
		Selectors: selectorNames(),
		Tiers:     tierNames(),
	}}, nil
}

func selectorNames() []string {
	out := make([]string, len(filter.Selectors))
	for i, s := range filter.Selectors {
		out[i] = string(s)
	}
	return out
}

func tierNames() []string {
	out := make([]string, len(filter.Tiers))
	for i, t := range filter.Tiers {
		out[i] = string(t)
	}
	return out
}
