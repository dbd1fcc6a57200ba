package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-survey/internal/api"
	"github.com/joeblew999/plat-survey/internal/api/panel"
	"github.com/joeblew999/plat-survey/internal/db"
	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/metrics"
	"github.com/joeblew999/plat-survey/internal/session"
	"github.com/joeblew999/plat-survey/internal/source"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string

	// Source files under DataDir/sources.
	PointsFile   string
	BoundaryFile string
	BufferFile   string

	// CullThreshold drops households with FID >= CullThreshold. Zero keeps all.
	CullThreshold int

	// DBEnabled mirrors loaded households into DuckDB.
	DBEnabled bool
}

// Server is the survey map HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	ctrl    *session.Controller
	sources *source.Service
	db      *sql.DB
}

// New creates a survey server. Sources are not read until Load.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-survey API", api.Version)
	humaConfig.Info.Description = "Household survey map: ventilation and cooking fuel filters over surveyed households."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		ctrl:    session.New(session.Config{CullThreshold: cfg.CullThreshold}),
		sources: source.NewService(cfg.DataDir),
	}

	if cfg.DBEnabled {
		conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "survey"})
		if err != nil {
			zap.L().Warn("duckdb unavailable, mirror disabled", zap.Error(err))
		} else {
			s.db = conn
			s.ctrl.OnReady(s.mirror)
		}
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Controller returns the session controller.
func (s *Server) Controller() *session.Controller {
	return s.ctrl
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the three sources in the background. Households go through the
// controller lifecycle; boundary and buffer are installed as they arrive.
func (s *Server) Load(ctx context.Context) {
	s.sources.LoadAsync(ctx, s.config.PointsFile, func(records []filter.Record, err error) {
		if err != nil {
			metrics.SourceLoadsTotal.WithLabelValues(string(session.LayerPoints), "error").Inc()
			s.ctrl.OnLoadFailed(err)
			return
		}
		metrics.SourceLoadsTotal.WithLabelValues(string(session.LayerPoints), "ok").Inc()
		if err := s.ctrl.OnLoadComplete(records); err != nil {
			zap.L().Warn("households load ignored", zap.Error(err))
		}
	})
	s.loadOverlay(ctx, session.LayerBoundary, s.config.BoundaryFile, s.ctrl.SetBoundary)
	s.loadOverlay(ctx, session.LayerBuffer, s.config.BufferFile, s.ctrl.SetBuffer)
}

func (s *Server) loadOverlay(ctx context.Context, layer session.Layer, name string, set func([]filter.Record)) {
	if name == "" {
		return
	}
	s.sources.LoadAsync(ctx, name, func(records []filter.Record, err error) {
		if err != nil {
			metrics.SourceLoadsTotal.WithLabelValues(string(layer), "error").Inc()
			zap.L().Warn("overlay load failed", zap.String("layer", string(layer)), zap.Error(err))
			return
		}
		metrics.SourceLoadsTotal.WithLabelValues(string(layer), "ok").Inc()
		set(records)
	})
}

func (s *Server) mirror(records []filter.Record) {
	if err := db.MirrorHouseholds(context.Background(), s.db, records); err != nil {
		zap.L().Error("households mirror failed", zap.Error(err))
		return
	}
	zap.L().Info("households mirrored", zap.Int("rows", len(records)))
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, &api.Services{
		Session: s.ctrl,
		Source:  s.sources,
		DB:      s.db,
		DataDir: s.config.DataDir,
	})
	panel.NewHandler(s.ctrl).RegisterRoutes(s.humaAPI)

	reg := metrics.NewRegistry(metrics.NewCacheCollector(s.ctrl.CacheStatsFuncs()...))
	s.mux.Handle("/metrics", metrics.Handler(reg))
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service": "plat-survey",
		"status":  "running",
		"phase":   s.ctrl.Phase(),
	})
}
