package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/logging"
	"github.com/joeblew999/plat-survey/internal/server"
	"github.com/joeblew999/plat-survey/internal/source"
)

// Options defines all CLI flags and env vars for the survey server.
// Flags: --host, --port, --data-dir, --points-file, --cull-at, --log-level ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CULL_AT ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir      string `doc:"Directory holding sources/ and duckdb/" default:".data"`
	PointsFile   string `doc:"Household points GeoJSON under sources/" default:"penduduk2.json"`
	BoundaryFile string `doc:"Region boundary GeoJSON under sources/" default:"polygon_riau.json"`
	BufferFile   string `doc:"Buffer zone GeoJSON under sources/" default:"buffer.json"`
	CullAt       int    `doc:"Drop households with FID at or above this value (0 keeps all)" default:"100"`
	DB           bool   `doc:"Mirror households into DuckDB" default:"true"`
	LogLevel     string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogDev       bool   `doc:"Human-readable development logs" default:"false"`
}

func newServer(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		DataDir:       opts.DataDir,
		PointsFile:    opts.PointsFile,
		BoundaryFile:  opts.BoundaryFile,
		BufferFile:    opts.BufferFile,
		CullThreshold: opts.CullAt,
		DBEnabled:     opts.DB,
	})
}

func initLogging(opts *Options) {
	if err := logging.Init(logging.Config{Level: opts.LogLevel, Dev: opts.LogDev}); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	// .env is optional; real env vars win.
	_ = godotenv.Load()
	newCLI().Run()
}

// newCLI builds the command tree. The callback runs before every command, so
// it only configures logging; the server and its database are built when the
// serve command starts.
func newCLI() humacli.CLI {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		initLogging(opts)

		var srv *server.Server
		var httpSrv *http.Server
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			srv = newServer(opts)
			httpSrv = &http.Server{Addr: fmt.Sprintf("%s:%d", opts.Host, opts.Port), Handler: srv}

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)
			zap.L().Info("plat-survey API server starting",
				zap.String("server", baseURL),
				zap.String("data", opts.DataDir),
				zap.String("docs", baseURL+"/docs"),
				zap.String("openapi", baseURL+"/openapi.json"),
			)

			srv.Load(ctx)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.L().Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			if httpSrv != nil {
				if err := httpSrv.Shutdown(context.Background()); err != nil {
					zap.L().Warn("shutdown", zap.Error(err))
				}
			}
			if srv != nil {
				srv.Close()
			}
			zap.L().Sync()
		})
	})

	cli.Root().Use = "survey"
	cli.Root().Short = "Household survey map with ventilation and fuel filters"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.DB = false
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// count subcommand: offline load, cull and count
	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count households visible under the given criteria",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			file, _ := cmd.Flags().GetString("file")
			vent, _ := cmd.Flags().GetString("ventilation")
			fuel, _ := cmd.Flags().GetString("fuel")

			n, err := count(file, opts.CullAt, vent, fuel)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}),
	}
	countCmd.Flags().StringP("file", "f", "", "GeoJSON household file")
	countCmd.Flags().String("ventilation", filter.All, "Ventilation selector")
	countCmd.Flags().String("fuel", filter.All, "Fuel type selector")
	countCmd.MarkFlagRequired("file")
	cli.Root().AddCommand(countCmd)

	return cli
}

func count(path string, cullAt int, vent, fuel string) (int, error) {
	records, err := source.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if cullAt > 0 {
		records, _ = filter.Cull(records, float64(cullAt))
	}
	c := filter.DefaultCriteria()
	if c, err = c.With(filter.SelectorVentilation, vent); err != nil {
		return 0, err
	}
	if c, err = c.With(filter.SelectorFuel, fuel); err != nil {
		return 0, err
	}
	return filter.Count(records, c), nil
}
