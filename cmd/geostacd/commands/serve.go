package commands

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/geostac/internal/server"
	"github.com/54b3r/geostac/internal/tracing"
)

// NewServeCmd constructs the `geostacd serve` command, which starts the
// HTTP front end over the query orchestration Pipeline.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the geostacd HTTP server",
		Long: `Start the geostacd HTTP server on localhost.

The server exposes POST /api/query and POST /api/reset over the query
orchestration Pipeline, plus GET /api/health, GET /api/ready, and GET
/metrics for operational use.

Examples:
  geostacd serve
  geostacd serve --port 9090
  MODEL_PROVIDER=azure geostacd serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("serve: MODEL_PROVIDER=%q", os.Getenv("MODEL_PROVIDER"))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Printf("serve: langfuse tracing enabled")
			} else {
				log.Printf("serve: langfuse tracing disabled (LANGFUSE_PUBLIC_KEY not set)")
			}

			pipeline, pingers, closePipeline, err := buildPipeline(ctx)
			defer closePipeline()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise pipeline: %w", err)
			}
			log.Printf("serve: pipeline initialised successfully")

			srv, err := server.New(pipeline, &server.Config{
				Host:    host,
				Port:    port,
				Pingers: pingers,
				APIKey:  os.Getenv("GEOSTAC_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
