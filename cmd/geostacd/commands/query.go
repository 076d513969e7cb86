package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/geostac/internal/orchestrator"
)

// NewQueryCmd constructs the `geostacd query` command, which sends a
// single natural-language geospatial question through the full pipeline
// and prints the composed reply to stdout — a one-shot equivalent of
// POST /api/query that builds its own in-process dependency graph rather
// than requiring a running server.
func NewQueryCmd() *cobra.Command {
	var sessionID string
	var lat, lon, radiusMiles float64

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Translate a natural-language geospatial question into a STAC search",
		Long: `Translate a natural-language geospatial question into a STAC search,
select the highest-quality matching tiles, and print the composed reply.

Examples:
  geostacd query "show me the most recent cloud-free Sentinel-2 imagery over the Amazon basin"
  geostacd query --session demo "how does this compare to six months ago?"
  geostacd query --lat 37.77 --lon -122.42 "any wildfire activity nearby?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pipeline, _, closePipeline, err := buildPipeline(ctx)
			defer closePipeline()
			if err != nil {
				return fmt.Errorf("query: failed to initialise pipeline: %w", err)
			}

			var pin *orchestrator.Pin
			if lat != 0 || lon != 0 {
				pin = &orchestrator.Pin{Lat: lat, Lon: lon, RadiusMiles: radiusMiles}
			}

			if sessionID == "" {
				sessionID = "cli"
			}

			resp := pipeline.TranslateQuery(ctx, sessionID, args[0], pin)
			fmt.Println(resp.Message)
			if !resp.Success {
				return fmt.Errorf("query: turn did not complete successfully")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Conversation session ID (default: \"cli\")")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Optional map-pin latitude, used when the question names no location")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Optional map-pin longitude, used when the question names no location")
	cmd.Flags().Float64Var(&radiusMiles, "radius-miles", 0, "Map-pin radius in miles (default: 5)")

	return cmd
}
