// Command geostacd is the entry point for the query orchestration pipeline.
// It provides a CLI interface (via Cobra) and an HTTP server for
// translating natural-language geospatial questions into STAC searches.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/geostac/cmd/geostacd/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
