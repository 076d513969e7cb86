package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// NewResetCmd constructs the `geostacd reset` command. Conversation state
// lives only in the in-process Conversation Store of a running `geostacd
// serve`, so — unlike `query`, which can build its own one-shot pipeline
// in-process — reset has nothing to clear locally; it calls POST
// /api/reset on a running server instead.
func NewResetCmd() *cobra.Command {
	var serverURL string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "reset <session-id>",
		Short: "Clear a conversation session on a running geostacd server",
		Long: `Clear the conversation state for a session ID by calling POST
/api/reset on a running geostacd server. This has no effect on a server's
internal state unless it is actually running and reachable.

Examples:
  geostacd reset demo
  geostacd reset --server http://localhost:9090 demo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID = args[0]

			body, err := json.Marshal(struct {
				SessionID string `json:"sessionId"`
			}{SessionID: sessionID})
			if err != nil {
				return fmt.Errorf("reset: failed to encode request: %w", err)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, serverURL+"/api/reset", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("reset: failed to build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if apiKey := os.Getenv("GEOSTAC_API_KEY"); apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+apiKey)
			}

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("reset: request to %s failed: %w", serverURL, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("reset: server returned %s: %s", resp.Status, string(msg))
			}

			fmt.Printf("session %q reset\n", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "Base URL of a running geostacd serve instance")

	return cmd
}
