package tracing

import (
	"context"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/geostac/internal/version"
)

// Setup initialises the Langfuse callback handler if LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY are set. Returns a flush function that must be called
// before process exit to ensure all traces are sent, and true. If Langfuse
// is not configured, the handler and flush function are nil, the bool is
// false, and tracing is silently disabled.
func Setup() (callbacks.Handler, func(), bool) {
	host := os.Getenv("LANGFUSE_HOST")
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")

	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}
	if host == "" {
		host = "http://localhost:3000"
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Name:      "geostacd",
		Release:   version.Version,
		Tags:      []string{"geostacd", "stac", "llm"},
	})

	return handler, flusher, true
}

// SetRequestTrace stamps the context with per-request trace metadata so each
// query turn appears as a distinct, named trace in Langfuse. Call this once
// per request before invoking the pipeline. sessionID is recorded as the
// Langfuse session ID; the HTTP server passes the conversation's session
// ID, so the turns of one conversation share it.
func SetRequestTrace(ctx context.Context, sessionID string) context.Context {
	return langfuse.SetTrace(ctx,
		langfuse.WithName("geostacd-query"),
		langfuse.WithSessionID(sessionID),
		langfuse.WithRelease(version.Version),
		langfuse.WithTags("geostacd", "query"),
	)
}
