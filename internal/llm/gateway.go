// Package llm implements the LLM Gateway: a thin, schema-enforcing wrapper
// around an eino [model.ToolCallingChatModel] that gives every agent in the
// pipeline the same contract — raw text or schema-validated JSON, an
// end-to-end deadline, one retry on transport failure, and one retry with a
// reinforced "JSON only" instruction on malformed output.
//
// The underlying chat model is constructed by internal/provider, which is
// carried over from the teacher unchanged: provider selection (Ollama,
// OpenAI, Azure, Bedrock, Gemini) is an orthogonal concern to the contract
// this package adds on top.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrTimeout is returned when the deadline elapses before a response arrives.
var ErrTimeout = errors.New("llm: deadline exceeded")

// ErrInvalidJSON is returned when the model's output could not be parsed as
// JSON (or failed schema validation) even after the reinforced retry.
var ErrInvalidJSON = errors.New("llm: invalid JSON output")

// Schema is a minimal JSON-schema-like description used only to build the
// reinforced "JSON only" instruction and to sanity-check the decoded value's
// required keys are present. Full JSON-Schema validation is intentionally
// not implemented — agents decode into a concrete Go struct immediately
// after, which is where a stricter contract actually gets enforced.
type Schema struct {
	// Name is a short label used in the reinforced retry instruction, e.g.
	// "intent classification".
	Name string
	// Required lists the top-level JSON keys that must be present.
	Required []string
}

// Gateway is the single entry point every agent uses to talk to the LLM.
type Gateway struct {
	model model.ToolCallingChatModel
}

// New constructs a Gateway around an already-configured chat model (built by
// internal/provider.New or provider.NewFromEnv).
func New(chatModel model.ToolCallingChatModel) (*Gateway, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("llm: chat model must not be nil")
	}
	return &Gateway{model: chatModel}, nil
}

// Complete sends a system+user message pair and returns the raw text
// response. The deadline is enforced end-to-end; transport errors are
// retried once with jittered backoff.
func (g *Gateway) Complete(ctx context.Context, system, user string, maxTokens int, deadline time.Duration) (string, error) {
	return g.CompleteMessages(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, maxTokens, deadline)
}

// CompleteMessages is the multi-message variant of Complete, for callers
// that thread prior conversation turns into the prompt (the Response
// Composer's detailed template). The same deadline and transport-retry
// contract applies.
func (g *Gateway) CompleteMessages(ctx context.Context, messages []*schema.Message, maxTokens int, deadline time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	text, err := g.generateWithRetry(ctx, messages, maxTokens)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
	return text, nil
}

// CompleteJSON sends a system+user message pair and decodes the response
// into dst (a pointer) after stripping markdown code fences. On parse
// failure, one retry is attempted with a reinforced "JSON only" system
// instruction referencing sch.Name and sch.Required; on a second failure,
// ErrInvalidJSON is returned so the caller can fall back to its rule-based
// equivalent.
func (g *Gateway) CompleteJSON(ctx context.Context, system, user string, sch Schema, dst any, maxTokens int, deadline time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	text, err := g.generateWithRetry(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, maxTokens)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	}

	if err := decodeJSON(text, sch, dst); err == nil {
		return nil
	}

	// One retry with a reinforced "JSON only" instruction.
	reinforced := system + "\n\nIMPORTANT: Respond with ONLY a single JSON object for " +
		sch.Name + ". No markdown fences, no commentary, no surrounding text. Required keys: " +
		strings.Join(sch.Required, ", ") + "."

	text, err = g.generateWithRetry(ctx, []*schema.Message{
		schema.SystemMessage(reinforced),
		schema.UserMessage(user),
	}, maxTokens)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	}
	if err := decodeJSON(text, sch, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// generateWithRetry issues a single chat completion, retrying once with
// jittered backoff on a transport-level error (not on malformed output,
// which is handled by the caller).
func (g *Gateway) generateWithRetry(ctx context.Context, messages []*schema.Message, maxTokens int) (string, error) {
	msg, err := g.model.Generate(ctx, messages)
	if err == nil {
		return msg.Content, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	// Jittered backoff before the single retry.
	backoff := 200*time.Millisecond + time.Duration(rand.Intn(200))*time.Millisecond
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	msg, err = g.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm: generate failed after retry: %w", err)
	}
	return msg.Content, nil
}

// decodeJSON strips markdown code fences from text and unmarshals the
// result into dst, then checks that every key in sch.Required is present
// in the decoded JSON (re-parsed as a generic map for the key check).
func decodeJSON(text string, sch Schema, dst any) error {
	cleaned := stripFences(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return fmt.Errorf("llm: %s: not a JSON object: %w", sch.Name, err)
	}
	for _, key := range sch.Required {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("llm: %s: missing required key %q", sch.Name, key)
		}
	}
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return fmt.Errorf("llm: %s: decode: %w", sch.Name, err)
	}
	return nil
}

// stripFences removes a leading/trailing ``` or ```json code fence, if
// present, and trims surrounding whitespace. Models frequently wrap JSON
// responses in markdown fences despite being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimPrefix(s, "JSON")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
