package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/geostac/internal/agents/cloudfilter"
	"github.com/54b3r/geostac/internal/agents/collection"
	"github.com/54b3r/geostac/internal/agents/datetime"
	"github.com/54b3r/geostac/internal/agents/intent"
	"github.com/54b3r/geostac/internal/agents/location"
	"github.com/54b3r/geostac/internal/compose"
	"github.com/54b3r/geostac/internal/convo"
	"github.com/54b3r/geostac/internal/geocoder"
	"github.com/54b3r/geostac/internal/history"
	"github.com/54b3r/geostac/internal/llm"
	"github.com/54b3r/geostac/internal/orchestrator"
	"github.com/54b3r/geostac/internal/provider"
	"github.com/54b3r/geostac/internal/query"
	"github.com/54b3r/geostac/internal/registry"
	"github.com/54b3r/geostac/internal/server"
	"github.com/54b3r/geostac/internal/stac"
	"github.com/54b3r/geostac/internal/tiles"
)

// geocoderDeadline bounds each geocoder backend request (the HTTP backends'
// client timeout and the LLM backend's deadline) within the Location
// Resolver's overall 30s budget (orchestrator.LocationResolverTotalTimeout).
const geocoderDeadline = 10 * time.Second

// buildPipeline assembles the full geostac dependency graph — registry,
// LLM gateway, geocoder chain, query builder, STAC client, the five
// extraction agents, tile selector, composer, conversation store — and
// wires them into an orchestrator.Pipeline. One shared constructor is
// reused by every subcommand that needs the pipeline, so serve and query
// never drift out of sync on how a component is built.
//
// The returned closeFn releases the history store (if any) and must be
// called before process exit.
func buildPipeline(ctx context.Context) (*orchestrator.Pipeline, []server.Pinger, func(), error) {
	closers := make([]func(), 0, 2)
	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, closeFn, fmt.Errorf("wiring: model provider: %w", err)
	}

	gateway, err := llm.New(chatModel)
	if err != nil {
		return nil, nil, closeFn, fmt.Errorf("wiring: llm gateway: %w", err)
	}

	stacEndpoint := getEnvOrDefault("STAC_ENDPOINT", "https://earth-search.aws.element84.com/v1/search")
	reg, err := registry.New(stacEndpoint)
	if err != nil {
		return nil, nil, closeFn, fmt.Errorf("wiring: registry: %w", err)
	}

	httpClient := &http.Client{Timeout: stac.DefaultDeadline}

	cache, err := geocoder.NewCache(
		getEnvInt64("CACHE_CAPACITY_ENTRIES", 500),
		time.Duration(getEnvInt("CACHE_TTL_HOURS", 24))*time.Hour,
	)
	if err != nil {
		return nil, nil, closeFn, fmt.Errorf("wiring: geocoder cache: %w", err)
	}

	geocoderClient := &http.Client{Timeout: geocoderDeadline}
	backends := []geocoder.Backend{geocoder.NewRegionBackend()}
	if endpoint := os.Getenv("GEOCODER_PRIMARY_ENDPOINT"); endpoint != "" {
		backends = append(backends, geocoder.NewHTTPBackend("primary", endpoint, geocoderClient))
	}
	if endpoint := os.Getenv("GEOCODER_SECONDARY_ENDPOINT"); endpoint != "" {
		backends = append(backends, geocoder.NewHTTPBackend("secondary", endpoint, geocoderClient))
	}
	backends = append(backends, geocoder.NewLLMBackend(gateway, geocoderDeadline))
	resolver := geocoder.NewChain(cache, backends...)

	queryBuilder := query.New(reg, resolver)
	stacClient := stac.New(stacEndpoint, httpClient)
	tileSelector := tiles.New(gateway, reg)
	composer := compose.New(gateway)
	store := convo.New()

	intentClassifier := intent.New(gateway)
	collectionAgent := collection.New(gateway, reg)
	locationAgent := location.New(gateway)
	datetimeAgent := datetime.New(gateway)
	cloudAgent := cloudfilter.New(gateway, reg)

	minOverlap, _ := strconv.ParseFloat(os.Getenv("QUERY_MIN_OVERLAP_RATIO"), 64)

	var hist orchestrator.History
	dbPath := os.Getenv("GEOSTAC_HISTORY_DB")
	if dbPath != history.Disabled {
		if dbPath == "" {
			dbPath, err = history.DefaultDBPath()
		}
		if err == nil {
			var hdb *history.Store
			hdb, err = history.Open(dbPath)
			if err == nil {
				hist = hdb
				closers = append(closers, func() { _ = hdb.Close() })
			}
		}
		if err != nil {
			// A missing/unwritable history DB must never block serving
			// queries; the in-memory Conversation Store still works.
			err = nil
			hist = nil
		}
	}

	pipeline := orchestrator.New(
		intentClassifier,
		collectionAgent,
		locationAgent,
		datetimeAgent,
		cloudAgent,
		queryBuilder,
		stacClient,
		tileSelector,
		composer,
		reg,
		store,
		minOverlap,
		hist,
	)

	pingers := buildPingers(chatModel, stacEndpoint, httpClient)

	return pipeline, pingers, closeFn, nil
}

// buildPingers assembles the GET /api/ready dependency probes: the LLM
// backend always, the STAC endpoint always, and Qdrant only when
// QDRANT_HOST is set, since Qdrant is optional infrastructure that not
// every deployment runs.
func buildPingers(chatModel model.ToolCallingChatModel, stacEndpoint string, httpClient *http.Client) []server.Pinger {
	backend := provider.Backend(getEnvOrDefault("MODEL_PROVIDER", string(provider.BackendOllama)))
	providerCfg := &provider.Config{
		Backend: backend,
		Ollama: provider.ProviderOllama{
			Host: getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		},
		OpenAI: provider.ProviderOpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
		},
		AzureOpenAI: provider.ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Bedrock: provider.ProviderBedrock{
			AWSRegion: getEnvOrDefault("AWS_REGION", "us-east-1"),
		},
		Gemini: provider.ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
		},
	}
	hc := provider.NewHealthCheckConfig(backend, providerCfg)

	pingers := []server.Pinger{
		server.NewLLMPinger(chatModel, hc, string(backend)),
		server.NewStacPinger(stacEndpoint, httpClient),
	}

	if host := os.Getenv("QDRANT_HOST"); host != "" {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host: host,
			Port: getEnvInt("QDRANT_PORT", 6334),
		})
		if err == nil {
			pingers = append(pingers, server.NewQdrantPinger(client))
		}
	}

	return pingers
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
