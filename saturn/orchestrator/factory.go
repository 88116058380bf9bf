package orchestrator

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/saturnpm/saturn/saturn/config"
	"github.com/saturnpm/saturn/saturn/orchestrator/adapters"
	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
	"github.com/saturnpm/saturn/saturn/prompt"
	"github.com/saturnpm/saturn/saturn/tools"
)

// NewRuntimeFromConfig assembles the full runtime: prompt store, optional
// oracle planner, tracer, thread store, and engine. Adapters degrade to noop
// implementations when their feature is disabled, so callers never branch on
// configuration. The returned closer releases prompt watchers.
func NewRuntimeFromConfig(cfg *config.Config, db *sql.DB, registry *tools.Registry, logger zerolog.Logger) (*Runtime, func() error, error) {
	orch := cfg.Orchestrator

	prompts, err := prompt.NewStore(orch.PromptDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize prompt store: %w", err)
	}

	var tracer ports.Tracer = adapters.NoopTracer{}
	if orch.EnableTracing {
		tracer = adapters.NewZerologTracer(logger)
	}

	opts := []EngineOption{
		WithTracer(tracer),
		WithMaxSteps(orch.RecursionLimit),
	}

	if oracle := buildOracle(orch, prompts, registry, logger); oracle != nil {
		opts = append(opts, WithOracle(oracle))
	}

	engine := NewEngine(registry, logger, opts...)

	var threadStore ports.ThreadStore
	switch orch.ThreadStore {
	case "memory":
		threadStore = adapters.NewMemoryThreadStore()
	case "", "libsql":
		threadStore = adapters.NewLibSQLThreadStore(db)
	default:
		prompts.Close()
		return nil, nil, fmt.Errorf("unknown thread store %q", orch.ThreadStore)
	}

	return NewRuntime(engine, threadStore, logger), prompts.Close, nil
}

// buildOracle wires the LLM planner, or returns nil when no API key is
// present so the engine plans deterministically.
func buildOracle(orch config.OrchestratorConfig, prompts *prompt.Store, registry *tools.Registry, logger zerolog.Logger) Planner {
	apiKey := os.Getenv(orch.LLM.APIKeyEnv)
	if apiKey == "" {
		logger.Info().Str("env", orch.LLM.APIKeyEnv).Msg("No oracle API key set, using fallback planner only")
		return nil
	}

	timeout := time.Duration(orch.LLM.TimeoutSecs) * time.Second
	provider := adapters.NewOpenAIProvider(orch.LLM.Base, apiKey, timeout)

	var cache ports.Cache = adapters.NoopCache{}
	if orch.CacheEnabled {
		cache = adapters.NewLRUCache(orch.CacheCapacity)
	}

	var limiter ports.RateLimiter = adapters.NoopRateLimiter{}
	if orch.RateLimitEnabled {
		limiter = adapters.NewTokenBucket(orch.RateLimitCapacity, orch.RateLimitRefillRate)
	}

	return NewOraclePlanner(provider, prompts, registry, cache, limiter, OracleConfig{
		PromptVersion:   orch.PromptVersion,
		Model:           orch.LLM.Model,
		Temperature:     orch.LLM.Temperature,
		HistoryWindow:   orch.HistoryWindow,
		ToolOutputTail:  orch.ToolOutputTail,
		CacheTTLSeconds: orch.CacheTTLSeconds,
	}, logger)
}
