package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Path to the embedded libsql database file
	Seed bool   `mapstructure:"seed"` // Insert mock PM data on startup when tables are empty
}

// LLMConfig stores oracle language-model transport settings.
type LLMConfig struct {
	API         string  `mapstructure:"api"`         // "openai" (any OpenAI-compatible endpoint)
	Base        string  `mapstructure:"base"`        // Base URL of the completions API
	Model       string  `mapstructure:"model"`       // Model identifier
	Temperature float32 `mapstructure:"temperature"` // Sampling temperature
	APIKeyEnv   string  `mapstructure:"api_key_env"` // Env var holding the API key
	TimeoutSecs int     `mapstructure:"timeout_secs"`
}

// OrchestratorConfig stores turn-loop and planner settings.
type OrchestratorConfig struct {
	PromptVersion  string `mapstructure:"prompt_version"` // Oracle prompt template version
	PromptDir      string `mapstructure:"prompt_dir"`     // On-disk template override directory ("" = embedded)
	RecursionLimit int    `mapstructure:"recursion_limit"`
	HistoryWindow  int    `mapstructure:"history_window"`     // Messages shown to the oracle
	ToolOutputTail int    `mapstructure:"tool_output_tail"`   // Recent tool outputs shown to the oracle
	ThreadStore    string `mapstructure:"thread_store"`       // "libsql" | "memory"

	LLM LLMConfig `mapstructure:"llm"`

	// Planner decision cache
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheCapacity   int  `mapstructure:"cache_capacity"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`

	// Provider rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"`

	EnableTracing bool `mapstructure:"enable_tracing"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("conf")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("database.path", "conf/saturn_pm.db")
	viper.SetDefault("database.seed", true)

	viper.SetDefault("orchestrator.prompt_version", "v1")
	viper.SetDefault("orchestrator.prompt_dir", "")
	viper.SetDefault("orchestrator.recursion_limit", 10)
	viper.SetDefault("orchestrator.history_window", 6)
	viper.SetDefault("orchestrator.tool_output_tail", 3)
	viper.SetDefault("orchestrator.thread_store", "libsql")

	viper.SetDefault("orchestrator.llm.api", "openai")
	viper.SetDefault("orchestrator.llm.base", "https://api.openai.com/v1")
	viper.SetDefault("orchestrator.llm.model", "gpt-5-mini")
	viper.SetDefault("orchestrator.llm.temperature", 0.0)
	viper.SetDefault("orchestrator.llm.api_key_env", "OPENAI_API_KEY")
	viper.SetDefault("orchestrator.llm.timeout_secs", 60)

	viper.SetDefault("orchestrator.cache_enabled", true)
	viper.SetDefault("orchestrator.cache_capacity", 256)
	viper.SetDefault("orchestrator.cache_ttl_seconds", 300)

	viper.SetDefault("orchestrator.rate_limit_enabled", false)
	viper.SetDefault("orchestrator.rate_limit_capacity", 10)
	viper.SetDefault("orchestrator.rate_limit_refill_rate", time.Second)

	viper.SetDefault("orchestrator.enable_tracing", true)

	viper.SetEnvPrefix("SATURN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Orchestrator.RecursionLimit < 1 {
		return nil, fmt.Errorf("orchestrator.recursion_limit must be at least 1: %d", cfg.Orchestrator.RecursionLimit)
	}

	return &cfg, nil
}
