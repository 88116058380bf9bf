package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "conf/saturn_pm.db", cfg.Database.Path)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, "v1", cfg.Orchestrator.PromptVersion)
	assert.Equal(t, 10, cfg.Orchestrator.RecursionLimit)
	assert.Equal(t, 6, cfg.Orchestrator.HistoryWindow)
	assert.Equal(t, 3, cfg.Orchestrator.ToolOutputTail)
	assert.Equal(t, "libsql", cfg.Orchestrator.ThreadStore)
	assert.Equal(t, "openai", cfg.Orchestrator.LLM.API)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Orchestrator.LLM.APIKeyEnv)
	assert.True(t, cfg.Orchestrator.CacheEnabled)
	assert.True(t, cfg.Orchestrator.EnableTracing)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  path: /tmp/custom.db
  seed: false
orchestrator:
  prompt_version: v2
  recursion_limit: 25
  thread_store: memory
  llm:
    model: test-model
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.False(t, cfg.Database.Seed)
	assert.Equal(t, "v2", cfg.Orchestrator.PromptVersion)
	assert.Equal(t, 25, cfg.Orchestrator.RecursionLimit)
	assert.Equal(t, "memory", cfg.Orchestrator.ThreadStore)
	assert.Equal(t, "test-model", cfg.Orchestrator.LLM.Model)
	// Unset keys keep their defaults.
	assert.Equal(t, 6, cfg.Orchestrator.HistoryWindow)
}

func TestLoadConfigRejectsBadRecursionLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("orchestrator:\n  recursion_limit: 0\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
