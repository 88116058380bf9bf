package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnpm/saturn/saturn/orchestrator/adapters"
	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
	"github.com/saturnpm/saturn/saturn/prompt"
	"github.com/saturnpm/saturn/saturn/tools"
)

type stubProvider struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (p *stubProvider) Complete(_ context.Context, promptText string, _ ports.Options) (string, error) {
	p.calls++
	p.prompts = append(p.prompts, promptText)
	return p.response, p.err
}

func newOracle(t *testing.T, provider ports.Provider, cache ports.Cache) *OraclePlanner {
	t.Helper()
	prompts, err := prompt.NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { prompts.Close() })

	registry := tools.NewRegistry(&stubTool{name: "get_projects", mode: tools.ModeRead, result: "[]"})
	return NewOraclePlanner(provider, prompts, registry, cache, adapters.NoopRateLimiter{}, OracleConfig{
		PromptVersion: "v1",
		Model:         "test-model",
	}, zerolog.Nop())
}

func TestOraclePlannerParsesDecision(t *testing.T) {
	provider := &stubProvider{response: "```json\n{\"tool\": \"get_projects\", \"args\": {}, \"explanation\": \"listing\"}\n```"}
	oracle := newOracle(t, provider, adapters.NoopCache{})

	d, err := oracle.Plan(context.Background(), "list projects", []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "tool", Name: "get_tasks", Content: "[]"},
	})
	require.NoError(t, err)
	assert.Equal(t, "get_projects", d.Tool)
	assert.Equal(t, "listing", d.Explanation)

	// The rendered prompt carries the manual, history, and user input.
	require.Len(t, provider.prompts, 1)
	rendered := provider.prompts[0]
	assert.Contains(t, rendered, "Available tools:")
	assert.Contains(t, rendered, "user: earlier question")
	assert.Contains(t, rendered, "list projects")
	assert.NotContains(t, rendered, "{tools_manual}")
	assert.NotContains(t, rendered, "{user_input}")
}

func TestOraclePlannerRejectsProseOutput(t *testing.T) {
	oracle := newOracle(t, &stubProvider{response: "Sure, I would call get_projects for you!"}, adapters.NoopCache{})

	_, err := oracle.Plan(context.Background(), "list projects", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-JSON")
}

func TestOraclePlannerPropagatesTransportError(t *testing.T) {
	oracle := newOracle(t, &stubProvider{err: fmt.Errorf("connection refused")}, adapters.NoopCache{})

	_, err := oracle.Plan(context.Background(), "list projects", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle call failed")
}

func TestOraclePlannerCachesDecisions(t *testing.T) {
	provider := &stubProvider{response: `{"tool": "get_projects", "args": {}, "explanation": "listing"}`}
	oracle := newOracle(t, provider, adapters.NewLRUCache(8))
	ctx := context.Background()

	_, err := oracle.Plan(ctx, "list projects", nil)
	require.NoError(t, err)
	_, err = oracle.Plan(ctx, "list projects", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}
