package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
	"github.com/saturnpm/saturn/saturn/prompt"
	"github.com/saturnpm/saturn/saturn/tools"
)

// Decision is the planner's output: one tool to run (Tool == "" means answer
// directly), its arguments, and a human-readable rationale.
type Decision struct {
	Tool        string
	Args        map[string]any
	Explanation string
}

// Planner produces the next Decision from the latest user text and the
// accumulated thread history.
type Planner interface {
	Plan(ctx context.Context, userText string, messages []Message) (Decision, error)
}

// statusAliases maps lower-cased status phrases onto canonical values, in
// checked order.
var statusAliases = []struct {
	alias     string
	canonical string
}{
	{"not started", "Not Started"},
	{"in progress", "In Progress"},
	{"in review", "In Review"},
	{"blocked", "Blocked"},
	{"done", "Done"},
}

var (
	taskIDPattern       = regexp.MustCompile(`(?i)task\s*(?:id\s*)?(\d+)`)
	quotedProjectRe     = regexp.MustCompile(`(?i)project\s+(?:named\s+)?['"]([^'"]+)['"]`)
	trailingProjectRe   = regexp.MustCompile(`(?i)create\s+(?:a\s+)?project\s+(?:named\s+)?([a-zA-Z0-9 _-]+)`)
	projectNameSplitRe  = regexp.MustCompile(`(?i)\s+(?:with|and)\s+`)
	assigneePattern     = regexp.MustCompile(`(?i)assign\s+(?:the\s+)?first\s+task\s+to\s+([a-zA-Z]+)`)
	projectFilterRe     = regexp.MustCompile(`project\s*(\d+)`)
	assigneeFilterRe    = regexp.MustCompile(`assignee\s*(\d+)`)
)

// ExtractTaskID pulls a task id out of phrases like "task 3" or "task id 3".
func ExtractTaskID(text string) (int, bool) {
	match := taskIDPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExtractStatus finds the first known status phrase in text and returns its
// canonical form. Matching is case-insensitive, so "IN PROGRESS" and
// "In Progress" both map to "In Progress".
func ExtractStatus(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, s := range statusAliases {
		if strings.Contains(lower, s.alias) {
			return s.canonical, true
		}
	}
	return "", false
}

// NormalizeStatus re-normalizes a status value through the alias table,
// defending against near-miss casing from free-form model output. Returns ""
// when the value matches no alias.
func NormalizeStatus(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, s := range statusAliases {
		if s.alias == lower {
			return s.canonical
		}
	}
	return ""
}

// ExtractProjectName resolves a project name from a quoted phrase, a trailing
// "create a project ..." clause, or the default "New Project".
func ExtractProjectName(text string) string {
	if match := quotedProjectRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}

	if match := trailingProjectRe.FindStringSubmatch(text); match != nil {
		candidate := projectNameSplitRe.Split(match[1], 2)[0]
		cleaned := strings.Trim(candidate, " .")
		if cleaned != "" && !strings.HasPrefix(strings.ToLower(cleaned), "and ") {
			return cleaned
		}
	}

	return "New Project"
}

// ExtractAssigneeName pulls a member name from "assign the first task to X".
func ExtractAssigneeName(text string) (string, bool) {
	match := assigneePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

// firstSearchHitID parses a search_team_members payload and returns the id of
// the first hit.
func firstSearchHitID(payload string) (int, bool) {
	var hits []struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &hits); err != nil || len(hits) == 0 {
		return 0, false
	}
	return hits[0].ID, true
}

// FallbackPlanner is the deterministic heuristic used when the oracle LLM is
// unavailable or returns unusable output. It is a pure function of the user
// text and history: no external calls, same input same output.
type FallbackPlanner struct{}

func NewFallbackPlanner() *FallbackPlanner { return &FallbackPlanner{} }

func (p *FallbackPlanner) Plan(_ context.Context, userText string, messages []Message) (Decision, error) {
	lower := strings.ToLower(userText)
	recentProjects, hasProjects := LatestToolPayload(messages, "get_projects")
	recentTasks, hasTasks := LatestToolPayload(messages, "get_tasks")
	recentMembers, hasMembers := LatestToolPayload(messages, "search_team_members")

	containsAny := func(phrases ...string) bool {
		for _, phrase := range phrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
		return false
	}

	// Termination step for multi-turn read loops: if a relevant observation
	// already exists, answer from it instead of repeating the same query.
	if hasProjects && containsAny("list projects", "show projects", "all projects") {
		return Decision{Explanation: fmt.Sprintf("Read result from get_projects: %s", recentProjects)}, nil
	}
	if hasTasks && strings.Contains(lower, "task") && containsAny("show", "list", "what are") {
		return Decision{Explanation: fmt.Sprintf("Read result from get_tasks: %s", recentTasks)}, nil
	}
	if hasMembers && strings.Contains(lower, "sarah") && strings.Contains(lower, "id") {
		return Decision{Explanation: fmt.Sprintf("Read result from search_team_members: %s", recentMembers)}, nil
	}

	if containsAny("list projects", "show projects", "all projects") {
		return Decision{
			Tool:        "get_projects",
			Args:        map[string]any{},
			Explanation: "I should fetch the current project list.",
		}, nil
	}

	if strings.Contains(lower, "task") && containsAny("show", "list", "what are") {
		filters := map[string]any{}
		if match := projectFilterRe.FindStringSubmatch(lower); match != nil {
			if id, err := strconv.Atoi(match[1]); err == nil {
				filters["project_id"] = id
			}
		}
		if match := assigneeFilterRe.FindStringSubmatch(lower); match != nil {
			if id, err := strconv.Atoi(match[1]); err == nil {
				filters["assignee_id"] = id
			}
		}
		return Decision{
			Tool:        "get_tasks",
			Args:        filters,
			Explanation: "I should read tasks with the requested filters.",
		}, nil
	}

	if strings.Contains(lower, "update") && strings.Contains(lower, "task") {
		taskID, okID := ExtractTaskID(userText)
		status, okStatus := ExtractStatus(userText)
		if !okID || !okStatus {
			return Decision{
				Args:        map[string]any{},
				Explanation: "Please provide task id and one status: Not Started, In Progress, In Review, Blocked, or Done.",
			}, nil
		}
		return Decision{
			Tool:        "update_task_status",
			Args:        map[string]any{"task_id": taskID, "status": status},
			Explanation: fmt.Sprintf("I want to update task %d to '%s' and need your approval.", taskID, status),
		}, nil
	}

	if strings.Contains(lower, "create") && strings.Contains(lower, "project") {
		var assigneeID any
		if assigneeName, ok := ExtractAssigneeName(userText); ok {
			payload, found := LatestToolPayload(messages, "search_team_members")
			if !found {
				return Decision{
					Tool:        "search_team_members",
					Args:        map[string]any{"query": assigneeName},
					Explanation: fmt.Sprintf("I should find %s's team member id first.", assigneeName),
				}, nil
			}
			id, ok := firstSearchHitID(payload)
			if !ok {
				return Decision{
					Args:        map[string]any{},
					Explanation: fmt.Sprintf("I could not find '%s'. Please provide an assignee id.", assigneeName),
				}, nil
			}
			assigneeID = id
		}

		projectName := ExtractProjectName(userText)
		task := map[string]any{"title": "Initial setup task", "status": "Not Started"}
		ownerID := 1
		if assigneeID != nil {
			task["assignee_id"] = assigneeID
			ownerID = assigneeID.(int)
		}
		return Decision{
			Tool: "create_project_with_tasks",
			Args: map[string]any{
				"name":     projectName,
				"owner_id": ownerID,
				"tasks":    []any{task},
			},
			Explanation: fmt.Sprintf("I want to create project '%s' and need your approval before writing.", projectName),
		}, nil
	}

	if strings.Contains(lower, "sarah") && strings.Contains(lower, "id") {
		return Decision{
			Tool:        "search_team_members",
			Args:        map[string]any{"query": "Sarah"},
			Explanation: "I should search the team members by name.",
		}, nil
	}

	return Decision{
		Args:        map[string]any{},
		Explanation: "I can help with project/task reads, updates, and project creation workflows.",
	}, nil
}

// OracleConfig holds the oracle planner's tunables.
type OracleConfig struct {
	PromptVersion   string
	Model           string
	Temperature     float32
	HistoryWindow   int
	ToolOutputTail  int
	CacheTTLSeconds int
}

// OraclePlanner renders the versioned oracle prompt and asks the provider
// for a strict-JSON decision. It fails loudly on transport or parse errors;
// the plan node catches the failure and falls back to the heuristic.
type OraclePlanner struct {
	provider ports.Provider
	prompts  *prompt.Store
	registry *tools.Registry
	cache    ports.Cache
	limiter  ports.RateLimiter
	cfg      OracleConfig
	logger   zerolog.Logger
}

func NewOraclePlanner(
	provider ports.Provider,
	prompts *prompt.Store,
	registry *tools.Registry,
	cache ports.Cache,
	limiter ports.RateLimiter,
	cfg OracleConfig,
	logger zerolog.Logger,
) *OraclePlanner {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}
	if cfg.ToolOutputTail <= 0 {
		cfg.ToolOutputTail = 3
	}
	return &OraclePlanner{
		provider: provider,
		prompts:  prompts,
		registry: registry,
		cache:    cache,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

func (p *OraclePlanner) Plan(ctx context.Context, userText string, messages []Message) (Decision, error) {
	fullPrompt, err := p.renderPrompt(userText, messages)
	if err != nil {
		return Decision{}, err
	}

	cacheKey := fmt.Sprintf("oracle:%s:%s", p.cfg.Model, hashString(fullPrompt))
	if cached, ok := p.cache.Get(ctx, cacheKey); ok {
		if decision, ok := decodeDecision(string(cached)); ok {
			p.logger.Debug().Str("tool", decision.Tool).Msg("Oracle decision served from cache")
			return decision, nil
		}
	}

	release, err := p.limiter.Acquire(ctx, "oracle")
	if err != nil {
		return Decision{}, fmt.Errorf("oracle call rejected: %w", err)
	}
	defer release()

	raw, err := p.provider.Complete(ctx, fullPrompt, ports.Options{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("oracle call failed: %w", err)
	}

	decision, ok := decodeDecision(raw)
	if !ok {
		p.logger.Warn().Str("raw_preview", preview(raw, 240)).Msg("Oracle response was not valid strict JSON")
		return Decision{}, fmt.Errorf("oracle returned non-JSON content: %s", preview(raw, 240))
	}

	_ = p.cache.Set(ctx, cacheKey, []byte(raw), p.cfg.CacheTTLSeconds)
	p.logger.Info().Str("tool", decision.Tool).Msg("Oracle planning completed")
	return decision, nil
}

// renderPrompt substitutes the tool manual, a bounded history transcript, the
// user text, and recent tool outputs into the versioned template.
func (p *OraclePlanner) renderPrompt(userText string, messages []Message) (string, error) {
	template, err := p.prompts.Oracle(p.cfg.PromptVersion)
	if err != nil {
		return "", fmt.Errorf("failed to load oracle prompt: %w", err)
	}

	window := messages
	if len(window) > p.cfg.HistoryWindow {
		window = window[len(window)-p.cfg.HistoryWindow:]
	}

	var historyLines []string
	var toolOutputs []string
	for _, m := range window {
		role := NormalizeRole(m.Role)
		switch role {
		case "user", "assistant", "tool":
			historyLines = append(historyLines, fmt.Sprintf("%s: %s", role, m.Content))
			if role == "tool" {
				toolOutputs = append(toolOutputs, m.Content)
			}
		}
	}

	historyText := "(no prior messages)"
	if len(historyLines) > 0 {
		historyText = strings.Join(historyLines, "\n")
	}

	observations := "(none)"
	if len(toolOutputs) > 0 {
		if len(toolOutputs) > p.cfg.ToolOutputTail {
			toolOutputs = toolOutputs[len(toolOutputs)-p.cfg.ToolOutputTail:]
		}
		observations = strings.Join(toolOutputs, "\n")
	}

	return strings.NewReplacer(
		"{tools_manual}", p.registry.Manual(),
		"{conversation_history}", historyText,
		"{user_input}", userText,
		"{recent_tool_outputs}", observations,
	).Replace(template), nil
}

// decodeDecision strips Markdown code fences and parses exactly one JSON
// object with tool/args/explanation keys.
func decodeDecision(raw string) (Decision, bool) {
	candidate := strings.TrimSpace(raw)
	candidate = strings.TrimPrefix(candidate, "```json")
	candidate = strings.TrimPrefix(candidate, "```")
	candidate = strings.TrimSuffix(candidate, "```")
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return Decision{}, false
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return Decision{}, false
	}

	decision := Decision{Args: map[string]any{}}
	if tool, ok := parsed["tool"].(string); ok && !strings.EqualFold(tool, "none") {
		decision.Tool = tool
	}
	if args, ok := parsed["args"].(map[string]any); ok {
		decision.Args = args
	}
	if explanation, ok := parsed["explanation"].(string); ok {
		decision.Explanation = strings.TrimSpace(explanation)
	}
	if decision.Explanation == "" {
		decision.Explanation = "No explanation provided by oracle."
	}
	return decision, true
}

// hashString is a djb2 hash for short deterministic cache keys.
func hashString(s string) string {
	hash := uint32(5381)
	for _, r := range s {
		hash = ((hash << 5) + hash) + uint32(r)
	}
	return fmt.Sprintf("%x", hash)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	_ Planner = (*FallbackPlanner)(nil)
	_ Planner = (*OraclePlanner)(nil)
)
