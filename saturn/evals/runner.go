package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/saturnpm/saturn/saturn/orchestrator"
)

var writeToolNames = map[string]bool{
	"update_task_status":        true,
	"create_project_with_tasks": true,
}

// Row is the graded outcome of one golden case.
type Row struct {
	CaseID            int            `json:"case_id"`
	Input             string         `json:"input"`
	ExpectedIntent    string         `json:"expected_intent"`
	ExpectedTool      *string        `json:"expected_tool"`
	PredictedIntent   string         `json:"predicted_intent"`
	PredictedTool     string         `json:"predicted_tool"`
	ExpectedEntities  map[string]any `json:"expected_entities"`
	ExtractedEntities map[string]any `json:"extracted_entities"`
	RoutingPass       bool           `json:"routing_pass"`
	ExtractionPass    bool           `json:"extraction_pass"`
	SafetyPass        bool           `json:"safety_pass"`
	Passed            bool           `json:"passed"`
	Err               string         `json:"error,omitempty"`
}

// Summary aggregates per-dimension accuracy across all cases.
type Summary struct {
	TimestampUTC       string  `json:"timestamp_utc"`
	TotalCases         int     `json:"total_cases"`
	RoutingAccuracy    float64 `json:"routing_accuracy"`
	ExtractionAccuracy float64 `json:"extraction_accuracy"`
	SafetyCompliance   float64 `json:"safety_compliance"`
	ReliabilityScore   float64 `json:"reliability_score"`
}

// Report is the full evaluation output.
type Report struct {
	Summary Summary `json:"summary"`
	Rows    []Row   `json:"rows"`
	Table   string  `json:"table"`
}

// Runner evaluates golden samples against an orchestrator runtime. Cases run
// concurrently, each on its own throwaway thread id, so they cannot interfere.
type Runner struct {
	runtime *orchestrator.Runtime
	logger  zerolog.Logger
	workers int
}

func NewRunner(runtime *orchestrator.Runtime, logger zerolog.Logger, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{runtime: runtime, logger: logger, workers: workers}
}

// Evaluate runs every sample for one turn and grades routing, extraction,
// and write safety.
func (r *Runner) Evaluate(ctx context.Context, samples []Sample) (*Report, error) {
	rows := make([]Row, len(samples))

	p := pool.New().WithMaxGoroutines(r.workers)
	for i, sample := range samples {
		p.Go(func() {
			rows[i] = r.runCase(ctx, i+1, sample)
		})
	}
	p.Wait()

	var routingHits, extractionHits, safetyHits, passed int
	for _, row := range rows {
		if row.RoutingPass {
			routingHits++
		}
		if row.ExtractionPass {
			extractionHits++
		}
		if row.SafetyPass {
			safetyHits++
		}
		if row.Passed {
			passed++
		}
	}

	total := len(rows)
	pct := func(hits int) float64 {
		if total == 0 {
			return 0
		}
		return float64(hits) / float64(total) * 100.0
	}

	summary := Summary{
		TimestampUTC:       time.Now().UTC().Format(time.RFC3339),
		TotalCases:         total,
		RoutingAccuracy:    pct(routingHits),
		ExtractionAccuracy: pct(extractionHits),
		SafetyCompliance:   pct(safetyHits),
		ReliabilityScore:   pct(passed),
	}
	r.logger.Info().
		Int("total_cases", summary.TotalCases).
		Float64("routing_accuracy", summary.RoutingAccuracy).
		Float64("extraction_accuracy", summary.ExtractionAccuracy).
		Float64("safety_compliance", summary.SafetyCompliance).
		Float64("reliability_score", summary.ReliabilityScore).
		Msg("Evaluation summary")

	return &Report{Summary: summary, Rows: rows, Table: renderTable(rows)}, nil
}

func (r *Runner) runCase(ctx context.Context, caseID int, sample Sample) Row {
	row := Row{
		CaseID:           caseID,
		Input:            sample.Input,
		ExpectedIntent:   sample.ExpectedIntent,
		ExpectedTool:     sample.ExpectedTool,
		ExpectedEntities: sample.ExpectedEntities,
	}

	threadID := "eval-" + uuid.NewString()
	state, err := r.runtime.RunTurn(ctx, threadID, sample.Input)
	if err != nil {
		row.Err = err.Error()
		return row
	}

	row.PredictedIntent, row.PredictedTool = predictIntentAndTool(state)
	row.ExtractedEntities = extractEntities(state, row.PredictedIntent, row.PredictedTool)

	row.RoutingPass = row.PredictedIntent == sample.ExpectedIntent &&
		row.PredictedTool == derefTool(sample.ExpectedTool)
	row.ExtractionPass = entitiesMatch(sample.ExpectedEntities, row.ExtractedEntities)
	row.SafetyPass = checkSafety(state, sample.ExpectedIntent)
	row.Passed = row.RoutingPass && row.ExtractionPass && row.SafetyPass
	return row
}

// predictIntentAndTool infers the assistant's behavior from the final state:
// a staged write, a completed read, or a direct answer.
func predictIntentAndTool(state *orchestrator.State) (string, string) {
	if state.NextAction != nil {
		return "write", state.NextAction.Name
	}

	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == "tool" {
			return "read", state.Messages[i].Name
		}
	}

	return "clarification", ""
}

// extractEntities pulls comparable entity fields from the outcome: staged
// write args for writes, payload-derived fields for reads.
func extractEntities(state *orchestrator.State, intent, tool string) map[string]any {
	if intent == "write" {
		if state.NextAction == nil {
			return map[string]any{}
		}
		return state.NextAction.Args
	}
	if intent != "read" || tool == "" {
		return map[string]any{}
	}

	payload, ok := orchestrator.LatestToolPayload(state.Messages, tool)
	if !ok {
		return map[string]any{}
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(payload), &items); err != nil || len(items) == 0 {
		return map[string]any{}
	}

	switch tool {
	case "search_team_members":
		return map[string]any{"id": items[0]["id"], "name": items[0]["name"]}
	case "get_tasks":
		entities := map[string]any{}
		if v, ok := uniqueField(items, "project_id"); ok {
			entities["project_id"] = v
		}
		if v, ok := uniqueField(items, "assignee_id"); ok {
			entities["assignee_id"] = v
		}
		return entities
	}
	return map[string]any{}
}

// uniqueField returns the single non-nil value all items share for key.
func uniqueField(items []map[string]any, key string) (any, bool) {
	var value any
	for _, item := range items {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if value == nil {
			value = v
			continue
		}
		if fmt.Sprint(value) != fmt.Sprint(v) {
			return nil, false
		}
	}
	return value, value != nil
}

// checkSafety verifies that a write-intent case staged its action without
// executing any write tool.
func checkSafety(state *orchestrator.State, expectedIntent string) bool {
	if expectedIntent != "write" {
		return true
	}
	if state.NextAction == nil {
		return false
	}
	for _, m := range state.Messages {
		if m.Role == "tool" && writeToolNames[m.Name] {
			return false
		}
	}
	return true
}

// entitiesMatch compares expected entity values against extracted ones,
// tolerating the int/float64 split JSON decoding introduces.
func entitiesMatch(expected, extracted map[string]any) bool {
	for key, want := range expected {
		got, ok := extracted[key]
		if !ok || fmt.Sprint(normalizeNumber(got)) != fmt.Sprint(normalizeNumber(want)) {
			return false
		}
	}
	return true
}

func normalizeNumber(v any) any {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return v
	}
}

func derefTool(t *string) string {
	if t == nil {
		return ""
	}
	return *t
}

// renderTable builds a fixed-width summary table for terminal output.
func renderTable(rows []Row) string {
	headers := []string{"Case", "Expected", "Predicted", "Tool", "Routing", "Extraction", "Safety", "Pass"}
	widths := []int{4, 13, 13, 25, 8, 10, 6, 6}

	formatRow := func(values []string) string {
		cells := make([]string, len(values))
		for i, v := range values {
			if len(v) > widths[i] {
				v = v[:widths[i]]
			}
			cells[i] = fmt.Sprintf("%-*s", widths[i], v)
		}
		return strings.Join(cells, " | ")
	}

	passFail := func(ok bool) string {
		if ok {
			return "PASS"
		}
		return "FAIL"
	}

	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}

	lines := []string{formatRow(headers), strings.Join(separators, "-+-")}
	for _, row := range rows {
		lines = append(lines, formatRow([]string{
			fmt.Sprint(row.CaseID),
			row.ExpectedIntent,
			row.PredictedIntent,
			row.PredictedTool,
			passFail(row.RoutingPass),
			passFail(row.ExtractionPass),
			passFail(row.SafetyPass),
			passFail(row.Passed),
		}))
	}
	return strings.Join(lines, "\n")
}
