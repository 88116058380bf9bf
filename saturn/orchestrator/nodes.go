package orchestrator

import (
	"context"
	"fmt"
	"strings"
)

// assistantMsg builds an assistant-role message.
func assistantMsg(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// clearLastTool zeroes the last-tool bookkeeping fields on a patch.
func clearLastTool(p *Patch) {
	p.SetLastTool = true
	p.LastToolName = ""
	p.LastToolMode = ""
	p.LastToolResult = ""
}

// planNode chooses the next action: a read to run immediately (PlannedTool),
// a write staged for approval (NextAction), or a direct assistant answer.
// Deterministic parsing handles the write paths before the oracle is ever
// consulted, so the safety gate does not depend on model behavior.
func (e *Engine) planNode(ctx context.Context, state *State) Patch {
	ctx, end := e.tracer.StartSpan(ctx, "orchestrator.plan", map[string]any{"messages": len(state.Messages)})
	defer end(nil)

	userText := LastUserText(state.Messages)
	lower := strings.ToLower(userText)

	// A staged write is waiting on a yes/no reply. Leave it alone and let
	// routing hand the turn to the approval node.
	if state.NextAction != nil {
		return Patch{
			Explanation:    "Pending write action requires approval handling.",
			SetExplanation: true,
			PlannedTool:    nil,
			SetPlannedTool: true,
		}
	}

	if userText == "" {
		p := Patch{
			Messages:       []Message{assistantMsg("Please share a request so I can help.")},
			Explanation:    "No user message was available.",
			SetExplanation: true,
			SetPlannedTool: true,
			SetNextAction:  true,
		}
		clearLastTool(&p)
		return p
	}

	if strings.Contains(lower, "update") && strings.Contains(lower, "task") {
		taskID, okID := ExtractTaskID(userText)
		status, okStatus := ExtractStatus(userText)
		if okID && okStatus {
			explanation := fmt.Sprintf("I will update task %d to '%s'. This requires your approval.", taskID, status)
			p := Patch{
				Messages:       []Message{assistantMsg(explanation + " Approve this write action? Reply yes or no.")},
				Explanation:    explanation,
				SetExplanation: true,
				SetPlannedTool: true,
				NextAction: &ToolRequest{
					Name: "update_task_status",
					Args: map[string]any{"task_id": taskID, "status": status},
				},
				SetNextAction: true,
			}
			clearLastTool(&p)
			return p
		}
	}

	// Multi-step create flow: resolve the assignee id via a read first, then
	// stage the write on a later turn.
	if strings.Contains(lower, "create") && strings.Contains(lower, "project") &&
		strings.Contains(lower, "assign") && strings.Contains(lower, "first task") {
		if assigneeName, ok := ExtractAssigneeName(userText); ok {
			payload, found := LatestToolPayload(state.Messages, "search_team_members")
			if !found {
				p := Patch{
					Explanation:    fmt.Sprintf("I need %s's team member id before creating the project.", assigneeName),
					SetExplanation: true,
					PlannedTool: &ToolRequest{
						Name: "search_team_members",
						Args: map[string]any{"query": assigneeName},
					},
					SetPlannedTool: true,
					SetNextAction:  true,
				}
				clearLastTool(&p)
				return p
			}

			// The read just ran inside this turn. Close the turn instead of
			// proposing a write in the same breath.
			if state.LastToolMode == "read" {
				p := Patch{
					Messages:       []Message{assistantMsg("I found the assignee id. Repeat the request to proceed with the write action.")},
					Explanation:    "I found the assignee id from team data. I can now prepare the project creation step.",
					SetExplanation: true,
					SetPlannedTool: true,
					SetNextAction:  true,
				}
				clearLastTool(&p)
				return p
			}

			if assigneeID, ok := firstSearchHitID(payload); ok {
				projectName := ExtractProjectName(userText)
				explanation := fmt.Sprintf(
					"I will create project '%s' and assign the first task to member id %d. This requires your approval.",
					projectName, assigneeID,
				)
				p := Patch{
					Messages:       []Message{assistantMsg(explanation + " Approve this write action? Reply yes or no.")},
					Explanation:    explanation,
					SetExplanation: true,
					SetPlannedTool: true,
					NextAction: &ToolRequest{
						Name: "create_project_with_tasks",
						Args: map[string]any{
							"name":     projectName,
							"owner_id": assigneeID,
							"tasks": []any{map[string]any{
								"title":       "Initial setup task",
								"status":      "Not Started",
								"assignee_id": assigneeID,
							}},
						},
					},
					SetNextAction: true,
				}
				clearLastTool(&p)
				return p
			}
		}
	}

	decision := e.decide(ctx, userText, state.Messages)

	toolName := decision.Tool
	args := decision.Args
	if args == nil {
		args = map[string]any{}
	}
	explanation := strings.TrimSpace(decision.Explanation)
	if explanation == "" {
		explanation = "No explanation provided."
	}

	// Free-form model output may carry near-miss status casing; renormalize
	// before the value reaches the tool.
	if toolName == "update_task_status" {
		if raw, ok := args["status"].(string); ok && strings.TrimSpace(raw) != "" {
			if normalized := NormalizeStatus(raw); normalized != "" {
				args["status"] = normalized
			}
		}
	}

	if toolName == "" {
		if state.LastToolMode == "read" && state.LastToolName != "" && state.LastToolResult != "" {
			explanation = fmt.Sprintf("Read result from %s: %s", state.LastToolName, state.LastToolResult)
		}
		p := Patch{
			Messages:       []Message{assistantMsg(explanation)},
			Explanation:    explanation,
			SetExplanation: true,
			SetPlannedTool: true,
			SetNextAction:  true,
		}
		clearLastTool(&p)
		return p
	}

	if e.registry.IsWrite(toolName) {
		if !strings.Contains(strings.ToLower(explanation), "approval") {
			explanation = explanation + " This requires your approval."
		}
		p := Patch{
			Messages:       []Message{assistantMsg(explanation + " Approve this write action? Reply yes or no.")},
			Explanation:    explanation,
			SetExplanation: true,
			SetPlannedTool: true,
			NextAction:     &ToolRequest{Name: toolName, Args: args},
			SetNextAction:  true,
		}
		clearLastTool(&p)
		return p
	}

	if e.registry.IsRead(toolName) {
		p := Patch{
			Explanation:    explanation,
			SetExplanation: true,
			PlannedTool:    &ToolRequest{Name: toolName, Args: args},
			SetPlannedTool: true,
			SetNextAction:  true,
		}
		clearLastTool(&p)
		return p
	}

	p := Patch{
		Messages:       []Message{assistantMsg(fmt.Sprintf("I could not find tool '%s'. Please rephrase your request.", toolName))},
		Explanation:    fmt.Sprintf("Tool '%s' is not available.", toolName),
		SetExplanation: true,
		SetPlannedTool: true,
		SetNextAction:  true,
	}
	clearLastTool(&p)
	return p
}

// decide asks the oracle for a plan and falls back to the deterministic
// heuristic when the oracle is unconfigured or fails.
func (e *Engine) decide(ctx context.Context, userText string, messages []Message) Decision {
	if e.oracle != nil {
		decision, err := e.oracle.Plan(ctx, userText, messages)
		if err == nil {
			e.logger.Info().Str("tool", decision.Tool).Str("explanation", decision.Explanation).Msg("Oracle decision")
			return decision
		}
		e.logger.Warn().Err(err).Msg("Oracle unavailable, using fallback planner")
	}
	decision, _ := e.fallback.Plan(ctx, userText, messages)
	return decision
}

// executeToolNode runs whichever action is staged: an immediate read
// (PlannedTool) or an approved write (NextAction). Either way PlannedTool is
// consumed and the outcome lands in the message list and the last-tool fields.
func (e *Engine) executeToolNode(ctx context.Context, state *State) Patch {
	action := state.PlannedTool
	if action == nil {
		action = state.NextAction
	}
	if action == nil {
		p := Patch{PlannedTool: nil, SetPlannedTool: true}
		clearLastTool(&p)
		return p
	}

	ctx, end := e.tracer.StartSpan(ctx, "orchestrator.execute_tool", map[string]any{"tool": action.Name})
	defer end(nil)

	result, mode, ok := e.registry.Execute(ctx, action.Name, action.Args)
	if !ok {
		e.logger.Error().Str("tool", action.Name).Msg("Unknown tool requested")
		p := Patch{
			Messages:       []Message{assistantMsg(fmt.Sprintf("Tool '%s' is not available.", action.Name))},
			SetPlannedTool: true,
		}
		clearLastTool(&p)
		return p
	}

	toolMessage := Message{
		Role:       "tool",
		Name:       action.Name,
		Content:    result,
		ToolCallID: fmt.Sprintf("%s_%s_call", action.Name, mode),
	}

	p := Patch{
		Messages:       []Message{toolMessage},
		SetPlannedTool: true,
		SetLastTool:    true,
		LastToolName:   action.Name,
		LastToolMode:   string(mode),
		LastToolResult: result,
	}
	if mode != "read" {
		p.Messages = append(p.Messages, assistantMsg(fmt.Sprintf("Write operation completed from %s: %s", action.Name, result)))
	}
	return p
}

// humanApprovalNode interprets the user's reply to a pending write. Only a
// recognized "yes" stages the write for execution; "no" cancels it; anything
// else re-prompts and keeps the pending action intact.
func (e *Engine) humanApprovalNode(ctx context.Context, state *State) Patch {
	_, end := e.tracer.StartSpan(ctx, "orchestrator.human_approval", nil)
	defer end(nil)

	action := state.NextAction
	if action == nil {
		return Patch{
			Messages:      []Message{assistantMsg("No pending write action exists.")},
			SetNextAction: true,
		}
	}

	switch ClassifyYesNo(LastUserText(state.Messages)) {
	case ApprovalUnknown:
		return Patch{
			Messages: []Message{assistantMsg("Please reply with yes or no to approve or cancel the pending write operation.")},
		}
	case ApprovalNo:
		return Patch{
			Messages:       []Message{assistantMsg("Understood. I canceled that write operation.")},
			SetNextAction:  true,
			SetPlannedTool: true,
			Explanation:    "User denied write request.",
			SetExplanation: true,
		}
	}

	if !e.registry.IsWrite(action.Name) {
		return Patch{
			Messages:       []Message{assistantMsg(fmt.Sprintf("Write tool '%s' is not available.", action.Name))},
			SetNextAction:  true,
			SetPlannedTool: true,
		}
	}

	return Patch{
		Messages:       []Message{assistantMsg("Approval received. Executing write action now.")},
		PlannedTool:    action.Clone(),
		SetPlannedTool: true,
		SetNextAction:  true,
		Explanation:    "Approved write request executed.",
		SetExplanation: true,
	}
}
