// Package orchestrator implements the turn-based planning/approval state
// machine: a plan node that picks the next action, an execute node that runs
// registry tools, and a human-approval node that gates every write behind an
// explicit yes/no reply.
package orchestrator

import (
	"encoding/json"
	"fmt"
)

// Message is one record of a conversation thread. Tool-role records always
// carry Name and ToolCallID.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolRequest names a tool together with its call arguments. It backs both a
// staged write awaiting approval (NextAction) and an action slated to run
// immediately (PlannedTool).
type ToolRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Clone returns a deep copy so that a staged request cannot be mutated
// behind the state's back.
func (t *ToolRequest) Clone() *ToolRequest {
	if t == nil {
		return nil
	}
	args := make(map[string]any, len(t.Args))
	for k, v := range t.Args {
		args[k] = v
	}
	return &ToolRequest{Name: t.Name, Args: args}
}

// State is the per-thread conversation state persisted across turns.
type State struct {
	Messages       []Message    `json:"messages"`
	NextAction     *ToolRequest `json:"next_action,omitempty"`
	PlannedTool    *ToolRequest `json:"planned_tool,omitempty"`
	Explanation    string       `json:"explanation,omitempty"`
	LastToolName   string       `json:"last_tool_name,omitempty"`
	LastToolMode   string       `json:"last_tool_mode,omitempty"`
	LastToolResult string       `json:"last_tool_result,omitempty"`
}

// Patch is a sparse update produced by one node. Messages append; every other
// field overwrites only when its Set flag is raised, so a node can clear a
// field (nil/empty) without touching the rest.
type Patch struct {
	Messages []Message

	PlannedTool    *ToolRequest
	SetPlannedTool bool

	NextAction    *ToolRequest
	SetNextAction bool

	Explanation    string
	SetExplanation bool

	LastToolName   string
	LastToolMode   string
	LastToolResult string
	SetLastTool    bool
}

// Apply merges a patch into the state. The message list is append-only.
func (s *State) Apply(p Patch) {
	s.Messages = append(s.Messages, p.Messages...)
	if p.SetPlannedTool {
		s.PlannedTool = p.PlannedTool
	}
	if p.SetNextAction {
		s.NextAction = p.NextAction
	}
	if p.SetExplanation {
		s.Explanation = p.Explanation
	}
	if p.SetLastTool {
		s.LastToolName = p.LastToolName
		s.LastToolMode = p.LastToolMode
		s.LastToolResult = p.LastToolResult
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	cp := &State{
		Messages:       append([]Message(nil), s.Messages...),
		NextAction:     s.NextAction.Clone(),
		PlannedTool:    s.PlannedTool.Clone(),
		Explanation:    s.Explanation,
		LastToolName:   s.LastToolName,
		LastToolMode:   s.LastToolMode,
		LastToolResult: s.LastToolResult,
	}
	return cp
}

// MarshalState encodes a state snapshot for the thread store.
func MarshalState(s *State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thread state: %w", err)
	}
	return data, nil
}

// UnmarshalState decodes a snapshot previously produced by MarshalState.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode thread state: %w", err)
	}
	return &s, nil
}
