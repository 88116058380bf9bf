package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnpm/saturn/saturn/orchestrator/adapters"
	"github.com/saturnpm/saturn/saturn/tools"
)

// stubTool implements tools.Tool over a canned result and records its calls.
type stubTool struct {
	name   string
	mode   tools.Mode
	result string
	calls  []map[string]any
}

func (t *stubTool) Name() string         { return t.name }
func (t *stubTool) Mode() tools.Mode     { return t.mode }
func (t *stubTool) Signature() string    { return "()" }
func (t *stubTool) Description() string  { return "stub tool" }
func (t *stubTool) Schema() []byte       { return []byte(`{"type":"object"}`) }
func (t *stubTool) Invoke(_ context.Context, args map[string]any) string {
	t.calls = append(t.calls, args)
	return t.result
}

// stubPlanner satisfies Planner with a fixed function.
type stubPlanner func(ctx context.Context, userText string, messages []Message) (Decision, error)

func (f stubPlanner) Plan(ctx context.Context, userText string, messages []Message) (Decision, error) {
	return f(ctx, userText, messages)
}

type testFixture struct {
	runtime    *Runtime
	projects   *stubTool
	tasks      *stubTool
	members    *stubTool
	updateTask *stubTool
	createProj *stubTool
}

func newFixture(t *testing.T, opts ...EngineOption) *testFixture {
	t.Helper()
	f := &testFixture{
		projects:   &stubTool{name: "get_projects", mode: tools.ModeRead, result: `[{"id": 1, "name": "Apollo", "status": "Active"}]`},
		tasks:      &stubTool{name: "get_tasks", mode: tools.ModeRead, result: `[{"id": 3, "title": "Draft brief", "status": "In Progress"}]`},
		members:    &stubTool{name: "search_team_members", mode: tools.ModeRead, result: `[{"id": 2, "name": "Sarah Kim", "role": "Designer"}]`},
		updateTask: &stubTool{name: "update_task_status", mode: tools.ModeWrite, result: `{"task_id": 3, "old_status": "In Progress", "new_status": "Done"}`},
		createProj: &stubTool{name: "create_project_with_tasks", mode: tools.ModeWrite, result: `{"project_id": 6, "created_task_ids": [16]}`},
	}
	registry := tools.NewRegistry(f.projects, f.tasks, f.members, f.updateTask, f.createProj)
	engine := NewEngine(registry, zerolog.Nop(), opts...)
	f.runtime = NewRuntime(engine, adapters.NewMemoryThreadStore(), zerolog.Nop())
	return f
}

func lastMessage(t *testing.T, state *State) Message {
	t.Helper()
	require.NotEmpty(t, state.Messages)
	return state.Messages[len(state.Messages)-1]
}

func TestReadFlowAnswersFromToolResult(t *testing.T) {
	f := newFixture(t)

	state, err := f.runtime.RunTurn(context.Background(), "t1", "list projects")
	require.NoError(t, err)

	last := lastMessage(t, state)
	assert.Equal(t, "assistant", last.Role)
	assert.Equal(t, "Read result from get_projects: "+f.projects.result, last.Content)
	assert.Len(t, f.projects.calls, 1)
	assert.Nil(t, state.NextAction)
	assert.Nil(t, state.PlannedTool)
}

func TestUpdateTaskStagesWriteWithoutExecuting(t *testing.T) {
	f := newFixture(t)

	state, err := f.runtime.RunTurn(context.Background(), "t1", "update task 3 to done")
	require.NoError(t, err)

	require.NotNil(t, state.NextAction)
	assert.Equal(t, "update_task_status", state.NextAction.Name)
	assert.Equal(t, 3, state.NextAction.Args["task_id"])
	assert.Equal(t, "Done", state.NextAction.Args["status"])

	last := lastMessage(t, state)
	assert.Equal(t, "I will update task 3 to 'Done'. This requires your approval. Approve this write action? Reply yes or no.", last.Content)

	// The write must not run until an explicit yes arrives.
	assert.Empty(t, f.updateTask.calls)
}

func TestApprovalExecutesStagedWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.runtime.RunTurn(ctx, "t1", "update task 3 to done")
	require.NoError(t, err)

	state, err := f.runtime.RunTurn(ctx, "t1", "yes")
	require.NoError(t, err)

	require.Len(t, f.updateTask.calls, 1)
	assert.Equal(t, 3, intFromArg(f.updateTask.calls[0]["task_id"]))
	assert.Equal(t, "Done", f.updateTask.calls[0]["status"])

	last := lastMessage(t, state)
	assert.Equal(t, "Write operation completed from update_task_status: "+f.updateTask.result, last.Content)
	assert.Nil(t, state.NextAction)
	assert.Equal(t, "Approved write request executed.", state.Explanation)

	toolMsg := state.Messages[len(state.Messages)-2]
	assert.Equal(t, "tool", toolMsg.Role)
	assert.Equal(t, "update_task_status_write_call", toolMsg.ToolCallID)
}

func TestDenialCancelsStagedWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.runtime.RunTurn(ctx, "t1", "update task 3 to done")
	require.NoError(t, err)

	state, err := f.runtime.RunTurn(ctx, "t1", "no")
	require.NoError(t, err)

	assert.Empty(t, f.updateTask.calls)
	assert.Nil(t, state.NextAction)
	assert.Equal(t, "User denied write request.", state.Explanation)
	assert.Equal(t, "Understood. I canceled that write operation.", lastMessage(t, state).Content)
}

func TestUnrecognizedReplyRepromptsAndKeepsPendingWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.runtime.RunTurn(ctx, "t1", "update task 3 to done")
	require.NoError(t, err)

	state, err := f.runtime.RunTurn(ctx, "t1", "maybe later")
	require.NoError(t, err)

	assert.Empty(t, f.updateTask.calls)
	require.NotNil(t, state.NextAction)
	assert.Equal(t, "update_task_status", state.NextAction.Name)
	assert.Equal(t, "Please reply with yes or no to approve or cancel the pending write operation.", lastMessage(t, state).Content)

	// A later yes still lands on the original staged action.
	state, err = f.runtime.RunTurn(ctx, "t1", "yes")
	require.NoError(t, err)
	assert.Len(t, f.updateTask.calls, 1)
	assert.Nil(t, state.NextAction)
}

func TestApprovalVocabularyVariants(t *testing.T) {
	for _, reply := range []string{"y", "approve", "confirm", "go ahead"} {
		t.Run(reply, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.runtime.RunTurn(ctx, "t1", "update task 3 to done")
			require.NoError(t, err)

			state, err := f.runtime.RunTurn(ctx, "t1", reply)
			require.NoError(t, err)
			assert.Len(t, f.updateTask.calls, 1)
			assert.Nil(t, state.NextAction)
		})
	}
}

func TestCreateProjectMultiStepFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := "create a project named 'Website Redesign' and assign the first task to Sarah"

	// Turn 1 resolves the assignee id via a read and then closes the turn.
	state, err := f.runtime.RunTurn(ctx, "t1", request)
	require.NoError(t, err)
	require.Len(t, f.members.calls, 1)
	assert.Equal(t, "Sarah", f.members.calls[0]["query"])
	assert.Nil(t, state.NextAction)
	assert.Equal(t, "I found the assignee id. Repeat the request to proceed with the write action.", lastMessage(t, state).Content)

	// Turn 2 stages the write from the remembered search payload.
	state, err = f.runtime.RunTurn(ctx, "t1", request)
	require.NoError(t, err)
	require.NotNil(t, state.NextAction)
	assert.Equal(t, "create_project_with_tasks", state.NextAction.Name)
	assert.Equal(t, "Website Redesign", state.NextAction.Args["name"])
	assert.Equal(t, 2, state.NextAction.Args["owner_id"])
	assert.Empty(t, f.createProj.calls)

	// Turn 3 approves and executes.
	state, err = f.runtime.RunTurn(ctx, "t1", "yes")
	require.NoError(t, err)
	require.Len(t, f.createProj.calls, 1)
	taskItems, ok := f.createProj.calls[0]["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, taskItems, 1)
	firstTask := taskItems[0].(map[string]any)
	assert.Equal(t, "Initial setup task", firstTask["title"])
	assert.Equal(t, "Not Started", firstTask["status"])
	assert.Equal(t, 2, intFromArg(firstTask["assignee_id"]))
	assert.Nil(t, state.NextAction)
}

func TestEmptyUserMessage(t *testing.T) {
	f := newFixture(t)

	state, err := f.runtime.RunTurn(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, "Please share a request so I can help.", lastMessage(t, state).Content)
	assert.Nil(t, state.NextAction)
}

func TestUnknownPlannerToolIsReported(t *testing.T) {
	f := newFixture(t, WithOracle(stubPlanner(func(context.Context, string, []Message) (Decision, error) {
		return Decision{Tool: "frobnicate", Args: map[string]any{}, Explanation: "made up"}, nil
	})))

	state, err := f.runtime.RunTurn(context.Background(), "t1", "please frobnicate")
	require.NoError(t, err)
	assert.Equal(t, "I could not find tool 'frobnicate'. Please rephrase your request.", lastMessage(t, state).Content)
	assert.Equal(t, "Tool 'frobnicate' is not available.", state.Explanation)
}

func TestOracleFailureFallsBackToHeuristic(t *testing.T) {
	f := newFixture(t, WithOracle(stubPlanner(func(context.Context, string, []Message) (Decision, error) {
		return Decision{}, fmt.Errorf("provider unreachable")
	})))

	state, err := f.runtime.RunTurn(context.Background(), "t1", "list projects")
	require.NoError(t, err)
	assert.Len(t, f.projects.calls, 1)
	assert.Contains(t, lastMessage(t, state).Content, "Read result from get_projects:")
}

func TestStepLimitAbortsRunawayTurn(t *testing.T) {
	// An oracle that always plans another read would loop forever.
	f := newFixture(t, WithOracle(stubPlanner(func(context.Context, string, []Message) (Decision, error) {
		return Decision{Tool: "get_projects", Args: map[string]any{}, Explanation: "keep reading"}, nil
	})), WithMaxSteps(6))

	_, err := f.runtime.RunTurn(context.Background(), "t1", "anything at all")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepLimit)
}

func TestThreadsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.runtime.RunTurn(ctx, "thread-a", "update task 3 to done")
	require.NoError(t, err)

	// A yes on a different thread has no pending write to approve.
	state, err := f.runtime.RunTurn(ctx, "thread-b", "yes")
	require.NoError(t, err)
	assert.Empty(t, f.updateTask.calls)
	assert.Nil(t, state.NextAction)

	// The original thread's staged write is untouched.
	state, err = f.runtime.RunTurn(ctx, "thread-a", "yes")
	require.NoError(t, err)
	assert.Len(t, f.updateTask.calls, 1)
	assert.Nil(t, state.NextAction)
}

func TestHistorySurvivesRuntimeRestart(t *testing.T) {
	store := adapters.NewMemoryThreadStore()
	build := func() *Runtime {
		registry := tools.NewRegistry(&stubTool{name: "get_projects", mode: tools.ModeRead, result: `[]`})
		return NewRuntime(NewEngine(registry, zerolog.Nop()), store, zerolog.Nop())
	}
	ctx := context.Background()

	_, err := build().RunTurn(ctx, "t1", "list projects")
	require.NoError(t, err)

	history, err := build().History(ctx, "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, history)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "list projects", history[0].Content)
}

// intFromArg tolerates the int/float64 split between in-process maps and
// JSON round-trips.
func intFromArg(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return -1
	}
}
