package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnpm/saturn/saturn/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetProjects(t *testing.T) {
	db := newTestDB(t)
	tool := &GetProjectsTool{DB: db}

	result := tool.Invoke(context.Background(), nil)

	var projects []store.Project
	require.NoError(t, json.Unmarshal([]byte(result), &projects))
	require.Len(t, projects, 5)
	assert.Equal(t, "Mobile App Redesign", projects[0].Name)
	assert.Equal(t, 1, projects[0].OwnerID)
}

func TestGetTasksFilters(t *testing.T) {
	db := newTestDB(t)
	tool := &GetTasksTool{DB: db}
	ctx := context.Background()

	var tasks []store.Task
	require.NoError(t, json.Unmarshal([]byte(tool.Invoke(ctx, map[string]any{"project_id": 1})), &tasks))
	assert.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.Equal(t, 1, task.ProjectID)
	}

	tasks = nil
	result := tool.Invoke(ctx, map[string]any{"project_id": 2, "assignee_id": 2})
	require.NoError(t, json.Unmarshal([]byte(result), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Define campaign KPIs", tasks[0].Title)

	assert.Equal(t, "No tasks found matching the provided filters.",
		tool.Invoke(ctx, map[string]any{"project_id": 999}))
}

func TestSearchTeamMembers(t *testing.T) {
	db := newTestDB(t)
	tool := &SearchTeamMembersTool{DB: db}
	ctx := context.Background()

	var members []store.TeamMember
	require.NoError(t, json.Unmarshal([]byte(tool.Invoke(ctx, map[string]any{"query": "sarah"})), &members))
	require.Len(t, members, 1)
	assert.Equal(t, 1, members[0].ID)
	assert.Equal(t, "Sarah Kim", members[0].Name)

	assert.Equal(t, "Search query cannot be empty.",
		tool.Invoke(ctx, map[string]any{"query": "   "}))
	assert.Equal(t, "No team members found for query 'zzz'.",
		tool.Invoke(ctx, map[string]any{"query": "zzz"}))
}

func TestUpdateTaskStatus(t *testing.T) {
	db := newTestDB(t)
	tool := &UpdateTaskStatusTool{DB: db}
	ctx := context.Background()

	assert.Equal(t, "Invalid status. Allowed values: "+allowedStatusList,
		tool.Invoke(ctx, map[string]any{"task_id": 1, "status": "Finished"}))

	assert.Equal(t, "Task with id=9999 was not found.",
		tool.Invoke(ctx, map[string]any{"task_id": 9999, "status": "Done"}))

	result := tool.Invoke(ctx, map[string]any{"task_id": 1, "status": "Done"})
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, float64(1), payload["task_id"])
	assert.Equal(t, "In Progress", payload["old_status"])
	assert.Equal(t, "Done", payload["new_status"])

	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM Tasks WHERE id = 1").Scan(&status))
	assert.Equal(t, "Done", status)
}

func TestCreateProjectValidation(t *testing.T) {
	db := newTestDB(t)
	tool := &CreateProjectTool{DB: db}
	ctx := context.Background()

	assert.Equal(t, "Project name cannot be empty.",
		tool.Invoke(ctx, map[string]any{"name": "  ", "owner_id": 1}))

	assert.Equal(t, "Owner with id=99 was not found.",
		tool.Invoke(ctx, map[string]any{"name": "Orphan", "owner_id": 99}))

	assert.Equal(t, "Task item #1 must be a dictionary.",
		tool.Invoke(ctx, map[string]any{"name": "P", "owner_id": 1, "tasks": []any{"bad"}}))

	assert.Equal(t, "Task item #1 is missing a non-empty title.",
		tool.Invoke(ctx, map[string]any{"name": "P", "owner_id": 1, "tasks": []any{map[string]any{"status": "Done"}}}))

	assert.Equal(t, "Task item #1 has invalid status 'Later'. Allowed: "+allowedStatusList,
		tool.Invoke(ctx, map[string]any{"name": "P", "owner_id": 1, "tasks": []any{map[string]any{"title": "T", "status": "Later"}}}))

	assert.Equal(t, "Task item #1 references unknown assignee id=42.",
		tool.Invoke(ctx, map[string]any{"name": "P", "owner_id": 1, "tasks": []any{map[string]any{"title": "T", "assignee_id": 42}}}))

	// None of the failed attempts may leave a project behind.
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM Projects").Scan(&count))
	assert.Equal(t, 5, count)
}

func TestCreateProjectWithTasks(t *testing.T) {
	db := newTestDB(t)
	tool := &CreateProjectTool{DB: db}

	result := tool.Invoke(context.Background(), map[string]any{
		"name":     "Website Redesign",
		"owner_id": 1,
		"tasks": []any{
			map[string]any{"title": "Initial setup task", "status": "Not Started", "assignee_id": 1},
			map[string]any{"title": "Ship it", "due_date": "2026-04-01"},
		},
	})

	var payload struct {
		ProjectID      int64   `json:"project_id"`
		ProjectName    string  `json:"project_name"`
		CreatedTaskIDs []int64 `json:"created_task_ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, "Website Redesign", payload.ProjectName)
	assert.Len(t, payload.CreatedTaskIDs, 2)

	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM Projects WHERE id = ?", payload.ProjectID).Scan(&status))
	assert.Equal(t, "Planning", status)

	// Missing status defaults to Not Started.
	require.NoError(t, db.QueryRow("SELECT status FROM Tasks WHERE id = ?", payload.CreatedTaskIDs[1]).Scan(&status))
	assert.Equal(t, "Not Started", status)
}

func TestRegistry(t *testing.T) {
	db := newTestDB(t)
	registry := DefaultRegistry(db)

	assert.Equal(t,
		[]string{"get_projects", "get_tasks", "search_team_members", "update_task_status", "create_project_with_tasks"},
		registry.Names())

	assert.True(t, registry.IsRead("get_projects"))
	assert.False(t, registry.IsWrite("get_projects"))
	assert.True(t, registry.IsWrite("update_task_status"))
	assert.False(t, registry.IsRead("nonexistent"))

	_, ok := registry.Lookup("get_tasks")
	assert.True(t, ok)
	_, ok = registry.Lookup("nonexistent")
	assert.False(t, ok)

	manual := registry.Manual()
	assert.Contains(t, manual, "Available tools:")
	assert.Contains(t, manual, "- update_task_status(task_id int, status string) [write]")
}

func TestRegistryExecute(t *testing.T) {
	db := newTestDB(t)
	registry := DefaultRegistry(db)
	ctx := context.Background()

	_, _, ok := registry.Execute(ctx, "nonexistent", nil)
	assert.False(t, ok)

	result, mode, ok := registry.Execute(ctx, "get_projects", nil)
	require.True(t, ok)
	assert.Equal(t, ModeRead, mode)
	assert.Contains(t, result, "Mobile App Redesign")

	// Schema violations surface as result text, not as a crash.
	result, mode, ok = registry.Execute(ctx, "update_task_status", map[string]any{"task_id": "one", "status": "Done"})
	require.True(t, ok)
	assert.Equal(t, ModeWrite, mode)
	assert.Contains(t, result, "Invalid arguments for update_task_status:")
}
