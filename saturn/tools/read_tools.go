package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/saturnpm/saturn/saturn/store"
)

// serialize converts typed rows into compact JSON text for the planner and UI.
func serialize(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("Error serializing rows: %v", err)
	}
	return string(data)
}

// GetProjectsTool returns all projects.
type GetProjectsTool struct {
	DB *sql.DB
}

func (t *GetProjectsTool) Name() string      { return "get_projects" }
func (t *GetProjectsTool) Mode() Mode        { return ModeRead }
func (t *GetProjectsTool) Signature() string { return "()" }
func (t *GetProjectsTool) Description() string {
	return "Return all projects as a JSON list."
}

func (t *GetProjectsTool) Schema() []byte {
	return []byte(`{"type": "object", "properties": {}}`)
}

func (t *GetProjectsTool) Invoke(ctx context.Context, _ map[string]any) string {
	rows, err := t.DB.QueryContext(ctx, "SELECT id, name, status, owner_id FROM Projects ORDER BY id")
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch projects")
		return fmt.Sprintf("Error retrieving projects: %v", err)
	}
	defer rows.Close()

	projects := []store.Project{}
	for rows.Next() {
		var p store.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.OwnerID); err != nil {
			log.Error().Err(err).Msg("Failed to scan project row")
			return fmt.Sprintf("Error retrieving projects: %v", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("Error retrieving projects: %v", err)
	}
	return serialize(projects)
}

// GetTasksTool returns tasks with optional project/assignee filtering.
type GetTasksTool struct {
	DB *sql.DB
}

func (t *GetTasksTool) Name() string      { return "get_tasks" }
func (t *GetTasksTool) Mode() Mode        { return ModeRead }
func (t *GetTasksTool) Signature() string { return "(project_id int?, assignee_id int?)" }
func (t *GetTasksTool) Description() string {
	return "Return tasks, optionally filtered by project_id and/or assignee_id."
}

func (t *GetTasksTool) Schema() []byte {
	return []byte(`{
  "type": "object",
  "properties": {
    "project_id": {"type": "integer", "minimum": 1},
    "assignee_id": {"type": "integer", "minimum": 1}
  }
}`)
}

func (t *GetTasksTool) Invoke(ctx context.Context, args map[string]any) string {
	query := "SELECT id, project_id, title, description, status, assignee_id, due_date FROM Tasks"
	var filters []string
	var params []any

	if projectID, ok := intArg(args, "project_id"); ok {
		filters = append(filters, "project_id = ?")
		params = append(params, projectID)
	}
	if assigneeID, ok := intArg(args, "assignee_id"); ok {
		filters = append(filters, "assignee_id = ?")
		params = append(params, assigneeID)
	}
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY id"

	rows, err := t.DB.QueryContext(ctx, query, params...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch tasks")
		return fmt.Sprintf("Error retrieving tasks: %v", err)
	}
	defer rows.Close()

	var tasks []store.Task
	for rows.Next() {
		var task store.Task
		if err := rows.Scan(&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status, &task.AssigneeID, &task.DueDate); err != nil {
			log.Error().Err(err).Msg("Failed to scan task row")
			return fmt.Sprintf("Error retrieving tasks: %v", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("Error retrieving tasks: %v", err)
	}

	if len(tasks) == 0 {
		return "No tasks found matching the provided filters."
	}
	return serialize(tasks)
}

// SearchTeamMembersTool searches members by partial name or email.
type SearchTeamMembersTool struct {
	DB *sql.DB
}

func (t *SearchTeamMembersTool) Name() string      { return "search_team_members" }
func (t *SearchTeamMembersTool) Mode() Mode        { return ModeRead }
func (t *SearchTeamMembersTool) Signature() string { return "(query string)" }
func (t *SearchTeamMembersTool) Description() string {
	return "Search team members by partial name or email."
}

func (t *SearchTeamMembersTool) Schema() []byte {
	return []byte(`{
  "type": "object",
  "properties": {
    "query": {"type": "string"}
  },
  "required": ["query"]
}`)
}

func (t *SearchTeamMembersTool) Invoke(ctx context.Context, args map[string]any) string {
	raw, _ := stringArg(args, "query")
	searchTerm := strings.TrimSpace(raw)
	if searchTerm == "" {
		return "Search query cannot be empty."
	}

	pattern := "%" + searchTerm + "%"
	rows, err := t.DB.QueryContext(ctx,
		"SELECT id, name, email FROM TeamMembers WHERE LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) ORDER BY id",
		pattern, pattern,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search team members")
		return fmt.Sprintf("Error searching team members: %v", err)
	}
	defer rows.Close()

	var members []store.TeamMember
	for rows.Next() {
		var m store.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			log.Error().Err(err).Msg("Failed to scan team member row")
			return fmt.Sprintf("Error searching team members: %v", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("Error searching team members: %v", err)
	}

	if len(members) == 0 {
		return fmt.Sprintf("No team members found for query '%s'.", searchTerm)
	}
	return serialize(members)
}
