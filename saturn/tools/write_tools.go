package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// UpdateTaskStatusTool moves one task to a new status from the closed set.
type UpdateTaskStatusTool struct {
	DB *sql.DB
}

func (t *UpdateTaskStatusTool) Name() string      { return "update_task_status" }
func (t *UpdateTaskStatusTool) Mode() Mode        { return ModeWrite }
func (t *UpdateTaskStatusTool) Signature() string { return "(task_id int, status string)" }
func (t *UpdateTaskStatusTool) Description() string {
	return "Update a task's status. Allowed: Not Started, In Progress, In Review, Blocked, Done."
}

func (t *UpdateTaskStatusTool) Schema() []byte {
	return []byte(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "integer", "minimum": 1},
    "status": {"type": "string"}
  },
  "required": ["task_id", "status"]
}`)
}

func (t *UpdateTaskStatusTool) Invoke(ctx context.Context, args map[string]any) string {
	taskID, _ := intArg(args, "task_id")
	rawStatus, _ := stringArg(args, "status")
	status := strings.TrimSpace(rawStatus)

	if !AllowedTaskStatuses[status] {
		return "Invalid status. Allowed values: " + allowedStatusList
	}

	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update task status")
		return fmt.Sprintf("Error updating task status: %v", err)
	}
	defer tx.Rollback()

	var title, oldStatus string
	err = tx.QueryRowContext(ctx, "SELECT title, status FROM Tasks WHERE id = ?", taskID).Scan(&title, &oldStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("Task with id=%d was not found.", taskID)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to update task status")
		return fmt.Sprintf("Error updating task status: %v", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE Tasks SET status = ? WHERE id = ?", status, taskID); err != nil {
		log.Error().Err(err).Msg("Failed to update task status")
		return fmt.Sprintf("Error updating task status: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Sprintf("Error updating task status: %v", err)
	}

	return serialize(map[string]any{
		"task_id":    taskID,
		"title":      title,
		"old_status": oldStatus,
		"new_status": status,
	})
}

// CreateProjectTool creates a project together with an initial batch of tasks
// as one transaction.
type CreateProjectTool struct {
	DB *sql.DB
}

func (t *CreateProjectTool) Name() string { return "create_project_with_tasks" }
func (t *CreateProjectTool) Mode() Mode   { return ModeWrite }
func (t *CreateProjectTool) Signature() string {
	return "(name string, owner_id int, tasks []task)"
}

func (t *CreateProjectTool) Description() string {
	return "Create a new project and its initial tasks in one atomic unit."
}

func (t *CreateProjectTool) Schema() []byte {
	return []byte(`{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "owner_id": {"type": "integer", "minimum": 1},
    "tasks": {
      "type": "array",
      "items": {"type": "object"}
    }
  },
  "required": ["name", "owner_id"]
}`)
}

func (t *CreateProjectTool) Invoke(ctx context.Context, args map[string]any) string {
	rawName, _ := stringArg(args, "name")
	projectName := strings.TrimSpace(rawName)
	if projectName == "" {
		return "Project name cannot be empty."
	}
	ownerID, _ := intArg(args, "owner_id")

	var taskItems []any
	if v, ok := args["tasks"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			return "Tasks must be provided as a list."
		}
		taskItems = items
	}

	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create project with tasks")
		return fmt.Sprintf("Error creating project with tasks: %v", err)
	}
	defer tx.Rollback()

	var ownerExists int
	err = tx.QueryRowContext(ctx, "SELECT id FROM TeamMembers WHERE id = ?", ownerID).Scan(&ownerExists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("Owner with id=%d was not found.", ownerID)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to create project with tasks")
		return fmt.Sprintf("Error creating project with tasks: %v", err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO Projects (name, status, owner_id) VALUES (?, ?, ?)",
		projectName, "Planning", ownerID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create project with tasks")
		return fmt.Sprintf("Error creating project with tasks: %v", err)
	}
	projectID, err := res.LastInsertId()
	if err != nil {
		return fmt.Sprintf("Error creating project with tasks: %v", err)
	}

	var createdTaskIDs []int64
	for idx, item := range taskItems {
		n := idx + 1
		task, ok := item.(map[string]any)
		if !ok {
			return fmt.Sprintf("Task item #%d must be a dictionary.", n)
		}

		rawTitle, _ := stringArg(task, "title")
		title := strings.TrimSpace(rawTitle)
		if title == "" {
			return fmt.Sprintf("Task item #%d is missing a non-empty title.", n)
		}

		rawStatus, _ := stringArg(task, "status")
		status := strings.TrimSpace(rawStatus)
		if status == "" {
			status = "Not Started"
		}
		if !AllowedTaskStatuses[status] {
			return fmt.Sprintf("Task item #%d has invalid status '%s'. Allowed: %s", n, status, allowedStatusList)
		}

		var assigneeID any
		if id, ok := intArg(task, "assignee_id"); ok {
			var exists int
			err = tx.QueryRowContext(ctx, "SELECT id FROM TeamMembers WHERE id = ?", id).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Sprintf("Task item #%d references unknown assignee id=%d.", n, id)
			}
			if err != nil {
				return fmt.Sprintf("Error creating project with tasks: %v", err)
			}
			assigneeID = id
		}

		rawDescription, _ := stringArg(task, "description")
		var dueDate any
		if d, ok := stringArg(task, "due_date"); ok {
			dueDate = d
		}

		taskRes, err := tx.ExecContext(ctx,
			"INSERT INTO Tasks (project_id, title, description, status, assignee_id, due_date) VALUES (?, ?, ?, ?, ?, ?)",
			projectID, title, strings.TrimSpace(rawDescription), status, assigneeID, dueDate,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create project with tasks")
			return fmt.Sprintf("Error creating project with tasks: %v", err)
		}
		taskID, err := taskRes.LastInsertId()
		if err != nil {
			return fmt.Sprintf("Error creating project with tasks: %v", err)
		}
		createdTaskIDs = append(createdTaskIDs, taskID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Sprintf("Error creating project with tasks: %v", err)
	}

	if createdTaskIDs == nil {
		createdTaskIDs = []int64{}
	}
	return serialize(map[string]any{
		"project_id":       projectID,
		"project_name":     projectName,
		"created_task_ids": createdTaskIDs,
	})
}
