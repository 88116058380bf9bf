package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

var seedTeamMembers = []TeamMember{
	{ID: 1, Name: "Sarah Kim", Email: "sarah.kim@saturnpm.com"},
	{ID: 2, Name: "Leo Martinez", Email: "leo.martinez@saturnpm.com"},
	{ID: 3, Name: "Priya Nair", Email: "priya.nair@saturnpm.com"},
	{ID: 4, Name: "Avery Chen", Email: "avery.chen@saturnpm.com"},
}

var seedProjects = []Project{
	{ID: 1, Name: "Mobile App Redesign", Status: "In Progress", OwnerID: 1},
	{ID: 2, Name: "Q2 Growth Campaign", Status: "Planning", OwnerID: 2},
	{ID: 3, Name: "Data Warehouse Migration", Status: "In Progress", OwnerID: 3},
	{ID: 4, Name: "Customer Onboarding Revamp", Status: "Blocked", OwnerID: 1},
	{ID: 5, Name: "Security Compliance Audit", Status: "Completed", OwnerID: 4},
}

type seedTask struct {
	id          int
	projectID   int
	title       string
	description string
	status      string
	assigneeID  int
	dueDate     string
}

var seedTasks = []seedTask{
	{1, 1, "Finalize navigation prototype", "Create Figma flows for all key journeys.", "In Progress", 1, "2026-02-20"},
	{2, 1, "Run usability interviews", "Interview 8 beta users for pain points.", "Not Started", 2, "2026-02-24"},
	{3, 1, "Implement design system tokens", "Map new typography and spacing tokens.", "In Review", 4, "2026-02-19"},
	{4, 2, "Define campaign KPIs", "Align on conversion and CAC targets.", "Done", 2, "2026-02-05"},
	{5, 2, "Create ad creative briefs", "Draft creative direction for paid channels.", "In Progress", 1, "2026-02-18"},
	{6, 2, "Set up attribution dashboard", "Connect ad spend and lead events.", "Not Started", 3, "2026-02-28"},
	{7, 3, "Inventory legacy ETL jobs", "Document ownership and dependencies.", "Done", 3, "2026-01-31"},
	{8, 3, "Provision warehouse schemas", "Create staging and mart schemas.", "In Progress", 4, "2026-02-17"},
	{9, 3, "Migrate finance pipelines", "Port monthly close transformations.", "Blocked", 2, "2026-03-04"},
	{10, 4, "Map onboarding funnel", "Identify drop-off points from signup to activation.", "In Progress", 1, "2026-02-22"},
	{11, 4, "Draft lifecycle email sequence", "Define first-30-day engagement emails.", "Not Started", 2, "2026-02-25"},
	{12, 4, "Implement in-app checklist", "Build guided checklist for new accounts.", "Blocked", 4, "2026-03-01"},
	{13, 5, "Collect SOC2 evidence", "Gather and organize required artifacts.", "Done", 4, "2026-01-25"},
	{14, 5, "Review access controls", "Audit IAM roles and least privilege.", "Done", 3, "2026-01-28"},
	{15, 5, "Remediate findings", "Close medium-priority security gaps.", "Done", 2, "2026-02-02"},
}

var seedComments = []Comment{
	{ID: 1, TaskID: 1, Message: "Prototype v2 looks solid. Need tablet breakpoints.", UserID: 4, Timestamp: "2026-02-11T09:15:00Z"},
	{ID: 2, TaskID: 2, Message: "Recruiting participants this week.", UserID: 2, Timestamp: "2026-02-12T14:20:00Z"},
	{ID: 3, TaskID: 9, Message: "Waiting on data engineering capacity.", UserID: 3, Timestamp: "2026-02-10T17:05:00Z"},
	{ID: 4, TaskID: 12, Message: "Blocked by dependency on checklist API endpoint.", UserID: 4, Timestamp: "2026-02-13T11:33:00Z"},
	{ID: 5, TaskID: 10, Message: "Funnel analysis draft shared in Notion.", UserID: 1, Timestamp: "2026-02-12T08:05:00Z"},
}

// Seed inserts the mock PM dataset. Existing data is preserved unless force is
// set, in which case all rows are cleared first.
func Seed(db *sql.DB, force bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	if force {
		for _, table := range []string{"Comments", "Tasks", "Projects", "TeamMembers"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	var existing int
	if err := tx.QueryRow("SELECT COUNT(*) FROM Projects").Scan(&existing); err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if existing > 0 && !force {
		log.Debug().Int("projects", existing).Msg("Skipping seed; data already exists")
		return tx.Commit()
	}

	for _, m := range seedTeamMembers {
		if _, err := tx.Exec(
			"INSERT INTO TeamMembers (id, name, email) VALUES (?, ?, ?)",
			m.ID, m.Name, m.Email,
		); err != nil {
			return fmt.Errorf("failed to seed team member %d: %w", m.ID, err)
		}
	}

	for _, p := range seedProjects {
		if _, err := tx.Exec(
			"INSERT INTO Projects (id, name, status, owner_id) VALUES (?, ?, ?, ?)",
			p.ID, p.Name, p.Status, p.OwnerID,
		); err != nil {
			return fmt.Errorf("failed to seed project %d: %w", p.ID, err)
		}
	}

	for _, t := range seedTasks {
		if _, err := tx.Exec(
			"INSERT INTO Tasks (id, project_id, title, description, status, assignee_id, due_date) VALUES (?, ?, ?, ?, ?, ?, ?)",
			t.id, t.projectID, t.title, t.description, t.status, t.assigneeID, t.dueDate,
		); err != nil {
			return fmt.Errorf("failed to seed task %d: %w", t.id, err)
		}
	}

	for _, c := range seedComments {
		if _, err := tx.Exec(
			"INSERT INTO Comments (id, task_id, message, user_id, timestamp) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.TaskID, c.Message, c.UserID, c.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to seed comment %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	log.Info().
		Int("team_members", len(seedTeamMembers)).
		Int("projects", len(seedProjects)).
		Int("tasks", len(seedTasks)).
		Int("comments", len(seedComments)).
		Msg("Seeded database")

	return nil
}
