package store

// TeamMember is one row of the TeamMembers table.
type TeamMember struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Project is one row of the Projects table.
type Project struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	OwnerID int    `json:"owner_id"`
}

// Task is one row of the Tasks table. AssigneeID and DueDate are nullable.
type Task struct {
	ID          int     `json:"id"`
	ProjectID   int     `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	AssigneeID  *int    `json:"assignee_id"`
	DueDate     *string `json:"due_date"`
}

// Comment is one row of the Comments table.
type Comment struct {
	ID        int    `json:"id"`
	TaskID    int    `json:"task_id"`
	Message   string `json:"message"`
	UserID    int    `json:"user_id"`
	Timestamp string `json:"timestamp"`
}
