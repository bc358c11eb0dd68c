package domain

import "time"

// Priority levels for a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a row in the remote tasks table. IDs are assigned by the remote
// service on insert.
type Task struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	Priority  Priority  `json:"priority"`
	StartTime *string   `json:"start_time"`
	EndTime   *string   `json:"end_time"`
	DueDate   string    `json:"due_date"`
}

// NewTask carries the fields a caller supplies when creating a task.
type NewTask struct {
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
	DueDate  string   `json:"due_date"`
}

// TaskUpdate carries the mutable task fields for a partial update.
type TaskUpdate struct {
	Name      *string   `json:"name,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
	DueDate   *string   `json:"due_date,omitempty"`
}
