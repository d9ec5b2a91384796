// Package board provides the shared data model and Redis store for the
// Stitchboard task pipeline. A board is the central shared state for a
// workspace: every session (CLI, UI, summary view) reads and mutates tasks
// through the same well-defined structures stored in Redis.
//
// All Redis keys and channels are namespaced by workspace name so that
// multiple boards can safely coexist on a single Redis server.
package board

import (
	"fmt"

	"github.com/google/uuid"
)

// Task represents a single work item on the board. A task belongs to exactly
// one department at any time; a move reassigns it, never duplicates it.
type Task struct {
	ID          string     `json:"id"`           // UUID - unique identifier for this task
	Title       string     `json:"title"`        // Required, non-empty
	Description string     `json:"description"`  // Optional free text
	AssetRef    string     `json:"asset_ref"`    // Optional code referencing an external asset
	Department  Department `json:"department"`   // Current pipeline stage
	Status      Status     `json:"status"`       // todo / in_progress / completed
	Priority    Priority   `json:"priority"`     // low / medium / high
	CreatedBy   string     `json:"created_by"`   // Identity ID of the creator; set once, immutable
	AssigneeID  string     `json:"assignee_id"`  // Optional identity ID; mutable by anyone
	DueDateMs   int64      `json:"due_date_ms"`  // Optional due date, unix milliseconds (0 = none)
	Position    int        `json:"position"`     // Advisory ordering within a column, not enforced
	CreatedAtMs int64      `json:"created_at_ms"` // Unix milliseconds when the task was created
}

// Department is one of the five fixed pipeline stages a task moves through.
type Department string

const (
	DepartmentPlanning  Department = "planning"
	DepartmentCutting   Department = "cutting"
	DepartmentStitching Department = "stitching"
	DepartmentWashing   Department = "washing"
	DepartmentFinishing Department = "finishing"
)

// Departments lists the pipeline stages in production order. Render surfaces
// iterate this slice so column order is stable everywhere.
var Departments = []Department{
	DepartmentPlanning,
	DepartmentCutting,
	DepartmentStitching,
	DepartmentWashing,
	DepartmentFinishing,
}

// Status is the lifecycle state of a task. The board core sets status to todo
// at creation and never mutates it afterwards; it is independent of the
// task's department.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority is the advisory urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Identity is the projection of a user used for display: who created a task,
// who it is assigned to. Populated from the prefetched directory, never
// verified server-side.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Asset is the projection of an external inventory asset a task may
// reference by code.
type Asset struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ChangeOp identifies the kind of mutation a change event describes.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeEvent is published on the workspace task-events channel after every
// committed mutation. It carries the changed row's ID and operation type so
// listeners can merge incrementally instead of refetching the whole
// collection.
type ChangeEvent struct {
	Op     ChangeOp `json:"op"`
	TaskID string   `json:"task_id"`
}

// Validate checks if the Task has valid field values.
// Returns an error if any validation fails.
func (t *Task) Validate() error {
	if !isValidUUID(t.ID) {
		return fmt.Errorf("invalid task ID: not a valid UUID")
	}

	if t.Title == "" {
		return fmt.Errorf("task title cannot be empty")
	}

	if err := t.Department.Validate(); err != nil {
		return fmt.Errorf("invalid department: %w", err)
	}

	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if err := t.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}

	if t.CreatedBy == "" {
		return fmt.Errorf("created_by cannot be empty")
	}

	return nil
}

// Validate checks if the Department is a valid enum value.
func (d Department) Validate() error {
	switch d {
	case DepartmentPlanning, DepartmentCutting, DepartmentStitching,
		DepartmentWashing, DepartmentFinishing:
		return nil
	default:
		return fmt.Errorf("unknown department: %q", d)
	}
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Validate checks if the Priority is a valid enum value.
func (p Priority) Validate() error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	default:
		return fmt.Errorf("unknown priority: %q", p)
	}
}

// Validate checks if the ChangeOp is a valid enum value.
func (op ChangeOp) Validate() error {
	switch op {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return nil
	default:
		return fmt.Errorf("unknown change op: %q", op)
	}
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
