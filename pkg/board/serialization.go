package board

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Numeric fields are
// encoded as decimal strings and parsed back on read. Every task field lives
// in its own hash field so partial reads stay possible even though the store
// always writes the full row.

// TaskToHash converts a Task struct to a Redis hash format.
func TaskToHash(t *Task) map[string]interface{} {
	return map[string]interface{}{
		"id":            t.ID,
		"title":         t.Title,
		"description":   t.Description,
		"asset_ref":     t.AssetRef,
		"department":    string(t.Department),
		"status":        string(t.Status),
		"priority":      string(t.Priority),
		"created_by":    t.CreatedBy,
		"assignee_id":   t.AssigneeID,
		"due_date_ms":   t.DueDateMs,
		"position":      t.Position,
		"created_at_ms": t.CreatedAtMs,
	}
}

// HashToTask converts a Redis hash to a Task struct.
func HashToTask(hash map[string]string) (*Task, error) {
	position, err := strconv.Atoi(hash["position"])
	if err != nil {
		return nil, fmt.Errorf("invalid position field: %w", err)
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	// Optional: absent or empty means no due date.
	var dueDateMs int64
	if raw := hash["due_date_ms"]; raw != "" {
		dueDateMs, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid due_date_ms field: %w", err)
		}
	}

	task := &Task{
		ID:          hash["id"],
		Title:       hash["title"],
		Description: hash["description"],
		AssetRef:    hash["asset_ref"],
		Department:  Department(hash["department"]),
		Status:      Status(hash["status"]),
		Priority:    Priority(hash["priority"]),
		CreatedBy:   hash["created_by"],
		AssigneeID:  hash["assignee_id"],
		DueDateMs:   dueDateMs,
		Position:    position,
		CreatedAtMs: createdAtMs,
	}

	// Enum fields are validated on write, so an unknown value here means a
	// corrupted row. Surface it as a deserialization error rather than
	// letting a task with an unrenderable department into local state.
	if err := task.Department.Validate(); err != nil {
		return nil, fmt.Errorf("invalid department field: %w", err)
	}
	if err := task.Status.Validate(); err != nil {
		return nil, fmt.Errorf("invalid status field: %w", err)
	}
	if err := task.Priority.Validate(); err != nil {
		return nil, fmt.Errorf("invalid priority field: %w", err)
	}

	return task, nil
}
