package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threadline/stitchboard/internal/directory"
	"github.com/threadline/stitchboard/pkg/board"
)

// Draft is the user's input for a new task before validation.
type Draft struct {
	Title       string
	Description string
	AssetRef    string
	Department  board.Department
	Priority    board.Priority
	AssigneeID  string
	DueDateMs   int64
}

// Composer validates and submits new task records. Validation failures are
// reported synchronously, before any network call; persistence failures
// surface as a PersistenceError with no partial commit.
type Composer struct {
	store    *board.Store
	board    *Board
	dir      *directory.Directory
	identity string
}

// NewComposer creates a composer submitting on behalf of the given identity.
func NewComposer(store *board.Store, b *Board, dir *directory.Directory, identity string) *Composer {
	return &Composer{
		store:    store,
		board:    b,
		dir:      dir,
		identity: identity,
	}
}

// Submit validates the draft, persists a new task, and mirrors it onto the
// local board. The new task always has status todo and the submitting
// identity as its immutable creator. Department defaults to planning and
// priority to medium when not set.
func (c *Composer) Submit(ctx context.Context, d Draft) (*board.Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "cannot be empty"}
	}

	dept := d.Department
	if dept == "" {
		dept = board.DepartmentPlanning
	}
	if err := dept.Validate(); err != nil {
		return nil, &ValidationError{Field: "department", Reason: err.Error()}
	}

	priority := d.Priority
	if priority == "" {
		priority = board.PriorityMedium
	}
	if err := priority.Validate(); err != nil {
		return nil, &ValidationError{Field: "priority", Reason: err.Error()}
	}

	// Convenience checks against the locally cached directory only; the
	// store does not enforce referential integrity for these fields.
	if d.AssetRef != "" {
		if _, ok := c.dir.Asset(d.AssetRef); !ok {
			return nil, &ValidationError{Field: "asset", Reason: "unknown asset code " + d.AssetRef}
		}
	}
	if d.AssigneeID != "" {
		if _, ok := c.dir.Identity(d.AssigneeID); !ok {
			return nil, &ValidationError{Field: "assignee", Reason: "unknown identity " + d.AssigneeID}
		}
	}

	task := &board.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: d.Description,
		AssetRef:    d.AssetRef,
		Department:  dept,
		Status:      board.StatusTodo,
		Priority:    priority,
		CreatedBy:   c.identity,
		AssigneeID:  d.AssigneeID,
		DueDateMs:   d.DueDateMs,
		Position:    c.board.NextPosition(dept),
		CreatedAtMs: time.Now().UnixMilli(),
	}

	if err := c.store.InsertTask(ctx, task); err != nil {
		return nil, &PersistenceError{Op: "create task", Err: err}
	}

	c.board.Upsert(task)
	return task, nil
}
