package session

import "github.com/threadline/stitchboard/pkg/board"

// Guard enforces the board's asymmetric authorization policy: only a task's
// creator may delete it, while every other mutation (field edits, department
// moves, assignment changes) is open to any authenticated identity.
type Guard struct {
	identity string
}

// NewGuard creates a guard for the given requesting identity.
func NewGuard(identity string) *Guard {
	return &Guard{identity: identity}
}

// CheckDelete returns a PermissionError if the requester is not the task's
// creator. Callers must check before issuing any network call so a rejected
// delete leaves the task untouched everywhere.
func (g *Guard) CheckDelete(t *board.Task) error {
	if t.CreatedBy != g.identity {
		return &PermissionError{TaskID: t.ID, Requester: g.identity}
	}
	return nil
}
