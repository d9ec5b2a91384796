// Package session implements one client's view of a shared board: the
// in-memory board state manager, the drag-reorder controller, the
// change-feed listener, the composer, and the creator-only delete guard.
//
// A session has a single logical execution context: CLI/UI calls and feed
// completions interleave, so the board guards its state with a mutex but no
// further parallelism exists inside a session.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/threadline/stitchboard/internal/directory"
	"github.com/threadline/stitchboard/pkg/board"
)

// View is a task joined with its display projections from the directory.
// Assignee and Asset are nil when the task has none.
type View struct {
	Task     board.Task
	Creator  board.Identity
	Assignee *board.Identity
	Asset    *board.Asset
}

// PendingMove is the token for one optimistic department move. It captures
// what RevertMove needs to undo exactly that mutation if persistence fails,
// rather than leaving board and store permanently diverged.
type PendingMove struct {
	TaskID       string
	From         board.Department
	To           board.Department
	PrevPosition int
	NewPosition  int
}

// Board is the canonical in-memory task collection for a session. It applies
// optimistic mutations, merges individual change events, and supports
// wholesale reconciliation from a store snapshot.
type Board struct {
	mu    sync.Mutex
	store *board.Store
	dir   *directory.Directory
	tasks map[string]*board.Task
}

// NewBoard creates an empty board backed by the given store and directory.
func NewBoard(store *board.Store, dir *directory.Directory) *Board {
	return &Board{
		store: store,
		dir:   dir,
		tasks: make(map[string]*board.Task),
	}
}

// Load fetches the full task collection from the store and replaces local
// state with it.
func (b *Board) Load(ctx context.Context) error {
	tasks, err := b.store.ListTasks(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	b.Reconcile(tasks)
	return nil
}

// Reconcile unconditionally replaces local state with the given snapshot.
// It does not merge: an optimistic mutation not yet confirmed by the store
// is overwritten by a reconcile that completes first, producing a visible
// revert.
func (b *Board) Reconcile(snapshot []*board.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tasks = make(map[string]*board.Task, len(snapshot))
	for _, t := range snapshot {
		copied := *t
		b.tasks[t.ID] = &copied
	}
}

// ApplyMove reassigns a task to a new department locally, without touching
// the store. The task is placed at the end of the target column. Returns a
// pending-move token for RevertMove. Moving a task to its current department
// returns (nil, nil): nothing changed, nothing to revert.
func (b *Board) ApplyMove(taskID string, dept board.Department) (*PendingMove, error) {
	if err := dept.Validate(); err != nil {
		return nil, &ValidationError{Field: "department", Reason: err.Error()}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	task, ok := b.tasks[taskID]
	if !ok {
		return nil, &ValidationError{Field: "task", Reason: "unknown task " + taskID}
	}

	if task.Department == dept {
		return nil, nil
	}

	pm := &PendingMove{
		TaskID:       taskID,
		From:         task.Department,
		To:           dept,
		PrevPosition: task.Position,
		NewPosition:  b.nextPositionLocked(dept),
	}

	task.Department = dept
	task.Position = pm.NewPosition
	return pm, nil
}

// RevertMove undoes exactly one pending move. The revert only applies if the
// task is still present and still where the optimistic move put it; a task
// that has since been reconciled, re-moved, or deleted is left alone.
func (b *Board) RevertMove(pm *PendingMove) {
	if pm == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	task, ok := b.tasks[pm.TaskID]
	if !ok {
		return
	}

	if task.Department != pm.To || task.Position != pm.NewPosition {
		return
	}

	task.Department = pm.From
	task.Position = pm.PrevPosition
}

// ApplyEvent merges a single change event into the board: insert and update
// fetch the one changed row, delete drops it. A fetch that comes back
// not-found means the row was deleted again in the meantime and is treated
// as a delete.
func (b *Board) ApplyEvent(ctx context.Context, ev board.ChangeEvent) error {
	switch ev.Op {
	case board.ChangeDelete:
		b.remove(ev.TaskID)
		return nil

	case board.ChangeInsert, board.ChangeUpdate:
		task, err := b.store.GetTask(ctx, ev.TaskID)
		if err != nil {
			if board.IsNotFound(err) {
				b.remove(ev.TaskID)
				return nil
			}
			return &PersistenceError{Op: "merge", Err: err}
		}

		b.mu.Lock()
		b.tasks[task.ID] = task
		b.mu.Unlock()
		return nil

	default:
		return &SubscriptionError{Err: ev.Op.Validate()}
	}
}

// Upsert replaces or adds a single task in local state. Used after a
// successful local mutation so the caller sees its own write immediately.
func (b *Board) Upsert(t *board.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	copied := *t
	b.tasks[t.ID] = &copied
}

func (b *Board) remove(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tasks, taskID)
}

// Remove drops a task from local state, typically after a local delete.
func (b *Board) Remove(taskID string) {
	b.remove(taskID)
}

// Get returns a copy of the task with the given ID.
func (b *Board) Get(taskID string) (board.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	task, ok := b.tasks[taskID]
	if !ok {
		return board.Task{}, false
	}
	return *task, true
}

// Len returns the number of tasks on the board.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tasks)
}

// Column returns the tasks in one department, joined with their display
// projections, in render order: position, then creation time, then ID as
// the final tiebreak. Position is advisory, so duplicates are possible
// under concurrent moves; the tiebreaks keep the order stable anyway.
func (b *Board) Column(dept board.Department) []View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.columnLocked(dept)
}

// Tasks returns every task on the board in render order: column order
// first, then intra-column order.
func (b *Board) Tasks() []View {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []View
	for _, dept := range board.Departments {
		out = append(out, b.columnLocked(dept)...)
	}
	return out
}

// Counts returns the number of tasks in each department. This is the
// per-department accessor consumed by external summary views.
func (b *Board) Counts() map[board.Department]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[board.Department]int, len(board.Departments))
	for _, dept := range board.Departments {
		counts[dept] = 0
	}
	for _, t := range b.tasks {
		counts[t.Department]++
	}
	return counts
}

// NextPosition returns the advisory position for a task appended to the
// given department's column.
func (b *Board) NextPosition(dept board.Department) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextPositionLocked(dept)
}

func (b *Board) nextPositionLocked(dept board.Department) int {
	next := 0
	for _, t := range b.tasks {
		if t.Department == dept && t.Position >= next {
			next = t.Position + 1
		}
	}
	return next
}

func (b *Board) columnLocked(dept board.Department) []View {
	var views []View
	for _, t := range b.tasks {
		if t.Department != dept {
			continue
		}
		views = append(views, b.viewLocked(t))
	}

	sort.Slice(views, func(i, j int) bool {
		left, right := views[i].Task, views[j].Task
		if left.Position != right.Position {
			return left.Position < right.Position
		}
		if left.CreatedAtMs != right.CreatedAtMs {
			return left.CreatedAtMs < right.CreatedAtMs
		}
		return left.ID < right.ID
	})

	return views
}

func (b *Board) viewLocked(t *board.Task) View {
	view := View{
		Task:    *t,
		Creator: b.dir.Project(t.CreatedBy),
	}
	if t.AssigneeID != "" {
		assignee := b.dir.Project(t.AssigneeID)
		view.Assignee = &assignee
	}
	if t.AssetRef != "" {
		if asset, ok := b.dir.Asset(t.AssetRef); ok {
			view.Asset = &asset
		}
	}
	return view
}
