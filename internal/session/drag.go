package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/threadline/stitchboard/pkg/board"
)

// DragController tracks the drag gesture as an explicit state machine:
//
//	Idle → Dragging(taskID) → Idle
//
// Drop applies the move optimistically and persists it asynchronously,
// returning to Idle immediately. CommitMove is the single authoritative
// move operation and is callable directly, without simulating a gesture.
type DragController struct {
	mu       sync.Mutex
	board    *Board
	store    *board.Store
	dragging string // task ID being dragged, "" when idle

	wg   sync.WaitGroup
	errs chan error
}

// NewDragController creates a controller over the given board and store.
func NewDragController(b *Board, store *board.Store) *DragController {
	return &DragController{
		board: b,
		store: store,
		errs:  make(chan error, 10),
	}
}

// DragStart transitions Idle → Dragging(taskID).
// Fails if a drag is already in progress or the task is unknown.
func (c *DragController) DragStart(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragging != "" {
		return fmt.Errorf("already dragging task %s", c.dragging)
	}

	if _, ok := c.board.Get(taskID); !ok {
		return fmt.Errorf("unknown task: %s", taskID)
	}

	c.dragging = taskID
	return nil
}

// Dragging reports the task currently being dragged, if any.
func (c *DragController) Dragging() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging, c.dragging != ""
}

// DragOver reports whether dropping on the given column would move the
// dragged task. No state transition occurs; this exists for visual
// feedback only.
func (c *DragController) DragOver(dept board.Department) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragging == "" {
		return false
	}
	task, ok := c.board.Get(c.dragging)
	return ok && task.Department != dept
}

// Cancel abandons the drag without any effect on board or store.
func (c *DragController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = ""
}

// Drop completes the gesture: transitions back to Idle immediately and, if
// the target column differs from the task's current department, applies the
// move optimistically and persists it in the background. Persistence
// failures are reported on Errors() after the one pending move has been
// reverted; Drop itself never blocks on the store.
func (c *DragController) Drop(ctx context.Context, dept board.Department) error {
	c.mu.Lock()
	taskID := c.dragging
	c.dragging = ""
	c.mu.Unlock()

	if taskID == "" {
		return fmt.Errorf("no drag in progress")
	}

	task, ok := c.board.Get(taskID)
	if !ok {
		// Deleted while dragging; nothing to do.
		return nil
	}

	// Dropping on the current column is idempotent: no persistence call.
	if task.Department == dept {
		return nil
	}

	pm, err := c.board.ApplyMove(taskID, dept)
	if err != nil {
		return err
	}
	if pm == nil {
		return nil
	}

	// The gesture is done from the caller's point of view, so its context
	// must not cancel the in-flight write; session teardown waits on the
	// WaitGroup instead.
	persistCtx := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.persistMove(persistCtx, pm); err != nil {
			c.report(err)
		}
	}()

	return nil
}

// CommitMove moves a task to a new department synchronously: optimistic
// local update, then persistence, with the one mutation reverted on failure.
// Moving a task onto its current department is a no-op that issues no
// persistence call. A move against a task concurrently deleted by its
// creator is a benign no-op: the optimistic move is reverted and the delete
// event removes the row.
func (c *DragController) CommitMove(ctx context.Context, taskID string, dept board.Department) error {
	pm, err := c.board.ApplyMove(taskID, dept)
	if err != nil {
		return err
	}
	if pm == nil {
		return nil
	}
	return c.persistMove(ctx, pm)
}

// Errors returns the channel persistence failures from asynchronous drops
// are reported on. Reports are non-blocking: if nobody is listening and the
// buffer is full, the report is dropped rather than stalling the session.
func (c *DragController) Errors() <-chan error {
	return c.errs
}

// Wait blocks until all in-flight asynchronous persistence calls have
// finished. Used by session teardown and by tests.
func (c *DragController) Wait() {
	c.wg.Wait()
}

func (c *DragController) persistMove(ctx context.Context, pm *PendingMove) error {
	dept := pm.To
	position := pm.NewPosition

	updated, err := c.store.UpdateTask(ctx, pm.TaskID, board.Patch{
		Department: &dept,
		Position:   &position,
	})
	if err != nil {
		c.board.RevertMove(pm)
		if board.IsNotFound(err) {
			// Task was deleted concurrently; treat as benign.
			return nil
		}
		return &PersistenceError{Op: "move", Err: err}
	}

	c.board.Upsert(updated)
	return nil
}

func (c *DragController) report(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
