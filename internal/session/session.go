package session

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/threadline/stitchboard/internal/directory"
	"github.com/threadline/stitchboard/pkg/board"
)

// Session wires one client's components around an explicitly constructed
// store: board state manager, drag controller, composer, delete guard, and
// change-feed listener. The session owns the store's lifecycle: it is
// created at session start and disposed by Close.
type Session struct {
	identity string
	store    *board.Store
	dir      *directory.Directory
	board    *Board
	drag     *DragController
	composer *Composer
	guard    *Guard
	listener *Listener
}

// Open connects to the backing store, loads the initial board snapshot, and
// subscribes to the change feed. The caller must Close the session when
// done; otherwise the listener keeps acting on a stale board.
func Open(ctx context.Context, redisOpts *redis.Options, workspace, identity string, dir *directory.Directory) (*Session, error) {
	store, err := board.NewStore(redisOpts, workspace)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, &PersistenceError{Op: "connect", Err: err}
	}

	b := NewBoard(store, dir)
	if err := b.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	listener := NewListener(store, b)
	if err := listener.Start(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &Session{
		identity: identity,
		store:    store,
		dir:      dir,
		board:    b,
		drag:     NewDragController(b, store),
		composer: NewComposer(store, b, dir, identity),
		guard:    NewGuard(identity),
		listener: listener,
	}, nil
}

// Identity returns the authenticated identity this session acts as.
func (s *Session) Identity() string { return s.identity }

// Board returns the session's board state manager.
func (s *Session) Board() *Board { return s.board }

// Drag returns the session's drag-reorder controller.
func (s *Session) Drag() *DragController { return s.drag }

// Composer returns the session's task composer.
func (s *Session) Composer() *Composer { return s.composer }

// Store returns the underlying store, for callers that need raw access
// (short-ID resolution, watch loops).
func (s *Session) Store() *board.Store { return s.store }

// Errors returns the listener's error channel: feed disconnects, failed
// resubscribe attempts, merge failures. Non-blocking notification only.
func (s *Session) Errors() <-chan error { return s.listener.Errors() }

// Delete removes a task. Only the creator may delete: any other identity
// gets a PermissionError before a network call is issued and the task is
// left untouched.
func (s *Session) Delete(ctx context.Context, taskID string) error {
	task, ok := s.board.Get(taskID)
	if !ok {
		// Not in local state; consult the store so the guard still
		// applies to tasks created after the last reconcile.
		fetched, err := s.store.GetTask(ctx, taskID)
		if err != nil {
			if board.IsNotFound(err) {
				return nil
			}
			return &PersistenceError{Op: "delete task", Err: err}
		}
		task = *fetched
	}

	if err := s.guard.CheckDelete(&task); err != nil {
		return err
	}

	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return &PersistenceError{Op: "delete task", Err: err}
	}

	s.board.Remove(taskID)
	return nil
}

// Edit applies a field patch to a task. Open to any authenticated identity.
func (s *Session) Edit(ctx context.Context, taskID string, patch board.Patch) (*board.Task, error) {
	updated, err := s.store.UpdateTask(ctx, taskID, patch)
	if err != nil {
		if board.IsNotFound(err) {
			s.board.Remove(taskID)
			return nil, &PersistenceError{Op: "edit task", Err: err}
		}
		return nil, &PersistenceError{Op: "edit task", Err: err}
	}

	s.board.Upsert(updated)
	return updated, nil
}

// Assign sets or clears a task's assignee. Open to any authenticated
// identity; the assignee is only checked against the local directory.
func (s *Session) Assign(ctx context.Context, taskID, assigneeID string) (*board.Task, error) {
	if assigneeID != "" {
		if _, ok := s.dir.Identity(assigneeID); !ok {
			return nil, &ValidationError{Field: "assignee", Reason: "unknown identity " + assigneeID}
		}
	}
	return s.Edit(ctx, taskID, board.Patch{AssigneeID: &assigneeID})
}

// Close tears the session down: waits for in-flight move persists,
// unsubscribes the change feed, and closes the store connection.
func (s *Session) Close() error {
	s.drag.Wait()
	s.listener.Close()
	return s.store.Close()
}
