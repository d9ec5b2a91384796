package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/stitchboard/pkg/board"
)

func TestDragStateMachine(t *testing.T) {
	b, store, _ := setupBoard(t)
	ctx := context.Background()

	task := seedTask(t, store, "u1", board.DepartmentPlanning, "Cut fabric panel A")
	require.NoError(t, b.Load(ctx))

	c := NewDragController(b, store)

	t.Run("starts idle", func(t *testing.T) {
		_, dragging := c.Dragging()
		assert.False(t, dragging)
	})

	t.Run("dragstart transitions to dragging", func(t *testing.T) {
		require.NoError(t, c.DragStart(task.ID))
		id, dragging := c.Dragging()
		assert.True(t, dragging)
		assert.Equal(t, task.ID, id)
	})

	t.Run("second dragstart fails", func(t *testing.T) {
		err := c.DragStart(task.ID)
		assert.Error(t, err)
	})

	t.Run("dragover gives feedback without transition", func(t *testing.T) {
		assert.True(t, c.DragOver(board.DepartmentCutting))
		assert.False(t, c.DragOver(board.DepartmentPlanning))

		_, dragging := c.Dragging()
		assert.True(t, dragging, "dragover must not change state")
	})

	t.Run("cancel returns to idle", func(t *testing.T) {
		c.Cancel()
		_, dragging := c.Dragging()
		assert.False(t, dragging)
	})

	t.Run("dragstart rejects unknown task", func(t *testing.T) {
		err := c.DragStart(uuid.New().String())
		assert.Error(t, err)
	})

	t.Run("drop without drag fails", func(t *testing.T) {
		err := c.Drop(ctx, board.DepartmentCutting)
		assert.Error(t, err)
	})
}

func TestDrop_SameColumnIsIdempotent(t *testing.T) {
	b, store, _ := setupBoard(t)
	ctx := context.Background()

	task := seedTask(t, store, "u1", board.DepartmentPlanning, "Cut fabric panel A")
	require.NoError(t, b.Load(ctx))

	c := NewDragController(b, store)

	sub, err := store.SubscribeTaskEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, c.DragStart(task.ID))
	require.NoError(t, c.Drop(ctx, board.DepartmentPlanning))
	c.Wait()

	_, dragging := c.Dragging()
	assert.False(t, dragging, "drop returns to idle")

	// No persistence call was issued, so no event was published
	select {
	case ev := <-sub.Events():
		t.Fatalf("expected no event for same-column drop, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	got, _ := b.Get(task.ID)
	assert.Equal(t, board.DepartmentPlanning, got.Department)

	// The store still has the original row, untouched
	stored, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, board.DepartmentPlanning, stored.Department)
	assert.Equal(t, task.Position, stored.Position)
}

func TestDrop_MovesAndPersists(t *testing.T) {
	b, store, _ := setupBoard(t)
	ctx := context.Background()

	task := seedTask(t, store, "u1", board.DepartmentPlanning, "Cut fabric panel A")
	require.NoError(t, b.Load(ctx))

	c := NewDragController(b, store)

	require.NoError(t, c.DragStart(task.ID))
	require.NoError(t, c.Drop(ctx, board.DepartmentCutting))

	// Optimistic: local state reflects the move before persistence settles
	got, _ := b.Get(task.ID)
	assert.Equal(t, board.DepartmentCutting, got.Department)

	_, dragging := c.Dragging()
	assert.False(t, dragging, "drop returns to idle immediately")

	c.Wait()

	// A full reload reflects the persisted department
	require.NoError(t, b.Load(ctx))
	got, _ = b.Get(task.ID)
	assert.Equal(t, board.DepartmentCutting, got.Department)
}

func TestCommitMove(t *testing.T) {
	b, store, mr := setupBoard(t)
	ctx := context.Background()

	task := seedTask(t, store, "u1", board.DepartmentPlanning, "Cut fabric panel A")
	require.NoError(t, b.Load(ctx))

	c := NewDragController(b, store)

	t.Run("persists the move", func(t *testing.T) {
		require.NoError(t, c.CommitMove(ctx, task.ID, board.DepartmentCutting))

		stored, err := store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, board.DepartmentCutting, stored.Department)
	})

	t.Run("same department is a no-op", func(t *testing.T) {
		require.NoError(t, c.CommitMove(ctx, task.ID, board.DepartmentCutting))
	})

	t.Run("concurrent delete is benign", func(t *testing.T) {
		victim := seedTask(t, store, "u1", board.DepartmentPlanning, "doomed")
		require.NoError(t, b.Load(ctx))

		// Another session's creator deletes the row before our persist lands
		require.NoError(t, store.DeleteTask(ctx, victim.ID))

		err := c.CommitMove(ctx, victim.ID, board.DepartmentWashing)
		assert.NoError(t, err, "move against a deleted task is a benign no-op")

		// The optimistic move was reverted rather than left dangling
		got, ok := b.Get(victim.ID)
		if ok {
			assert.Equal(t, board.DepartmentPlanning, got.Department)
		}
	})

	t.Run("reverts on persistence failure", func(t *testing.T) {
		mover := seedTask(t, store, "u1", board.DepartmentPlanning, "stuck")
		require.NoError(t, b.Load(ctx))

		// Take the backing store down
		mr.Close()

		err := c.CommitMove(ctx, mover.ID, board.DepartmentFinishing)
		require.Error(t, err)
		assert.True(t, IsPersistenceError(err))

		got, _ := b.Get(mover.ID)
		assert.Equal(t, board.DepartmentPlanning, got.Department, "failed move must be reverted locally")
	})
}

// Drop is fire-and-forget: the caller may cancel its context as soon as the
// call returns without aborting the write already in flight.
func TestDrop_PersistsAfterCallerCancel(t *testing.T) {
	b, store, _ := setupBoard(t)

	task := seedTask(t, store, "u1", board.DepartmentPlanning, "Cut fabric panel A")
	require.NoError(t, b.Load(context.Background()))

	c := NewDragController(b, store)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.DragStart(task.ID))
	require.NoError(t, c.Drop(ctx, board.DepartmentCutting))
	cancel()
	c.Wait()

	select {
	case err := <-c.Errors():
		t.Fatalf("unexpected persistence failure after caller cancel: %v", err)
	default:
	}

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, board.DepartmentCutting, stored.Department)
}

func TestDrop_ReportsAsyncFailure(t *testing.T) {
	b, store, mr := setupBoard(t)
	ctx := context.Background()

	task := seedTask(t, store, "u1", board.DepartmentPlanning, "Cut fabric panel A")
	require.NoError(t, b.Load(ctx))

	c := NewDragController(b, store)

	require.NoError(t, c.DragStart(task.ID))
	mr.Close()
	require.NoError(t, c.Drop(ctx, board.DepartmentCutting))
	c.Wait()

	select {
	case err := <-c.Errors():
		assert.True(t, IsPersistenceError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a persistence error report")
	}

	got, _ := b.Get(task.ID)
	assert.Equal(t, board.DepartmentPlanning, got.Department, "failed async move must be reverted")
}
