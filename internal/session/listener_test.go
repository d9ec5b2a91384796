package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/stitchboard/pkg/board"
)

// setupListener wires a listener to a fresh board and a second store acting
// as the remote writer.
func setupListener(t *testing.T) (*Board, *board.Store) {
	b, st, _ := setupBoard(t)

	l := NewListener(st, b)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { l.Close() })

	return b, st
}

func TestListener_MergesRemoteInsert(t *testing.T) {
	b, st := setupListener(t)

	task := seedTask(t, st, "u1", board.DepartmentPlanning, "remote insert")

	require.Eventually(t, func() bool {
		_, ok := b.Get(task.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListener_MergesRemoteUpdate(t *testing.T) {
	b, st := setupListener(t)
	ctx := context.Background()

	task := seedTask(t, st, "u1", board.DepartmentPlanning, "remote update")
	require.Eventually(t, func() bool {
		_, ok := b.Get(task.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	dept := board.DepartmentStitching
	_, err := st.UpdateTask(ctx, task.ID, board.Patch{Department: &dept})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := b.Get(task.ID)
		return ok && got.Department == board.DepartmentStitching
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListener_MergesRemoteDelete(t *testing.T) {
	b, st := setupListener(t)
	ctx := context.Background()

	task := seedTask(t, st, "u1", board.DepartmentCutting, "remote delete")
	require.Eventually(t, func() bool {
		_, ok := b.Get(task.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, st.DeleteTask(ctx, task.ID))

	require.Eventually(t, func() bool {
		_, ok := b.Get(task.ID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListener_Close(t *testing.T) {
	b, st, _ := setupBoard(t)
	ctx := context.Background()

	l := NewListener(st, b)
	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Close())

	t.Run("close is idempotent", func(t *testing.T) {
		assert.NoError(t, l.Close())
	})

	t.Run("events after close are not applied", func(t *testing.T) {
		task := seedTask(t, st, "u1", board.DepartmentPlanning, "post close")

		time.Sleep(100 * time.Millisecond)
		_, ok := b.Get(task.ID)
		assert.False(t, ok)
	})
}

func TestListener_CloseBeforeStart(t *testing.T) {
	b, st, _ := setupBoard(t)

	l := NewListener(st, b)
	assert.NoError(t, l.Close())
}

// A connection drop is invisible on the pub/sub channel itself, so the
// listener has to notice the outage, resubscribe, and reload to pick up rows
// mutated while it was disconnected.
func TestListener_ReloadsAfterFeedOutage(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()

	store, err := board.NewStore(&redis.Options{Addr: addr}, "test-workspace")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	b := NewBoard(store, testDirectory())
	require.NoError(t, b.Load(context.Background()))

	l := NewListener(store, b)
	l.pingInterval = 50 * time.Millisecond
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { l.Close() })

	// Server goes away; a replacement comes up on the same address.
	mr.Close()
	replacement := miniredis.NewMiniRedis()
	require.NoError(t, replacement.StartAddr(addr))
	t.Cleanup(replacement.Close)

	// Row written while this session was disconnected: it exists in the
	// store but its change event was never delivered here.
	missed := &board.Task{
		ID:          "a1b2c3d4-1111-4222-8333-444455556666",
		Title:       "written during outage",
		Department:  board.DepartmentCutting,
		Status:      board.StatusTodo,
		Priority:    board.PriorityMedium,
		CreatedBy:   "u1",
		CreatedAtMs: time.Now().UnixMilli(),
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()
	require.NoError(t, rdb.HSet(ctx, board.TaskKey("test-workspace", missed.ID), board.TaskToHash(missed)).Err())
	require.NoError(t, rdb.SAdd(ctx, board.TaskIndexKey("test-workspace"), missed.ID).Err())

	// The post-resubscribe reload must surface the missed row.
	require.Eventually(t, func() bool {
		_, ok := b.Get(missed.ID)
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	// And the re-established feed delivers new events again.
	live := seedTask(t, store, "u1", board.DepartmentPlanning, "after recovery")
	require.Eventually(t, func() bool {
		_, ok := b.Get(live.ID)
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestListener_StartFailsWithoutServer(t *testing.T) {
	b, st, mr := setupBoard(t)
	mr.Close()

	l := NewListener(st, b)
	err := l.Start(context.Background())
	require.Error(t, err)

	var subErr *SubscriptionError
	assert.ErrorAs(t, err, &subErr)
}
