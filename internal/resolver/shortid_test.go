package resolver

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

func setupStore(t *testing.T) *board.Store {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store, err := board.NewStore(&redis.Options{Addr: mr.Addr()}, "test-workspace")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func insertTaskWithID(t *testing.T, store *board.Store, id string) {
	t.Helper()
	task := &board.Task{
		ID:          id,
		Title:       "task " + id[:8],
		Department:  board.DepartmentPlanning,
		Status:      board.StatusTodo,
		Priority:    board.PriorityMedium,
		CreatedBy:   "u1",
		CreatedAtMs: time.Now().UnixMilli(),
	}
	require.NoError(t, store.InsertTask(context.Background(), task))
}

func TestResolveTaskID_FullUUID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := "a1b2c3d4-1111-4222-8333-444455556666"
	insertTaskWithID(t, store, id)

	resolved, err := ResolveTaskID(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestResolveTaskID_FullUUIDNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := ResolveTaskID(context.Background(), store, "a1b2c3d4-1111-4222-8333-444455556666")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestResolveTaskID_ShortPrefix(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := "a1b2c3d4-1111-4222-8333-444455556666"
	insertTaskWithID(t, store, id)
	insertTaskWithID(t, store, "ffff0000-1111-4222-8333-444455556666")

	resolved, err := ResolveTaskID(ctx, store, "a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestResolveTaskID_TooShort(t *testing.T) {
	store := setupStore(t)

	_, err := ResolveTaskID(context.Background(), store, "a1b2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 characters")
}

func TestResolveTaskID_NoMatch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	insertTaskWithID(t, store, "a1b2c3d4-1111-4222-8333-444455556666")

	_, err := ResolveTaskID(ctx, store, "deadbe")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestResolveTaskID_Ambiguous(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	insertTaskWithID(t, store, "a1b2c3d4-1111-4222-8333-444455556666")
	insertTaskWithID(t, store, "a1b2c3d4-9999-4888-8777-666655554444")

	_, err := ResolveTaskID(ctx, store, "a1b2c3")
	require.Error(t, err)
	assert.True(t, IsAmbiguousError(err))

	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
}
