package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store provides workspace-scoped Redis operations for the board.
// All keys and channels are automatically namespaced with the workspace name.
// The store owns its Redis connection: it is constructed explicitly at
// session start and closed at session end, never obtained from process-wide
// state. It is safe for concurrent use from multiple goroutines.
type Store struct {
	rdb       *redis.Client
	workspace string
}

// NewStore creates a new board store for the specified workspace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - workspace: board workspace identifier (must not be empty)
//
// Returns an error if workspace is empty.
func NewStore(redisOpts *redis.Options, workspace string) (*Store, error) {
	if workspace == "" {
		return nil, fmt.Errorf("workspace name cannot be empty")
	}

	return &Store{
		rdb:       redis.NewClient(redisOpts),
		workspace: workspace,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the store should not be used.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Workspace returns the workspace name this store is scoped to.
func (s *Store) Workspace() string {
	return s.workspace
}

// InsertTask writes a new task to Redis and publishes an insert event.
// Validates the task before writing. The task is stored as a Redis hash at
// stitch:{workspace}:task:{id} and its ID is added to the workspace index
// set. Writing the same task twice is safe.
func (s *Store) InsertTask(ctx context.Context, t *Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	key := TaskKey(s.workspace, t.ID)
	if err := s.rdb.HSet(ctx, key, TaskToHash(t)).Err(); err != nil {
		return fmt.Errorf("failed to write task to Redis: %w", err)
	}

	if err := s.rdb.SAdd(ctx, TaskIndexKey(s.workspace), t.ID).Err(); err != nil {
		return fmt.Errorf("failed to index task: %w", err)
	}

	return s.publishEvent(ctx, ChangeEvent{Op: ChangeInsert, TaskID: t.ID})
}

// GetTask retrieves a task by ID.
// Returns (nil, redis.Nil) if the task doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (s *Store) GetTask(ctx context.Context, taskID string) (*Task, error) {
	key := TaskKey(s.workspace, taskID)

	hashData, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	task, err := HashToTask(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize task: %w", err)
	}

	return task, nil
}

// TaskExists checks if a task exists without fetching it.
func (s *Store) TaskExists(ctx context.Context, taskID string) (bool, error) {
	key := TaskKey(s.workspace, taskID)
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return exists > 0, nil
}

// Patch describes a partial update to a task. Nil fields are left untouched.
// CreatedBy, Status, and CreatedAtMs are deliberately not patchable: the
// creator and creation time are immutable, and status is never mutated by
// any board path after creation.
type Patch struct {
	Title       *string
	Description *string
	AssetRef    *string
	Department  *Department
	Priority    *Priority
	AssigneeID  *string
	DueDateMs   *int64
	Position    *int
}

// apply copies the patch's set fields onto the task.
func (p Patch) apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssetRef != nil {
		t.AssetRef = *p.AssetRef
	}
	if p.Department != nil {
		t.Department = *p.Department
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssigneeID != nil {
		t.AssigneeID = *p.AssigneeID
	}
	if p.DueDateMs != nil {
		t.DueDateMs = *p.DueDateMs
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
}

// UpdateTask applies a field patch to an existing task and publishes an
// update event. Returns the updated task.
//
// Returns (nil, redis.Nil) if the task doesn't exist, so a patch against a
// concurrently deleted row surfaces as not-found rather than resurrecting
// the row. The read-modify-write is not transactional: the store's
// single-row write atomicity is the only consistency boundary, and
// concurrent patches to the same row resolve last-write-wins.
func (s *Store) UpdateTask(ctx context.Context, taskID string, patch Patch) (*Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	patch.apply(task)

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task after patch: %w", err)
	}

	key := TaskKey(s.workspace, taskID)
	if err := s.rdb.HSet(ctx, key, TaskToHash(task)).Err(); err != nil {
		return nil, fmt.Errorf("failed to update task in Redis: %w", err)
	}

	if err := s.publishEvent(ctx, ChangeEvent{Op: ChangeUpdate, TaskID: taskID}); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteTask removes a task from Redis and publishes a delete event.
// Deleting a task that doesn't exist is a no-op (no event is published).
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	key := TaskKey(s.workspace, taskID)

	removed, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete task from Redis: %w", err)
	}

	if err := s.rdb.SRem(ctx, TaskIndexKey(s.workspace), taskID).Err(); err != nil {
		return fmt.Errorf("failed to deindex task: %w", err)
	}

	if removed == 0 {
		return nil
	}

	return s.publishEvent(ctx, ChangeEvent{Op: ChangeDelete, TaskID: taskID})
}

// ListTasks retrieves every task in the workspace. Tasks deleted between the
// index read and the per-row fetch are skipped, not errors.
func (s *Store) ListTasks(ctx context.Context) ([]*Task, error) {
	ids, err := s.rdb.SMembers(ctx, TaskIndexKey(s.workspace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list task IDs: %w", err)
	}

	tasks := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetTask(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// FindTaskIDs returns the IDs of all tasks whose ID starts with the given
// prefix. Used by short-ID resolution.
func (s *Store) FindTaskIDs(ctx context.Context, prefix string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, TaskIndexKey(s.workspace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan task IDs: %w", err)
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}

	return matches, nil
}

// publishEvent publishes a change event to the workspace task-events channel.
func (s *Store) publishEvent(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	channel := TaskEventsChannel(s.workspace)
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to task change
// events. Caller must call Close() when done to clean up resources.
// Events carry the changed row's ID and operation type, not the full row.
type Subscription struct {
	events <-chan ChangeEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of change events.
// The channel is closed when the subscription is closed, the context is
// cancelled, or the underlying Pub/Sub connection drops.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeTaskEvents subscribes to task change events for this workspace.
// The subscription is unfiltered: every mutation by every identity is
// delivered to every subscriber. Caller must call subscription.Close() when
// done. Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (s *Store) SubscribeTaskEvents(ctx context.Context) (*Subscription, error) {
	channel := TaskEventsChannel(s.workspace)
	pubsub := s.rdb.Subscribe(ctx, channel)

	// Confirm the subscription before handing it out so a dead server
	// fails here rather than as a silently empty feed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan ChangeEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				if err := ev.Op.Validate(); err != nil {
					select {
					case errorsChan <- fmt.Errorf("bad change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if GetTask or UpdateTask returned
// "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
