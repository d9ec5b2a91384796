package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by workspace name so
// multiple boards can safely coexist on a single Redis server.
//
// Key pattern: stitch:{workspace}:{entity}
// Channel pattern: stitch:{workspace}:{event_type}_events

// TaskKey returns the Redis key for a task hash.
// Pattern: stitch:{workspace}:task:{task_id}
func TaskKey(workspace, taskID string) string {
	return fmt.Sprintf("stitch:%s:task:%s", workspace, taskID)
}

// TaskIndexKey returns the Redis key for the SET holding all live task IDs
// in the workspace.
// Pattern: stitch:{workspace}:tasks
func TaskIndexKey(workspace string) string {
	return fmt.Sprintf("stitch:%s:tasks", workspace)
}

// TaskEventsChannel returns the Pub/Sub channel name for task change events.
// Pattern: stitch:{workspace}:task_events
func TaskEventsChannel(workspace string) string {
	return fmt.Sprintf("stitch:%s:task_events", workspace)
}
