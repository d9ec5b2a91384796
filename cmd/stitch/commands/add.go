package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/internal/session"
	"github.com/threadline/stitchboard/pkg/board"
)

var (
	addTitle    string
	addDesc     string
	addDept     string
	addPriority string
	addAsset    string
	addAssignee string
	addDue      string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new task on the board",
	Long: `Create a new task on the board.

New tasks always start with status 'todo' and are created by the identity
configured in stitchboard.yml. Department defaults to 'planning' and
priority to 'medium'.

Examples:
  # Minimal task in planning
  stitch add --title "Cut fabric panel A"

  # Full task, referencing a known asset and assignee
  stitch add --title "Hem trousers" --dept stitching --priority high \
    --asset FAB-102 --assignee priya --due 2026-09-15`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Task title (required)")
	addCmd.Flags().StringVar(&addDesc, "desc", "", "Task description")
	addCmd.Flags().StringVar(&addDept, "dept", "", "Department (planning, cutting, stitching, washing, finishing)")
	addCmd.Flags().StringVar(&addPriority, "priority", "", "Priority (low, medium, high)")
	addCmd.Flags().StringVar(&addAsset, "asset", "", "Linked asset code")
	addCmd.Flags().StringVar(&addAssignee, "assignee", "", "Assignee identity ID")
	addCmd.Flags().StringVar(&addDue, "due", "", "Due date (YYYY-MM-DD)")
	addCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var dueMs int64
	if addDue != "" {
		due, err := time.Parse("2006-01-02", addDue)
		if err != nil {
			return printer.Error(
				"invalid due date",
				fmt.Sprintf("Could not parse %q: expected YYYY-MM-DD.", addDue),
				nil,
			)
		}
		dueMs = due.UnixMilli()
	}

	sess, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	task, err := sess.Composer().Submit(ctx, session.Draft{
		Title:       addTitle,
		Description: addDesc,
		AssetRef:    addAsset,
		Department:  board.Department(addDept),
		Priority:    board.Priority(addPriority),
		AssigneeID:  addAssignee,
		DueDateMs:   dueMs,
	})
	if err != nil {
		if session.IsValidationError(err) {
			return printer.Error("invalid task", err.Error(), nil)
		}
		return printer.Error("failed to create task", err.Error(), nil)
	}

	printer.Success("Created task %s in %s\n", shortID(task.ID), task.Department)
	return nil
}

// shortID truncates a task UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
