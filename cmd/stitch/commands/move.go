package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/internal/resolver"
	"github.com/threadline/stitchboard/pkg/board"
)

var moveCmd = &cobra.Command{
	Use:   "move <task> <department>",
	Short: "Move a task to another department",
	Long: `Move a task to another pipeline department.

The move applies to the local board immediately and is persisted to the
shared store; other sessions pick it up through the change feed. Moving a
task onto the department it is already in is a no-op.

The task may be given as a full ID or a unique prefix of at least 6
characters.

Examples:
  stitch move a1b2c3d4 cutting
  stitch move a1b2c3d4-0000-4000-8000-000000000000 finishing`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dept := board.Department(args[1])
	if err := dept.Validate(); err != nil {
		return printer.Error(
			"invalid department",
			err.Error(),
			[]string{fmt.Sprintf("Valid departments: %v", board.Departments)},
		)
	}

	sess, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	taskID, err := resolver.ResolveTaskID(ctx, sess.Store(), args[0])
	if err != nil {
		return printer.Error("task not found", err.Error(), nil)
	}

	if err := sess.Drag().CommitMove(ctx, taskID, dept); err != nil {
		return printer.Error("failed to move task", err.Error(), nil)
	}

	printer.Success("Moved task %s to %s\n", shortID(taskID), dept)
	return nil
}
