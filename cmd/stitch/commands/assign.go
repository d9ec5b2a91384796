package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/internal/resolver"
)

var assignClear bool

var assignCmd = &cobra.Command{
	Use:   "assign <task> [identity]",
	Short: "Assign a task to an identity",
	Long: `Assign a task to an identity from the workspace directory, or clear the
assignment with --clear. Assignment changes are open to any authenticated
identity, not just the task's creator.

Examples:
  stitch assign a1b2c3d4 priya
  stitch assign a1b2c3d4 --clear`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().BoolVar(&assignClear, "clear", false, "Clear the assignment")
	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	assignee := ""
	if !assignClear {
		if len(args) < 2 {
			return printer.Error(
				"missing identity",
				"Provide an identity ID to assign, or use --clear.",
				nil,
			)
		}
		assignee = args[1]
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

	if _, err := sess.Assign(ctx, taskID, assignee); err != nil {
		return printer.Error("failed to assign task", err.Error(), nil)
	}

	if assignee == "" {
		printer.Success("Cleared assignment on task %s\n", shortID(taskID))
	} else {
		printer.Success("Assigned task %s to %s\n", shortID(taskID), assignee)
	}
	return nil
}
