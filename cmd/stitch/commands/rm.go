package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/internal/resolver"
	"github.com/threadline/stitchboard/internal/session"
)

var rmCmd = &cobra.Command{
	Use:   "rm <task>",
	Short: "Delete a task (creator only)",
	Long: `Delete a task from the board.

Only the identity that created a task may delete it. Any other identity is
rejected locally, before a store call is made, and the task is left
untouched.

Examples:
  stitch rm a1b2c3d4`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sess, cfg, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	taskID, err := resolver.ResolveTaskID(ctx, sess.Store(), args[0])
	if err != nil {
		return printer.Error("task not found", err.Error(), nil)
	}

	if err := sess.Delete(ctx, taskID); err != nil {
		if session.IsPermissionError(err) {
			return printer.Error(
				"permission denied",
				err.Error(),
				[]string{"Ask the task's creator to delete it, or change identity in " + configPath},
			)
		}
		return printer.Error("failed to delete task", err.Error(), nil)
	}

	printer.Success("Deleted task %s (as %s)\n", shortID(taskID), cfg.Identity)
	return nil
}
