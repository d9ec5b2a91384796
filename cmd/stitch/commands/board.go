package commands

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/pkg/board"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Render the board, one column per department",
	Long: `Render the current board: one column per pipeline department, with
per-department task counts, in production order.

Each task shows its short ID, priority, title, creator, and (when set)
assignee, linked asset and due date.`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sess, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	counts := sess.Board().Counts()
	for _, dept := range board.Departments {
		printer.Heading("%s (%d)\n", strings.ToUpper(string(dept)), counts[dept])

		column := sess.Board().Column(dept)
		if len(column) == 0 {
			printer.Printf("  -\n")
		}
		for _, view := range column {
			printer.Printf("  %s  [%s] %s", shortID(view.Task.ID), view.Task.Priority, view.Task.Title)
			printer.Printf("  by %s", view.Creator.DisplayName)
			if view.Assignee != nil {
				printer.Printf("  @%s", view.Assignee.DisplayName)
			}
			if view.Asset != nil {
				printer.Printf("  (%s)", view.Asset.Name)
			} else if view.Task.AssetRef != "" {
				printer.Printf("  (%s)", view.Task.AssetRef)
			}
			if view.Task.DueDateMs > 0 {
				printer.Printf("  due %s", time.UnixMilli(view.Task.DueDateMs).Format("2006-01-02"))
			}
			printer.Printf("\n")
		}
		printer.Printf("\n")
	}

	return nil
}
