package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/config"
	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/pkg/board"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream board change events",
	Long: `Subscribe to the workspace change feed and print every event as it
arrives, until interrupted.

The feed is unfiltered: every insert, update, and delete by every identity
in the workspace is shown. Events carry the changed task's ID and the
operation type.

Examples:
  stitch watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error("failed to load configuration", err.Error(), nil)
	}

	store, err := board.NewStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Workspace)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return printer.Error("failed to connect to board", err.Error(), nil)
	}

	sub, err := store.SubscribeTaskEvents(ctx)
	if err != nil {
		return printer.Error("failed to subscribe to change feed", err.Error(), nil)
	}
	defer sub.Close()

	printer.Info("Watching workspace '%s' (Ctrl+C to stop)...\n", cfg.Workspace)

	for {
		select {
		case <-ctx.Done():
			printer.Info("\nStopped.\n")
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				printer.Warning("change feed closed\n")
				return nil
			}
			printer.Printf("%-6s  %s\n", ev.Op, ev.TaskID)

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("feed error: %v\n", err)
		}
	}
}
