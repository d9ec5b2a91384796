package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/threadline/stitchboard/internal/config"
	"github.com/threadline/stitchboard/internal/printer"
	"github.com/threadline/stitchboard/internal/session"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Stitch - collaborative garment production board",
	Long: `Stitch is a collaborative task board for garment production pipelines.

Tasks move through five fixed departments (planning, cutting, stitching,
washing, finishing) on a board shared by every session in a workspace.
Mutations apply locally first and are pushed to every other session
through a Redis-backed change feed.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to stitchboard.yml")
}

// openSession loads the config and opens a board session against it.
// Every subcommand goes through here so store lifecycle and error wording
// stay consistent.
func openSession(ctx context.Context) (*session.Session, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{
				"Create a stitchboard.yml in the current directory",
				fmt.Sprintf("Point --config at an existing file (looked for: %s)", configPath),
			},
		)
	}

	sess, err := session.Open(ctx, &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Workspace, cfg.Identity, cfg.Directory())
	if err != nil {
		return nil, nil, printer.Error(
			"failed to connect to board",
			err.Error(),
			[]string{fmt.Sprintf("Check that Redis is reachable at %s", cfg.Redis.Addr)},
		)
	}

	return sess, cfg, nil
}
