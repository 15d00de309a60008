package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ent0n29/studychat/internal/app"
	"github.com/ent0n29/studychat/internal/config"
	"github.com/ent0n29/studychat/internal/logging"
)

var versionInfo = struct {
	Version string
	Commit  string
}{Version: "dev", Commit: "none"}

func SetVersion(version, commit string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
}

// buildApp is swapped in tests to share one in-memory store across commands.
var buildApp = app.Build

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studychat",
		Short: "Research-study chat relay",
		Long: `studychat relays participant chat turns to a completion model and records
per-session transcripts for a two-session weekend-planning study.

Configuration comes from the environment (and a .env file when present).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		NewServeCmd(),
		NewMigrateCmd(),
		NewTranscriptCmd(),
		NewMemoryCmd(),
		NewVersionCmd(),
	)
	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "studychat %s (%s)\n", versionInfo.Version, versionInfo.Commit)
		},
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, logging.Init(cfg.Env), nil
}

// withApp wires the service graph, runs fn, and releases resources afterwards.
func withApp(ctx context.Context, fn func(*app.BuildResult) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			log.Warn("cleanup failed", "error", err)
		}
	}()
	return fn(res)
}
