package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/knjiznica/internal/config"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// newLogger builds the level-routing logger. If logPath is non-empty, all
// levels are also written to that file. The returned cleanup closes it.
func newLogger(stdout, stderr io.Writer, logPath string) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	cleanup := func() {}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdout = io.MultiWriter(stdout, f)
		stderr = io.MultiWriter(stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdout, opts),
		stderr: slog.NewTextHandler(stderr, opts),
	}
	return slog.New(handler), cleanup, nil
}

// cli carries the configuration shared by all subcommands.
type cli struct {
	cfg      *config.Config
	closeLog func()
}

func newRootCmd() *cobra.Command {
	c := &cli{closeLog: func() {}}

	var (
		envFile string
		dbPath  string
		logPath string
	)

	root := &cobra.Command{
		Use:           "knjiznica",
		Short:         "Library catalog and circulation tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("log") {
				cfg.LogPath = logPath
			}
			c.cfg = cfg

			logger, cleanup, err := newLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.LogPath)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			c.closeLog = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.closeLog()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "read configuration from this file instead of .env")
	pf.StringVarP(&dbPath, "db", "d", config.DefaultDB, "SQLite database path (env "+config.EnvDB+")")
	pf.StringVarP(&logPath, "log", "l", "", "also write logs to this file (env "+config.EnvLog+")")

	root.AddCommand(
		newServeCmd(c),
		newInitCmd(c),
		newUsersCmd(c),
		newMigrateCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
