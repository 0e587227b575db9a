package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/knjiznica/internal/api"
	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/store"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, creating the database on first run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Addr = addr
			}
			return c.serve(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address (env KNJIZNICA_ADDR)")
	return cmd
}

// ensureDatabase creates the database and its admin account on first run
// and writes the generated credentials to out.
func (c *cli) ensureDatabase(ctx context.Context, out io.Writer) error {
	if _, err := os.Stat(c.cfg.DBPath); !errors.Is(err, os.ErrNotExist) {
		return nil
	}

	database, password, err := initDatabase(ctx, c.cfg.DBPath, c.cfg.AdminEmail, c.cfg.AdminName)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	database.Close()

	printInitResult(out, c.cfg.DBPath, c.cfg.AdminEmail, password)
	fmt.Fprintln(out)
	return nil
}

func (c *cli) serve(ctx context.Context, out io.Writer) error {
	if err := c.ensureDatabase(ctx, out); err != nil {
		return err
	}

	database, err := db.Open(c.cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return err
	}
	slog.Info("database ready", "path", c.cfg.DBPath)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading jwt secret: %w", err)
	}

	server := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           api.LoggingMiddleware(api.NewRouter(database, jwtSecret)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", c.cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
