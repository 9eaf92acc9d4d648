package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"projectdash/internal/auth"
	"projectdash/internal/blob"
	"projectdash/internal/config"
	"projectdash/internal/events"
	"projectdash/internal/logging"
	"projectdash/internal/server"
	"projectdash/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and serve the frontend",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "HTTP listen address (default :8080)")
	f.String("db-path", "", "path to the sqlite database file")
	f.String("static-dir", "", "directory with the built frontend")
	f.String("upload-dir", "", "directory for uploaded screenshots")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-file", "", "also write logs to this rotated file")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := logging.New(os.Stdout, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	sessions, err := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	blobs, err := blob.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return fmt.Errorf("prepare upload dir: %w", err)
	}

	srv := server.New(store, sessions, blobs, events.NewHub(logger), logger, server.Options{
		StaticDir:   cfg.StaticDir,
		UploadDir:   cfg.UploadDir,
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return listenAndServe(httpServer, logger, quit)
}

// listenAndServe serves until a signal arrives on quit, then shuts down
// gracefully. A listener failure, such as the port being taken, is returned
// at once.
func listenAndServe(httpServer *http.Server, logger *slog.Logger, quit <-chan os.Signal) error {
	failed := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
