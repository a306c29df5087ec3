package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/kurator/internal/repositories"
	"github.com/desertthunder/kurator/internal/server"
	"github.com/desertthunder/kurator/internal/tasks"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 15 * time.Second

// Serve runs the HTTP service until ctx is cancelled, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := int(cmd.Int("port")); port > 0 {
		config.Server.Port = port
	}
	if err := config.Validate(); err != nil {
		return err
	}

	pipeline, err := r.pipeline(config)
	if err != nil {
		return err
	}

	store, err := repositories.NewSessionStore(config.Sessions, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	router := server.New(server.Deps{
		Analyzer:       pipeline,
		Batches:        tasks.NewBatchCollector(store, r.logger),
		AllowedOrigins: config.Server.AllowedOrigins,
		Logger:         r.logger,
	})
	srv := server.NewHTTPServer(config.Server, router)

	errs := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", srv.Addr, "sessions", config.Sessions.Driver, "model", config.Credentials.OpenAI.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
