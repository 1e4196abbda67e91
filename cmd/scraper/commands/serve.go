package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bathingbrands/catalog-scraper/internal/api"
	"github.com/bathingbrands/catalog-scraper/internal/database"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and outbox relay",
	Long: `Start the HTTP API together with the outbox relay. The API exposes
health, run status, product counts, a single-URL test scrape, and
Prometheus metrics. The relay moves outbox events onto the Redis
stream in the background.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	redisClient := app.redisClient()
	defer redisClient.Close()

	relay := database.NewRelay(app.db, redisClient, app.logger, database.RelayConfig{})
	go func() {
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error("relay stopped", "error", err)
		}
	}()

	handlers := api.NewHandlers(app.session, app.store, relay, app.logger)
	router := handlers.Router(app.metrics.Handler())

	addr := fmt.Sprintf("%s:%s", app.cfg.Server.Host, app.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.cfg.Server.ReadTimeout,
		WriteTimeout: app.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("server shutdown failed", "error", err)
		}
	}()

	app.logger.Info("starting server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
