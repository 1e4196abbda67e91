package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bathingbrands/catalog-scraper/internal/database"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the outbox relay on its own",
	Long: `Poll the outbox table and publish pending events to the Redis
stream. Use this to run the relay as a separate process from the API.`,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(relayCmd)

	flags := relayCmd.Flags()
	flags.Duration("poll-interval", 5*time.Second, "how often to poll the outbox")
	flags.Int("batch-size", 100, "events processed per poll")
}

func runRelay(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	redisClient := app.redisClient()
	defer redisClient.Close()

	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	relay := database.NewRelay(app.db, redisClient, app.logger, database.RelayConfig{
		PollInterval: pollInterval,
		BatchSize:    batchSize,
	})

	app.logger.Info("starting outbox relay", "poll_interval", pollInterval, "batch_size", batchSize)
	if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
