package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/bathingbrands/catalog-scraper/internal/config"
	"github.com/bathingbrands/catalog-scraper/internal/database"
	"github.com/bathingbrands/catalog-scraper/internal/extract"
	"github.com/bathingbrands/catalog-scraper/internal/fetcher"
	"github.com/bathingbrands/catalog-scraper/internal/hierarchy"
	"github.com/bathingbrands/catalog-scraper/internal/observability"
	"github.com/bathingbrands/catalog-scraper/internal/orchestrator"
	"github.com/bathingbrands/catalog-scraper/internal/reconcile"
)

// app holds the wired components shared by the CLI commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	db      *database.DB
	store   *database.ProductStore
	session *orchestrator.Session
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := database.NewProductStore(db, cfg.Redis.Stream)
	metrics := observability.New()

	client := fetcher.New(fetcher.Options{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.RequestTimeout,
		MaxAttempts:  cfg.Scraper.MaxAttempts,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
	}, logger)

	extractor := extract.New(cfg.Scraper.BaseURL, cfg.Scraper.KnownBrands, logger)
	discoverer := hierarchy.New(client, cfg.Scraper.BaseURL, cfg.Scraper.KnownBrands, logger)
	reconciler := reconcile.New(store, logger)
	session := orchestrator.New(client, discoverer, extractor, reconciler, metrics, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		db:      db,
		store:   store,
		session: session,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func (a *app) redisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
}
