package container

import (
	"context"
	"time"

	"clinstat/adapters/memory"
	"clinstat/adapters/postgres"
	"clinstat/app"
	"clinstat/internal"
	"clinstat/internal/config"
	"clinstat/internal/errors"
	"clinstat/internal/migration"
	"clinstat/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds the process dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Plan   config.AnalysisPlan
	Logger *internal.Logger

	// Infrastructure, nil when persistence is disabled
	DB *sqlx.DB

	Store    ports.ReportStore
	Pipeline *app.PipelineService
}

// New creates a container with an in-memory report store. Call InitWithDatabase to
// persist reports in postgres instead.
func New(cfg *config.Config, plan config.AnalysisPlan, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.ConfigInvalid("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	store, err := memory.NewReportStore(cfg.Server.CacheSize)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Plan: plan, Logger: logger}
	if err := c.setStore(store); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the configured database, checks it, and runs migrations
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

// InitWithDatabase switches report storage to postgres behind an LRU read cache
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.ConfigInvalid("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database connection test failed", err)
	}
	c.DB = db

	cached, err := memory.NewCachingStore(postgres.NewReportRepository(db), c.Config.Server.CacheSize)
	if err != nil {
		return err
	}
	if err := c.setStore(cached); err != nil {
		return err
	}
	c.Logger.Info("Reports persisted to postgres (cache size %d)", c.Config.Server.CacheSize)
	return nil
}

func (c *Container) setStore(store ports.ReportStore) error {
	pipeline, err := app.NewPipelineService(c.Plan, store, c.Logger)
	if err != nil {
		return err
	}
	c.Store = store
	c.Pipeline = pipeline
	return nil
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
