// Package app wires configuration into a ready audit service. Both the HTTP
// server and the CLI build their dependencies through it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adoptimizer/internal/cache"
	"github.com/ignite/adoptimizer/internal/config"
	"github.com/ignite/adoptimizer/internal/datanorm"
	"github.com/ignite/adoptimizer/internal/pkg/distlock"
	"github.com/ignite/adoptimizer/internal/pkg/logger"
	"github.com/ignite/adoptimizer/internal/repository/sqlstore"
	"github.com/ignite/adoptimizer/internal/segmentation"
	"github.com/ignite/adoptimizer/internal/service/audit"
	"github.com/ignite/adoptimizer/internal/storage"
)

// App holds the wired collaborators. Store, Redis and Cache are nil when
// not configured.
type App struct {
	Config  *config.Config
	Service *audit.Service
	Store   *sqlstore.Store
	Redis   *redis.Client
	Cache   *cache.ResultCache
	Archive *storage.Storage
}

// ConfigureLogging applies the log section to the package logger.
func ConfigureLogging(cfg config.LogConfig) error {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetRedactPII(cfg.ShouldRedact())
	return nil
}

// Build connects to the configured backends and assembles the service.
// Redis failures are logged and leave caching disabled; database and storage
// failures are fatal.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.Database.URL != "" {
		store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.URL, sqlstore.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		a.Store = store
		logger.Info("audit store connected", "driver", cfg.Database.Driver, "host", extractHost(cfg.Database.URL))
	} else {
		logger.Warn("database not configured (DATABASE_URL not set); audit history disabled")
	}

	if cfg.Redis.URL != "" {
		a.Redis = connectRedis(ctx, cfg.Redis.URL)
		if a.Redis != nil {
			a.Cache = cache.New(a.Redis, cfg.Redis.CacheTTL())
		}
	}

	archive, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Archive = archive

	opts := []audit.Option{
		audit.WithArchive(archive),
		audit.WithMaxBytes(cfg.Ingest.MaxFileBytes),
		audit.WithLocks(a.lockFactory(cfg.Redis.LockTTL()), cfg.Redis.LockTTL()),
	}
	if a.Cache != nil {
		opts = append(opts, audit.WithCache(a.Cache))
	}

	var repo audit.Repository
	if a.Store != nil {
		repo = a.Store
	}
	a.Service = audit.NewService(
		segmentation.New(cfg.Segmentation),
		datanorm.NewNormalizer(cfg.Ingest.Synonyms, cfg.Ingest.MaxRows),
		repo,
		opts...,
	)
	return a, nil
}

// lockFactory prefers Redis locks, then Postgres advisory locks, then an
// in-process lock.
func (a *App) lockFactory(ttl time.Duration) audit.LockFactory {
	var db *sql.DB
	if a.Store != nil && a.Config.Database.Driver == sqlstore.DriverPostgres {
		db = a.Store.DB().DB
	}
	return func(key string) distlock.DistLock {
		return distlock.NewLock(a.Redis, db, key, ttl)
	}
}

func connectRedis(ctx context.Context, url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed; result cache disabled", "addr", opts.Addr, "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", opts.Addr)
	return client
}

// Close releases every open connection.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}

// extractHost returns the host part of a DSN for logging without
// credentials.
func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		if strings.Contains(dsn, "://") {
			return "(unknown)"
		}
		return dsn
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}
