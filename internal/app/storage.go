package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderguard/internal/storage/postgres"
)

// DocumentStore описывает хранилище, из которого конвейер читает филиалы, товары и платежи.
type DocumentStore interface {
	Stores() domain.Stores
	Ping(ctx context.Context) error
	Close() error
}

// OpenStorage открывает хранилище по cfg.StorageDriver.
func OpenStorage(ctx context.Context, cfg Config, logger *log.Entry) (DocumentStore, error) {
	if logger == nil {
		logger = log.WithField("component", "storage")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		if cfg.MemorySeedPath != "" {
			if err := store.LoadFile(cfg.MemorySeedPath); err != nil {
				return nil, fmt.Errorf("load memory seed: %w", err)
			}
		}
		logger.WithFields(log.Fields{
			"driver": StorageDriverMemory,
			"seed":   cfg.MemorySeedPath,
		}).Info("document store ready")
		return store, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN,
			postgres.WithMaxOpenConns(cfg.PostgresMaxOpenConns),
			postgres.WithOpTimeout(cfg.PostgresOpTimeout),
		)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.WithFields(log.Fields{
			"driver":       StorageDriverPostgres,
			"auto_migrate": cfg.PostgresAutoMigrate,
		}).Info("document store ready")
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// newSeedReloader возвращает воркер перечитывания seed или nil, если он не нужен.
func newSeedReloader(cfg Config, store DocumentStore, logger *log.Entry) *memory.ReloadWorker {
	memStore, ok := store.(*memory.Store)
	if !ok || cfg.MemorySeedPath == "" || cfg.MemorySeedReloadInterval <= 0 {
		return nil
	}
	return memory.NewReloadWorker(memStore, cfg.MemorySeedPath,
		memory.WithReloadInterval(cfg.MemorySeedReloadInterval),
		memory.WithReloadLogger(logger.WithField("layer", "seed-reload")),
	)
}
