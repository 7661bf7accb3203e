// Package app assembles the catalog dependency graph from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vitrine/catalog/internal/catalog"
	"github.com/vitrine/catalog/internal/config"
	"github.com/vitrine/catalog/internal/db"
	"github.com/vitrine/catalog/internal/storage"
)

// App holds the long-lived clients shared by every request.
type App struct {
	Service *catalog.Service
	Store   storage.Storage
	// UploadDir is set for the disk variant only; it is served under /uploads.
	UploadDir string

	closers []func()
}

// New connects the repository and the image store selected by cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{}

	repo, err := a.openRepository(ctx, cfg, log.Named("db"))
	if err != nil {
		a.Close()
		return nil, err
	}

	variant := catalog.VariantDisk
	switch cfg.StorageDriver {
	case config.StorageDriverMinio:
		store, err := storage.NewMinioStorage(ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
			log.Named("storage"),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("object storage init failed: %w", err)
		}
		a.Store = store
		variant = catalog.VariantObject
	default:
		store, err := storage.NewDiskStorage(cfg.UploadDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("disk storage init failed: %w", err)
		}
		a.Store = store
		a.UploadDir = store.Root()
	}

	a.Service = catalog.NewService(repo, a.Store, variant, log.Named("catalog"))
	log.Info("catalog ready",
		zap.String("variant", string(variant)),
		zap.String("db_driver", cfg.DBDriver),
	)
	return a, nil
}

func (a *App) openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalog.Repository, error) {
	if cfg.DBDriver == config.DBDriverSQLite {
		sdb, err := db.OpenSQLite(cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.closers = append(a.closers, func() { _ = sdb.Close() })
		if err := db.MigrateSQLite(sdb, log); err != nil {
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		return catalog.NewSQLiteRepository(sdb), nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return catalog.NewPostgresRepository(pool), nil
}

// Close releases database handles in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
