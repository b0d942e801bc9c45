// Package companion assembles the deck store from configuration: the storage
// backend, the card catalog sources and the deck service on top of them.
package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/catalog"
	"github.com/ramonehamilton/TCG-Companion/internal/config"
	"github.com/ramonehamilton/TCG-Companion/internal/decks"
	"github.com/ramonehamilton/TCG-Companion/internal/storage"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/filestore"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/repository"
)

// Options configures Open.
type Options struct {
	// DataDir holds the default database or deck directory and is searched
	// for a relative catalog file. Default: the per-user config directory.
	DataDir string

	Logger   *slog.Logger
	Clock    func() time.Time
	OnChange func(decks.DeckEvent)
}

// App is an opened deck store with the resources backing it.
type App struct {
	Decks   *decks.Service
	Catalog *catalog.Index
	Config  *config.Config

	closers []func() error
}

// Open builds the storage backend named by cfg, loads the card catalog and
// returns the deck service. Catalog failures only produce a warning.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DataDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		opts.DataDir = dir
	}

	repo, closeRepo, err := OpenRepository(cfg, opts.DataDir, opts.Logger)
	if err != nil {
		return nil, err
	}

	loaders, err := CatalogLoaders(cfg, opts.DataDir)
	if err != nil {
		_ = closeRepo()
		return nil, err
	}
	index := catalog.Load(ctx, opts.Logger, loaders...)
	if warning := index.Warning(); warning != "" {
		opts.Logger.Warn("card catalog degraded", "warning", warning)
	}

	svc := decks.NewService(repo, index, decks.Options{
		Clock:     opts.Clock,
		Logger:    opts.Logger,
		OnChange:  opts.OnChange,
		MaxCopies: cfg.Decks.MaxCopies,
	})

	return &App{
		Decks:   svc,
		Catalog: index,
		Config:  cfg,
		closers: []func() error{closeRepo},
	}, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenRepository opens the deck repository selected by cfg.Storage.
// The returned function releases it.
func OpenRepository(cfg *config.Config, dataDir string, logger *slog.Logger) (repository.DeckRepository, func() error, error) {
	path := cfg.StoragePath(dataDir)

	switch cfg.Storage.Backend {
	case config.BackendJSON:
		store, err := filestore.New(path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open deck directory: %w", err)
		}
		logger.Info("using JSON deck storage", "dir", path)
		return store, func() error { return nil }, nil

	case config.BackendSQLite:
		dbConfig := storage.DefaultConfig(path)
		dbConfig.AutoMigrate = true
		db, err := storage.Open(dbConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open deck database: %w", err)
		}
		logger.Info("using SQLite deck storage", "path", path, "schema_version", db.SchemaVersion())
		return repository.NewDeckRepository(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// CatalogLoaders returns the catalog sources in preference order: the remote
// database when enabled, then the local snapshot file.
func CatalogLoaders(cfg *config.Config, dataDir string) ([]catalog.Loader, error) {
	var loaders []catalog.Loader

	if cfg.Catalog.RemoteEnabled {
		timeout, err := cfg.GetCatalogTimeout()
		if err != nil {
			return nil, fmt.Errorf("invalid catalog timeout: %w", err)
		}
		rateLimit, err := cfg.GetCatalogRateLimit()
		if err != nil {
			return nil, fmt.Errorf("invalid catalog rate limit: %w", err)
		}
		loaders = append(loaders, catalog.NewRemoteSource(catalog.RemoteOptions{
			BaseURL:   cfg.Catalog.BaseURL,
			Timeout:   timeout,
			RateLimit: rateLimit,
		}))
	}

	if cfg.Catalog.LocalFile != "" {
		loaders = append(loaders, catalog.NewFileSource(resolveLocalFile(cfg.Catalog.LocalFile, dataDir)))
	}

	return loaders, nil
}

// resolveLocalFile prefers a relative path as given and falls back to the
// same name inside dataDir when only that one exists.
func resolveLocalFile(path, dataDir string) string {
	if filepath.IsAbs(path) || dataDir == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	candidate := filepath.Join(dataDir, path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}
