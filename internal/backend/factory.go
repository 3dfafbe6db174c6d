package backend

import (
	"context"
	"errors"
	"fmt"

	"billtracker/internal/cache"
	"billtracker/internal/log"
	"billtracker/internal/storage"
	"billtracker/internal/storage/memory"
	"billtracker/internal/storage/postgres"
)

// Backend is an opened KV plus whatever has to be released with it.
type Backend struct {
	KV      storage.KV
	release []func() error
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.release) - 1; i >= 0; i-- {
		errs = append(errs, b.release[i]())
	}
	b.release = nil
	return errors.Join(errs...)
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Open creates the configured KV, wrapped in a cache when one is asked for.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	var (
		kv  storage.KV
		err error
	)
	switch cfg.Kind {
	case KindSQLite:
		kv, err = storage.NewSQLiteStore(cfg.SQLitePath)
		if err == nil {
			f.logger.Info("Opened SQLite backend", "db_path", cfg.SQLitePath)
		}
	case KindPostgres:
		kv, err = f.openPostgres(ctx, cfg.PostgresDSN)
	case KindMemory:
		kv, err = f.openMemory(cfg.SeedFile)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Kind, err)
	}

	b := &Backend{KV: kv, release: []func() error{kv.Close}}
	if cfg.CacheSize > 0 {
		f.addCache(ctx, b, cfg)
	}
	return b, nil
}

func (f *Factory) openPostgres(ctx context.Context, dsn string) (storage.KV, error) {
	store, err := postgres.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	f.logger.Info("Opened Postgres backend")
	return store, nil
}

func (f *Factory) openMemory(seedFile string) (storage.KV, error) {
	if seedFile == "" {
		f.logger.Info("Opened memory backend")
		return memory.New(), nil
	}
	store, err := memory.NewFromFile(seedFile)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Opened memory backend", "seed_file", seedFile)
	return store, nil
}

// addCache swaps b.KV for a cached view. The underlying store still
// closes through its own release func; the cache only needs its
// janitor stopped.
func (f *Factory) addCache(ctx context.Context, b *Backend, cfg Config) {
	cached := cache.NewStore(b.KV, cfg.CacheSize, cfg.CacheTTL, cfg.CacheObserver)
	janitor := cache.NewJanitor(cfg.CacheTTL, f.logger, cached.LRU())
	janitor.Start(context.WithoutCancel(ctx))

	b.KV = cached
	b.release = append(b.release, func() error {
		janitor.Stop()
		cached.LRU().Reset()
		return nil
	})
	f.logger.Info("Enabled KV cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
}
