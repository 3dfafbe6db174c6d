// Package backend turns configuration into the KV the ledger persists to.
package backend

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"billtracker/internal/cache"
	"billtracker/internal/config"
)

// Kind names a KV implementation.
type Kind string

const (
	KindSQLite   Kind = config.BackendSQLite
	KindPostgres Kind = config.BackendPostgres
	KindMemory   Kind = config.BackendMemory
)

// Kinds lists every supported backend, in preference order.
func Kinds() []Kind {
	return []Kind{KindSQLite, KindPostgres, KindMemory}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("unknown backend %q: must be one of %v", s, Kinds())
	}
	return k, nil
}

type Config struct {
	Kind Kind

	SQLitePath  string
	PostgresDSN string
	// SeedFile optionally preloads the memory backend from a JSON object
	// keyed like the KV.
	SeedFile string

	// CacheSize 0 disables the read-through cache.
	CacheSize     int
	CacheTTL      time.Duration
	CacheObserver cache.Observer
}

// FromAppConfig maps the application settings onto a backend Config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Kind:        kind,
		SQLitePath:  cfg.SQLiteDBPath,
		PostgresDSN: cfg.PostgresDSN,
		SeedFile:    cfg.SeedFile,
		CacheSize:   cfg.KVCacheSize,
		CacheTTL:    cfg.KVCacheTTL,
	}, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseKind(string(c.Kind)); err != nil {
		errs = append(errs, err)
	}
	switch c.Kind {
	case KindSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite backend needs a database path"))
		}
	case KindPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres backend needs a DSN"))
		}
	}
	if c.CacheSize < 0 {
		errs = append(errs, errors.New("cache size cannot be negative"))
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive when the cache is enabled"))
	}
	return errors.Join(errs...)
}
