package cache

import (
	"context"
	"maps"
	"slices"
	"time"

	"billtracker/internal/storage"
)

// Observer is told whether each read was served from memory.
type Observer interface {
	ObserveCacheLookup(hit bool)
}

// Store is a read-through, write-through cache in front of a KV.
// Absent keys are not cached.
type Store struct {
	next     storage.KV
	lru      *LRU
	observer Observer
}

var _ storage.KV = (*Store)(nil)

func NewStore(next storage.KV, size int, ttl time.Duration, observer Observer) *Store {
	return &Store{next: next, lru: NewLRU(size, ttl), observer: observer}
}

// LRU exposes the entries so a Janitor can sweep them.
func (s *Store) LRU() *LRU { return s.lru }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, hit := s.lru.Get(key)
	if s.observer != nil {
		s.observer.ObserveCacheLookup(hit)
	}
	if hit {
		return v, true, nil
	}

	v, ok, err := s.next.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	s.lru.Put(key, v)
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.next.Set(ctx, key, value); err != nil {
		s.lru.Forget(key)
		return err
	}
	s.lru.Put(key, value)
	return nil
}

// SetMany keeps the cache all-or-nothing with the backing write: on
// failure every key is forgotten so the next read goes to the store.
func (s *Store) SetMany(ctx context.Context, entries map[string]string) error {
	if err := s.next.SetMany(ctx, entries); err != nil {
		s.lru.Forget(slices.Collect(maps.Keys(entries))...)
		return err
	}
	for k, v := range entries {
		s.lru.Put(k, v)
	}
	return nil
}

// Ping forwards to the wrapped store when it supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.next.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) Close() error {
	s.lru.Reset()
	return s.next.Close()
}
