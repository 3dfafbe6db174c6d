package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"billtracker/internal/storage/memory"
)

type countingKV struct {
	*memory.Store
	gets    int
	failSet bool
}

func (c *countingKV) Get(ctx context.Context, key string) (string, bool, error) {
	c.gets++
	return c.Store.Get(ctx, key)
}

func (c *countingKV) SetMany(ctx context.Context, entries map[string]string) error {
	if c.failSet {
		return errors.New("write refused")
	}
	return c.Store.SetMany(ctx, entries)
}

type lookups struct{ hits, misses int }

func (l *lookups) ObserveCacheLookup(hit bool) {
	if hit {
		l.hits++
	} else {
		l.misses++
	}
}

func TestStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingKV{Store: memory.New()}
	_ = backing.Store.Set(ctx, "bills", "[]")

	obs := &lookups{}
	s := NewStore(backing, 8, time.Minute, obs)
	for i := 0; i < 3; i++ {
		v, ok, err := s.Get(ctx, "bills")
		if err != nil || !ok || v != "[]" {
			t.Fatalf("Get = %q ok=%v err=%v", v, ok, err)
		}
	}
	if backing.gets != 1 {
		t.Fatalf("backing gets = %d, want 1", backing.gets)
	}

	// misses are not cached
	s.Get(ctx, "notes")
	s.Get(ctx, "notes")
	if backing.gets != 3 {
		t.Fatalf("backing gets = %d, want 3", backing.gets)
	}
	if obs.hits != 2 || obs.misses != 3 {
		t.Errorf("observed %d hits, %d misses; want 2, 3", obs.hits, obs.misses)
	}
}

func TestStore_WriteThroughAndFailure(t *testing.T) {
	ctx := context.Background()
	backing := &countingKV{Store: memory.New()}
	s := NewStore(backing, 8, time.Minute, nil)

	if err := s.SetMany(ctx, map[string]string{"bills": "[1]"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	if v, _, _ := s.Get(ctx, "bills"); v != "[1]" {
		t.Fatalf("cached value = %q", v)
	}
	if backing.gets != 0 {
		t.Fatalf("write-through value should be served from cache")
	}

	backing.failSet = true
	if err := s.SetMany(ctx, map[string]string{"bills": "[2]"}); err == nil {
		t.Fatalf("expected write failure")
	}
	if v, _, _ := s.Get(ctx, "bills"); v != "[1]" {
		t.Fatalf("after failed write got %q, want backing value [1]", v)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
