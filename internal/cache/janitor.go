package cache

import (
	"context"
	"sync"
	"time"

	"billtracker/internal/log"
)

// Sweeper is anything holding entries that can expire.
type Sweeper interface {
	Sweep() int
}

// Janitor sweeps its targets on a fixed interval until stopped.
type Janitor struct {
	interval time.Duration
	targets  []Sweeper
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJanitor(interval time.Duration, logger *log.Logger, targets ...Sweeper) *Janitor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Janitor{
		interval: interval,
		targets:  targets,
		logger:   logger.WithComponent(log.ComponentCache),
	}
}

// SweepNow runs one pass over every target.
func (j *Janitor) SweepNow() int {
	total := 0
	for _, t := range j.targets {
		total += t.Sweep()
	}
	return total
}

// Start launches the sweep loop. Calling it on a running janitor does nothing.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil || j.interval <= 0 {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.run(ctx, j.done)
}

func (j *Janitor) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.SweepNow(); n > 0 {
				j.logger.Debug("Swept expired cache entries", "count", n)
			}
		}
	}
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
