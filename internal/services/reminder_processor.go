package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/ledger"
	"billtracker/internal/log"
)

// ReminderProcessorConfig holds configuration for the reminder processor
type ReminderProcessorConfig struct {
	// Interval is how often bills are checked (default: 1h)
	Interval time.Duration

	// Rules are applied in order; a bill matched by one rule is not offered
	// to later ones.
	Rules []ReminderRule
}

// DefaultReminderProcessorConfig returns sensible defaults
func DefaultReminderProcessorConfig() ReminderProcessorConfig {
	return ReminderProcessorConfig{
		Interval: time.Hour,
		Rules:    []ReminderRule{OverdueRule{}, DueTodayRule{}},
	}
}

// BillSource is the part of the ledger the processor reads.
type BillSource interface {
	Bills() []core.Bill
}

// Notifier receives the reminders of one run.
type Notifier interface {
	Notify(ctx context.Context, n core.Notification)
}

// ReminderProcessor periodically checks unpaid bills against its rules and
// emits one notification per rule that matched anything.
type ReminderProcessor struct {
	source   BillSource
	notifier Notifier
	config   ReminderProcessorConfig
	logger   *log.Logger
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastMu sync.Mutex
	last   []core.Notification
}

// NewReminderProcessor creates a new reminder processor. A nil notifier
// only logs.
func NewReminderProcessor(source BillSource, notifier Notifier, config ReminderProcessorConfig, logger *log.Logger) *ReminderProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultReminderProcessorConfig().Interval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderProcessor{
		source:   source,
		notifier: notifier,
		config:   config,
		logger:   logger.WithComponent(log.ComponentReminder),
		now:      time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReminderProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Reminder processor started",
		"interval", p.config.Interval,
		"rules", len(p.config.Rules))

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReminderProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Reminder processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ReminderProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Last returns the notifications produced by the most recent run.
func (p *ReminderProcessor) Last() []core.Notification {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	return append([]core.Notification(nil), p.last...)
}

func (p *ReminderProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Check immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce applies every rule to the current bills and returns the
// notifications it emitted.
func (p *ReminderProcessor) RunOnce(ctx context.Context) []core.Notification {
	today := core.DateOf(p.now().UTC())
	bills := ledger.SortBills(p.source.Bills())

	claimed := make(map[string]bool)
	var out []core.Notification
	for _, rule := range p.config.Rules {
		var matched []core.Bill
		for _, b := range bills {
			if claimed[b.ID] || !rule.Matches(b, today) {
				continue
			}
			claimed[b.ID] = true
			matched = append(matched, b)
		}
		if len(matched) == 0 {
			continue
		}

		n := rule.Notification(matched)
		out = append(out, n)
		p.logger.WarnContext(ctx, "Bills need attention",
			"rule", rule.Name(),
			log.FieldCount, len(matched))
		if p.notifier != nil {
			p.notifier.Notify(ctx, n)
		}
	}

	p.lastMu.Lock()
	p.last = out
	p.lastMu.Unlock()
	return out
}
