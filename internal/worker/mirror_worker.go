// Package worker mirrors ledger change events into an external sheet.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billtracker/internal/amqp"
	"billtracker/internal/ledger"
	"billtracker/internal/log"
	"billtracker/internal/sheets"
	"billtracker/internal/storage"

	"golang.org/x/sync/errgroup"
)

// MirrorRecorder counts mirror outcomes.
type MirrorRecorder interface {
	ObserveMirror(ok bool)
}

// MirrorWorker writes every ledger snapshot it receives to a LedgerMirror.
// Each event carries the full state, so only the newest one matters:
// events older than the last mirrored one are acknowledged and skipped.
type MirrorWorker struct {
	mirror   sheets.LedgerMirror
	recorder MirrorRecorder
	logger   *log.Logger

	mu      sync.Mutex
	last    time.Time
	lastSeq uint64
}

func NewMirrorWorker(mirror sheets.LedgerMirror, recorder MirrorRecorder, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		mirror:   mirror,
		recorder: recorder,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChange processes a single ledger change message from AMQP.
// A returned error makes the consumer requeue the message.
func (w *MirrorWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.mu.Lock()
	stale := w.isStale(msg)
	w.mu.Unlock()
	if stale {
		w.logger.DebugContext(ctx, "Skipping stale ledger change",
			log.FieldMessageID, msg.ID, log.FieldOperation, msg.Op)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldMessageID, msg.ID,
		log.FieldOperation, msg.Op,
		"bills", len(msg.Snapshot.Bills))

	if err := w.mirrorSnapshot(ctx, msg.Snapshot); err != nil {
		return fmt.Errorf("mirror %s: %w", msg.Op, err)
	}

	w.mu.Lock()
	if !w.isStale(msg) {
		w.last, w.lastSeq = msg.Timestamp, msg.Seq
	}
	w.mu.Unlock()
	return nil
}

// isStale reports whether a newer change was already mirrored. Changes
// stamped with the same time are ordered by sequence. Caller holds w.mu.
func (w *MirrorWorker) isStale(msg *amqp.LedgerChangedMessage) bool {
	if w.last.IsZero() {
		return false
	}
	if msg.Timestamp.Equal(w.last) {
		return msg.Seq != 0 && msg.Seq < w.lastSeq
	}
	return msg.Timestamp.Before(w.last)
}

// StartupSync mirrors the state currently held in kv, to recover from
// events missed while the worker was down.
func (w *MirrorWorker) StartupSync(ctx context.Context, kv storage.KV) error {
	store, err := ledger.Open(ctx, kv, ledger.WithLogger(w.logger))
	if err != nil {
		// Fallback values are still a valid ledger; mirror them.
		w.logger.WarnContext(ctx, "Ledger loaded with fallbacks", log.FieldError, err)
	}

	snap := store.Snapshot()
	if err := w.mirrorSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("startup mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup mirror completed", "bills", len(snap.Bills))
	return nil
}

func (w *MirrorWorker) mirrorSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	bills := ledger.SortBills(snap.Bills)
	summary := snap.Summary()
	outstanding := snap.Outstanding()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.mirror.MirrorBills(gctx, bills)
	})
	g.Go(func() error {
		return w.mirror.MirrorSummary(gctx, summary, outstanding)
	})
	err := g.Wait()

	if w.recorder != nil {
		w.recorder.ObserveMirror(err == nil)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror ledger",
			log.NewFields().WithOperation(log.OpMirror).WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
		return err
	}
	return nil
}
