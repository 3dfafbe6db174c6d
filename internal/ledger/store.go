// Package ledger owns the bills, notes, categories and income of one user
// and keeps them in sync with a durable key-value store.
//
// Every mutation validates its input, applies the change to a copy of the
// state, writes all four collections to the KV, and then swaps the copy in.
// A failed write still keeps the new state in memory: the returned
// *core.PersistenceError tells the caller the change is not durable yet.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/storage"

	"github.com/google/uuid"
)

// Change describes one successful, persisted mutation. Seq and At are
// taken while the mutation holds the lock, so they follow apply order.
type Change struct {
	Op       string
	EntityID string
	Seq      uint64
	At       time.Time
	Snapshot Snapshot
}

// Observer is told about every persisted mutation, after the lock is released.
type Observer interface {
	LedgerChanged(ctx context.Context, c Change)
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	ObserveOperation(op, result string)
	ObservePersistFailure()
}

// Results passed to Recorder.ObserveOperation.
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultPersistErr = "persist_error"
)

type Store struct {
	mu    sync.Mutex
	kv    storage.KV
	state state
	seq   uint64
	// held maps keys that fell back on load to their encoding at load time.
	held map[string]string

	now       func() time.Time
	newID     func() string
	logger    *log.Logger
	observers []Observer
	recorder  Recorder
	symbol    string
}

type Option func(*Store)

// WithClock overrides time.Now for timestamps and report dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUID generator for bill and note ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithCurrencySymbol sets the prefix used in report amounts. Default "$".
func WithCurrencySymbol(symbol string) Option {
	return func(s *Store) { s.symbol = symbol }
}

// New returns a store holding the default state. Call Load to read the
// persisted state from kv.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		state:  defaultState(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		logger: log.Discard(),
		symbol: "$",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open is New followed by Load. Load problems are logged and never fatal,
// so the returned error only reports which keys fell back to defaults.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := New(kv, opts...)
	return s, s.Load(ctx)
}

// mutate runs fn on a copy of the state under the lock. fn returns the id
// of the affected entity. Nothing changes when fn fails.
func (s *Store) mutate(ctx context.Context, op string, fn func(st *state) (string, error)) error {
	s.mu.Lock()
	next := s.state.clone()
	id, err := fn(&next)
	if err != nil {
		s.mu.Unlock()
		s.record(op, resultOf(err))
		s.logger.DebugContext(ctx, "Ledger mutation rejected", log.FieldOperation, op, log.FieldError, err)
		return err
	}

	persistErr := s.persist(ctx, op, next)
	s.state = next
	snap := next.snapshot()
	s.seq++
	change := Change{Op: op, EntityID: id, Seq: s.seq, At: s.now().UTC(), Snapshot: snap}
	s.mu.Unlock()

	if persistErr != nil {
		s.record(op, ResultPersistErr)
		if s.recorder != nil {
			s.recorder.ObservePersistFailure()
		}
		s.logger.ErrorContext(ctx, "Ledger change kept in memory only",
			log.NewFields().WithOperation(op).WithError(persistErr).WithErrorType(log.ErrorTypePersistence).ToSlice()...)
		return persistErr
	}

	s.record(op, ResultOK)
	s.logger.InfoContext(ctx, "Ledger updated", log.FieldOperation, op, "entity_id", id)
	for _, o := range s.observers {
		o.LedgerChanged(ctx, change)
	}
	return nil
}

func (s *Store) record(op, result string) {
	if s.recorder != nil {
		s.recorder.ObserveOperation(op, result)
	}
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return ResultNotFound
	default:
		return ResultInvalid
	}
}

// today is the current calendar date in UTC.
func (s *Store) today() core.Date {
	return core.DateOf(s.now().UTC())
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
