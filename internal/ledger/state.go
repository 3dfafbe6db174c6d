package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/storage"
)

type state struct {
	bills      []core.Bill
	notes      []core.Note
	categories []string
	income     core.Money
}

// Snapshot is a detached copy of the whole ledger.
type Snapshot struct {
	Bills      []core.Bill `json:"bills"`
	Notes      []core.Note `json:"notes"`
	Categories []string    `json:"categories"`
	Income     core.Money  `json:"monthlyIncome"`
}

func defaultState() state {
	return state{
		bills:      []core.Bill{},
		notes:      []core.Note{},
		categories: append([]string(nil), core.DefaultCategories...),
	}
}

func (st state) clone() state {
	return state{
		bills:      append([]core.Bill{}, st.bills...),
		notes:      append([]core.Note{}, st.notes...),
		categories: append([]string{}, st.categories...),
		income:     st.income,
	}
}

func (st state) snapshot() Snapshot {
	c := st.clone()
	return Snapshot{Bills: c.bills, Notes: c.notes, Categories: c.categories, Income: c.income}
}

func (st *state) hasCategory(name string) bool {
	for _, c := range st.categories {
		if c == name {
			return true
		}
	}
	return false
}

func (st *state) billIndex(id string) int {
	for i, b := range st.bills {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (st *state) noteIndex(id string) int {
	for i, n := range st.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// summary sums paid bills only; unpaid bills are reported by outstanding.
func (st *state) summary() core.Summary {
	var total core.Money
	for _, b := range st.bills {
		if b.IsPaid {
			total = total.Add(b.Amount)
		}
	}
	return core.Summary{
		Income:           st.income,
		TotalExpenses:    total,
		RemainingBalance: st.income.Sub(total),
	}
}

func (st *state) outstanding() core.Money {
	var total core.Money
	for _, b := range st.bills {
		if !b.IsPaid {
			total = total.Add(b.Amount)
		}
	}
	return total
}

// Summary computes the summary of the state the snapshot was taken from.
func (s Snapshot) Summary() core.Summary {
	st := state{bills: s.Bills, income: s.Income}
	return st.summary()
}

func (s Snapshot) Outstanding() core.Money {
	st := state{bills: s.Bills}
	return st.outstanding()
}

// encode serialises each collection under its KV key.
func (st state) encode() (map[string]string, error) {
	bills, err := json.Marshal(st.bills)
	if err != nil {
		return nil, fmt.Errorf("encode bills: %w", err)
	}
	notes, err := json.Marshal(st.notes)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}
	cats, err := json.Marshal(st.categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	return map[string]string{
		storage.KeyBills:         string(bills),
		storage.KeyNotes:         string(notes),
		storage.KeyMonthlyIncome: st.income.PlainString(),
		storage.KeyCategories:    string(cats),
	}, nil
}

// persist writes the full state. Caller holds s.mu.
//
// Keys that fell back on load stay untouched in the KV until their
// collection actually changes, so a bad value is never overwritten by
// an unrelated mutation. The write outlives a cancelled request.
func (s *Store) persist(ctx context.Context, op string, st state) error {
	entries, err := st.encode()
	if err != nil {
		return &core.PersistenceError{Op: op, Err: err}
	}
	var released []string
	for key, loaded := range s.held {
		if entries[key] == loaded {
			delete(entries, key)
		} else {
			released = append(released, key)
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if err := s.kv.SetMany(context.WithoutCancel(ctx), entries); err != nil {
		return &core.PersistenceError{Op: op, Err: err}
	}
	for _, key := range released {
		delete(s.held, key)
	}
	return nil
}

// decodeRecords decodes a JSON array one element at a time. Elements that
// do not decode are skipped and counted; only a value that is not an
// array at all is an error.
func decodeRecords[T any](raw string) ([]T, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, 0, err
	}
	out := make([]T, 0, len(items))
	skipped := 0
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped, nil
}

// Load replaces the in-memory state with what the KV holds. Each key is
// read on its own: a missing key keeps its default silently, an unreadable
// or corrupt one keeps its default and is reported in the joined error.
// Bill and note records that do not decode are dropped from memory only.
func (s *Store) Load(ctx context.Context) error {
	next := defaultState()
	held := make(map[string]bool)
	var errs []error

	fallback := func(key string, err error) {
		held[key] = true
		errs = append(errs, &core.PersistenceError{Op: log.OpLoad, Key: key, Err: err})
		s.logger.WarnContext(ctx, "Falling back to default value",
			log.FieldKey, key, log.FieldError, err, log.FieldErrorType, log.ErrorTypePersistence)
	}
	partial := func(key string, skipped int) {
		held[key] = true
		errs = append(errs, &core.PersistenceError{Op: log.OpLoad, Key: key,
			Err: fmt.Errorf("skipped %d unreadable records", skipped)})
		s.logger.WarnContext(ctx, "Skipped unreadable records",
			log.FieldKey, key, log.FieldCount, skipped, log.FieldErrorType, log.ErrorTypePersistence)
	}

	if raw, ok, err := s.kv.Get(ctx, storage.KeyBills); err != nil {
		fallback(storage.KeyBills, err)
	} else if ok {
		bills, skipped, err := decodeRecords[core.Bill](raw)
		switch {
		case err != nil:
			fallback(storage.KeyBills, err)
		case skipped > 0:
			partial(storage.KeyBills, skipped)
			next.bills = bills
		default:
			next.bills = bills
		}
	}

	if raw, ok, err := s.kv.Get(ctx, storage.KeyNotes); err != nil {
		fallback(storage.KeyNotes, err)
	} else if ok {
		notes, skipped, err := decodeRecords[core.Note](raw)
		switch {
		case err != nil:
			fallback(storage.KeyNotes, err)
		case skipped > 0:
			partial(storage.KeyNotes, skipped)
			next.notes = notes
		default:
			next.notes = notes
		}
	}

	if raw, ok, err := s.kv.Get(ctx, storage.KeyMonthlyIncome); err != nil {
		fallback(storage.KeyMonthlyIncome, err)
	} else if ok {
		income, err := core.ParseAmount(raw)
		if err != nil {
			fallback(storage.KeyMonthlyIncome, err)
		} else {
			next.income = income
		}
	}

	if raw, ok, err := s.kv.Get(ctx, storage.KeyCategories); err != nil {
		fallback(storage.KeyCategories, err)
	} else if ok {
		var cats []string
		if err := json.Unmarshal([]byte(raw), &cats); err != nil {
			fallback(storage.KeyCategories, err)
		} else if cats != nil {
			next.categories = uniqueNonEmpty(cats)
		}
	}

	// Bills may name categories the stored set lost; restore them.
	for _, b := range next.bills {
		if b.Category != "" && !next.hasCategory(b.Category) {
			next.categories = append(next.categories, b.Category)
		}
	}

	// Remember how each held collection encodes now; persist compares
	// against it to tell whether the collection was touched since.
	loaded, err := next.encode()
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	s.mu.Lock()
	s.state = next
	s.held = make(map[string]string, len(held))
	for key := range held {
		s.held[key] = loaded[key]
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Ledger loaded",
		"bills", len(next.bills), "notes", len(next.notes),
		"categories", len(next.categories), "fallbacks", len(errs))

	return errors.Join(errs...)
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
