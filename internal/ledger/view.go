package ledger

import (
	"errors"
	"io"
	"sort"

	"billtracker/internal/core"
	"billtracker/internal/export"
)

func isPersistence(err error) bool {
	return errors.Is(err, core.ErrPersistence)
}

// Bills returns every bill in insertion order.
func (s *Store) Bills() []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill{}, s.state.bills...)
}

func (s *Store) Bill(id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.state.billIndex(id); i >= 0 {
		return s.state.bills[i], nil
	}
	return core.Bill{}, &core.NotFoundError{Kind: "bill", ID: id}
}

func (s *Store) Notes() []core.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Note{}, s.state.notes...)
}

func (s *Store) Note(id string) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.state.noteIndex(id); i >= 0 {
		return s.state.notes[i], nil
	}
	return core.Note{}, &core.NotFoundError{Kind: "note", ID: id}
}

// Categories returns the category set in the order names were added.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.state.categories...)
}

func (s *Store) Income() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.income
}

// Summary is recomputed from the current bills on every call.
func (s *Store) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.summary()
}

// Outstanding sums the unpaid bills. It is not part of the summary.
func (s *Store) Outstanding() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.outstanding()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.snapshot()
}

// SortedBills orders bills by due date, earliest first. Bills due the same
// day keep insertion order.
func (s *Store) SortedBills() []core.Bill {
	return SortBills(s.Bills())
}

// SortedNotes orders notes by last update, newest first.
func (s *Store) SortedNotes() []core.Note {
	return SortNotes(s.Notes())
}

func (s *Store) SortedCategories() []string {
	return SortCategories(s.Categories())
}

// Overdue lists unpaid bills due before today, earliest first.
func (s *Store) Overdue(today core.Date) []core.Bill {
	var out []core.Bill
	for _, b := range s.SortedBills() {
		if b.IsOverdue(today) {
			out = append(out, b)
		}
	}
	return out
}

// OverdueToday is Overdue for the store clock's current date.
func (s *Store) OverdueToday() []core.Bill {
	return s.Overdue(s.today())
}

// ExportCSV renders every bill, in insertion order, as CSV text.
func (s *Store) ExportCSV() string {
	return export.CSV(s.Bills())
}

// WriteCSV streams the same document as ExportCSV.
func (s *Store) WriteCSV(w io.Writer) error {
	return export.WriteCSV(w, s.Bills())
}

// ExportReport builds the structured report for a document renderer.
func (s *Store) ExportReport() export.Report {
	s.mu.Lock()
	summary := s.state.summary()
	bills := append([]core.Bill{}, s.state.bills...)
	s.mu.Unlock()
	return export.BuildReport(summary, bills, s.now().UTC(), s.symbol)
}

// SortBills returns a copy of bills ordered by due date ascending.
func SortBills(bills []core.Bill) []core.Bill {
	out := append([]core.Bill{}, bills...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

// SortNotes returns a copy of notes ordered by UpdatedAt descending.
func SortNotes(notes []core.Note) []core.Note {
	out := append([]core.Note{}, notes...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func SortCategories(cats []string) []string {
	out := append([]string{}, cats...)
	sort.Strings(out)
	return out
}
