// Package memory is a LedgerMirror that keeps the mirrored rows in memory,
// for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"billtracker/internal/core"
	ports "billtracker/internal/sheets"
)

var _ ports.LedgerMirror = (*Mirror)(nil)

type Mirror struct {
	mu      sync.Mutex
	bills   [][]string
	summary [][]string
	calls   int
	err     error
}

func New() *Mirror {
	return &Mirror{}
}

// FailWith makes every following call return err. A nil err clears it.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) MirrorBills(_ context.Context, bills []core.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.bills = ports.BillRows(bills)
	return nil
}

func (m *Mirror) MirrorSummary(_ context.Context, s core.Summary, outstanding core.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.summary = ports.SummaryRows(s, outstanding)
	return nil
}

// Bills returns the rows of the last successful MirrorBills, header first.
func (m *Mirror) Bills() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.bills)
}

func (m *Mirror) Summary() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.summary)
}

// Calls counts every mirror call, failed ones included.
func (m *Mirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}
