// Package storage defines the key-value port the ledger persists through
// and the SQLite implementation of it.
package storage

import "context"

// Keys under which the ledger serialises its collections.
const (
	KeyBills         = "bills"
	KeyNotes         = "notes"
	KeyMonthlyIncome = "monthlyIncome"
	KeyCategories    = "categories"
)

// LedgerKeys lists every key a full save writes.
var LedgerKeys = []string{KeyBills, KeyNotes, KeyMonthlyIncome, KeyCategories}

// Ports for persistence adapters.
type (
	// KV is a durable text key-value store.
	KV interface {
		// Get returns the stored value and whether the key exists.
		Get(ctx context.Context, key string) (value string, ok bool, err error)
		Set(ctx context.Context, key, value string) error
		// SetMany writes all entries, atomically where the backend can.
		SetMany(ctx context.Context, entries map[string]string) error
		Close() error
	}

	// Pinger is implemented by stores that can report liveness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
