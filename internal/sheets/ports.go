package sheets

import (
	"context"

	"billtracker/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror keeps a read-only copy of the ledger somewhere people
	// can look at it. Each call replaces what the previous one wrote.
	LedgerMirror interface {
		MirrorBills(ctx context.Context, bills []core.Bill) error
		MirrorSummary(ctx context.Context, summary core.Summary, outstanding core.Money) error
	}
)
