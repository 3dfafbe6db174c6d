package ledger

import (
	"context"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

// SetIncome replaces the monthly income. Negative amounts are rejected.
func (s *Store) SetIncome(ctx context.Context, amount core.Money) error {
	if amount.IsNegative() {
		s.record(log.OpSetIncome, ResultInvalid)
		return &core.ValidationError{Field: "income", Reason: "must not be negative"}
	}
	return s.mutate(ctx, log.OpSetIncome, func(st *state) (string, error) {
		st.income = amount
		return "", nil
	})
}
