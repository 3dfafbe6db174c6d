package ledger

import (
	"context"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

// AddBill validates draft, creates its category when missing and appends
// the bill, all as one persisted change. On a persistence error the bill is
// still returned and kept in memory.
func (s *Store) AddBill(ctx context.Context, draft core.BillDraft) (core.Bill, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		s.record(log.OpAddBill, ResultInvalid)
		return core.Bill{}, err
	}

	var created core.Bill
	err := s.mutate(ctx, log.OpAddBill, func(st *state) (string, error) {
		if !st.hasCategory(draft.Category) {
			st.categories = append(st.categories, draft.Category)
		}
		created = core.Bill{
			ID:       s.newID(),
			Name:     draft.Name,
			Amount:   draft.Amount,
			DueDate:  draft.DueDate,
			Category: draft.Category,
			IsPaid:   draft.IsPaid,
		}
		st.bills = append(st.bills, created)
		return created.ID, nil
	})
	if err != nil && !isPersistence(err) {
		return core.Bill{}, err
	}
	return created, err
}

// UpdateBill replaces every draft field of bill id, keeping its identifier
// and position.
func (s *Store) UpdateBill(ctx context.Context, id string, draft core.BillDraft) (core.Bill, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		s.record(log.OpUpdateBill, ResultInvalid)
		return core.Bill{}, err
	}

	var updated core.Bill
	err := s.mutate(ctx, log.OpUpdateBill, func(st *state) (string, error) {
		i := st.billIndex(id)
		if i < 0 {
			return "", &core.NotFoundError{Kind: "bill", ID: id}
		}
		if !st.hasCategory(draft.Category) {
			st.categories = append(st.categories, draft.Category)
		}
		updated = core.Bill{
			ID:       id,
			Name:     draft.Name,
			Amount:   draft.Amount,
			DueDate:  draft.DueDate,
			Category: draft.Category,
			IsPaid:   draft.IsPaid,
		}
		st.bills[i] = updated
		return id, nil
	})
	if err != nil && !isPersistence(err) {
		return core.Bill{}, err
	}
	return updated, err
}

// DeleteBill removes bill id. An unknown id is a NotFoundError.
func (s *Store) DeleteBill(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDeleteBill, func(st *state) (string, error) {
		i := st.billIndex(id)
		if i < 0 {
			return "", &core.NotFoundError{Kind: "bill", ID: id}
		}
		st.bills = append(st.bills[:i], st.bills[i+1:]...)
		return id, nil
	})
}

// ToggleBillPaid flips the paid flag and returns the updated bill.
func (s *Store) ToggleBillPaid(ctx context.Context, id string) (core.Bill, error) {
	var toggled core.Bill
	err := s.mutate(ctx, log.OpToggleBillPaid, func(st *state) (string, error) {
		i := st.billIndex(id)
		if i < 0 {
			return "", &core.NotFoundError{Kind: "bill", ID: id}
		}
		st.bills[i].IsPaid = !st.bills[i].IsPaid
		toggled = st.bills[i]
		return id, nil
	})
	if err != nil && !isPersistence(err) {
		return core.Bill{}, err
	}
	return toggled, err
}
