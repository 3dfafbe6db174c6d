// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"billtracker/internal/core"
	"billtracker/internal/export"
	"billtracker/internal/ledger"
)

// LedgerService runs ledger operations and turns each outcome into the
// notification the user sees. Change events are published by a
// ChangePublisher registered as a ledger observer, not here.
type LedgerService struct {
	store *ledger.Store
}

func NewLedgerService(store *ledger.Store) *LedgerService {
	return &LedgerService{store: store}
}

// Store exposes the underlying ledger for read operations.
func (s *LedgerService) Store() *ledger.Store {
	return s.store
}

func (s *LedgerService) AddBill(ctx context.Context, draft core.BillDraft) (core.Bill, core.Notification, error) {
	bill, err := s.store.AddBill(ctx, draft)
	if err != nil {
		return bill, billFailure(err), err
	}
	return bill, success("Success", "Bill added successfully!"), nil
}

func (s *LedgerService) UpdateBill(ctx context.Context, id string, draft core.BillDraft) (core.Bill, core.Notification, error) {
	bill, err := s.store.UpdateBill(ctx, id, draft)
	if err != nil {
		return bill, billFailure(err), err
	}
	return bill, success("Success", "Bill updated successfully!"), nil
}

func (s *LedgerService) DeleteBill(ctx context.Context, id string) (core.Notification, error) {
	if err := s.store.DeleteBill(ctx, id); err != nil {
		return billFailure(err), err
	}
	return info("Deleted", "Bill has been removed."), nil
}

func (s *LedgerService) ToggleBillPaid(ctx context.Context, id string) (core.Bill, core.Notification, error) {
	bill, err := s.store.ToggleBillPaid(ctx, id)
	if err != nil {
		return bill, billFailure(err), err
	}
	state := "unpaid"
	if bill.IsPaid {
		state = "paid"
	}
	return bill, success("Updated", fmt.Sprintf("Bill marked as %s.", state)), nil
}

func (s *LedgerService) AddNote(ctx context.Context, draft core.NoteDraft) (core.Note, core.Notification, error) {
	note, err := s.store.AddNote(ctx, draft.Title, draft.Content)
	if err != nil {
		return note, noteFailure(err), err
	}
	return note, success("Success", "Note saved successfully!"), nil
}

func (s *LedgerService) UpdateNote(ctx context.Context, id string, draft core.NoteDraft) (core.Note, core.Notification, error) {
	note, err := s.store.UpdateNote(ctx, id, draft.Title, draft.Content)
	if err != nil {
		return note, noteFailure(err), err
	}
	return note, success("Success", "Note updated successfully!"), nil
}

func (s *LedgerService) DeleteNote(ctx context.Context, id string) (core.Notification, error) {
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return noteFailure(err), err
	}
	return info("Deleted", "Note has been removed."), nil
}

func (s *LedgerService) AddCategory(ctx context.Context, name string) (core.Notification, error) {
	if err := s.store.AddCategory(ctx, name); err != nil {
		return categoryFailure(err), err
	}
	return success("Success", "Category added successfully!"), nil
}

// DeleteCategory reports how many bills moved to the fallback category.
func (s *LedgerService) DeleteCategory(ctx context.Context, name string) (int, core.Notification, error) {
	moved, err := s.store.DeleteCategory(ctx, name)
	if err != nil {
		return moved, categoryFailure(err), err
	}
	msg := fmt.Sprintf("Category %q has been removed.", name)
	if moved > 0 {
		msg += fmt.Sprintf(" %d bill(s) moved to %s.", moved, core.FallbackCategory)
	}
	return moved, info("Deleted", msg), nil
}

func (s *LedgerService) SetIncome(ctx context.Context, amount core.Money) (core.Notification, error) {
	if err := s.store.SetIncome(ctx, amount); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return danger("Error", "Please enter a valid income amount."), err
		}
		return failure(err), err
	}
	return success("Success", "Monthly income updated!"), nil
}

// WriteCSV streams the bill export to w.
func (s *LedgerService) WriteCSV(w io.Writer) (core.Notification, error) {
	if err := s.store.WriteCSV(w); err != nil {
		return danger("Error", "CSV export failed."), fmt.Errorf("write csv: %w", err)
	}
	return success("Exported", "CSV file downloaded successfully!"), nil
}

// RenderReport lays out the current report with r.
func (s *LedgerService) RenderReport(w io.Writer, r export.Renderer) (core.Notification, error) {
	if err := r.Render(w, s.store.ExportReport()); err != nil {
		return danger("Error", "Report export failed."), fmt.Errorf("render report: %w", err)
	}
	return success("Exported", "Report generated successfully!"), nil
}

// InputFailure is the notification for a request rejected before it
// reached the ledger, e.g. an amount that does not parse. kind is "bill",
// "note", "category" or "income".
func InputFailure(kind string, err error) core.Notification {
	switch kind {
	case "bill":
		return billFailure(err)
	case "note":
		return noteFailure(err)
	case "category":
		return categoryFailure(err)
	case "income":
		if errors.Is(err, core.ErrValidation) {
			return danger("Error", "Please enter a valid income amount.")
		}
	}
	return failure(err)
}

func success(title, msg string) core.Notification {
	return core.Notification{Title: title, Message: msg, Severity: core.SeveritySuccess}
}

func info(title, msg string) core.Notification {
	return core.Notification{Title: title, Message: msg, Severity: core.SeverityInfo}
}

func danger(title, msg string) core.Notification {
	return core.Notification{Title: title, Message: msg, Severity: core.SeverityDanger}
}

func billFailure(err error) core.Notification {
	if errors.Is(err, core.ErrValidation) {
		return danger("Error", "Please fill in all required fields.")
	}
	return failure(err)
}

func noteFailure(err error) core.Notification {
	if errors.Is(err, core.ErrValidation) {
		return danger("Error", "Please enter both a title and content.")
	}
	return failure(err)
}

func categoryFailure(err error) core.Notification {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		switch verr.Reason {
		case "is required":
			return danger("Error", "Please enter a category name.")
		case "already exists":
			return core.Notification{Title: "Error", Message: "This category already exists.", Severity: core.SeverityWarning}
		}
		return danger("Error", verr.Error())
	}
	return failure(err)
}

// failure covers the kinds every operation shares.
func failure(err error) core.Notification {
	switch {
	case errors.Is(err, core.ErrNotFound):
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			return danger("Not found", fmt.Sprintf("That %s no longer exists.", nf.Kind))
		}
		return danger("Not found", "That item no longer exists.")
	case errors.Is(err, core.ErrPersistence):
		return core.Notification{
			Title:    "Not saved",
			Message:  "Your change is kept for this session but could not be saved.",
			Severity: core.SeverityWarning,
		}
	case errors.Is(err, core.ErrConflict):
		return core.Notification{Title: "Conflict", Message: err.Error(), Severity: core.SeverityWarning}
	default:
		return danger("Error", "Something went wrong.")
	}
}
