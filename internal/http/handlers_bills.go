package http

import (
	"net/http"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/services"
)

// handleListBills returns bills in insertion order, or by due date with
// ?sort=dueDate.
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills := s.svc.Store().Bills()
	if r.URL.Query().Get("sort") == "dueDate" {
		bills = s.svc.Store().SortedBills()
	}
	NewResponse().JSON(orEmpty(bills)).Write(w)
}

func (s *Server) handleOverdueBills(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(orEmpty(s.svc.Store().OverdueToday())).Write(w)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.Store().Bill(r.PathValue("id"))
	if err != nil {
		ErrorResponse(err, core.Notification{}, nil).Write(w)
		return
	}
	NewResponse().JSON(bill).Write(w)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draft, err := ParseBillDraft(r)
	if err != nil {
		s.fail(w, r, log.OpAddBill, err, services.InputFailure("bill", err), nil)
		return
	}

	bill, n, err := s.svc.AddBill(ctx, draft)
	if err != nil {
		s.fail(w, r, log.OpAddBill, err, n, bill)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Bill added",
		log.NewFields().WithOperation(log.OpAddBill).
			WithBill(bill.ID, bill.Name, bill.Amount.Cents, bill.Category).ToSlice()...)
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/bills/"+bill.ID).
		Notify(n).JSON(bill).Write(w)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	draft, err := ParseBillDraft(r)
	if err != nil {
		s.fail(w, r, log.OpUpdateBill, err, services.InputFailure("bill", err), nil)
		return
	}

	bill, n, err := s.svc.UpdateBill(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		s.fail(w, r, log.OpUpdateBill, err, n, bill)
		return
	}
	NewResponse().Notify(n).JSON(bill).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpDeleteBill, err, n, nil)
		return
	}
	NewResponse().Status(http.StatusNoContent).Notify(n).Write(w)
}

func (s *Server) handleToggleBill(w http.ResponseWriter, r *http.Request) {
	bill, n, err := s.svc.ToggleBillPaid(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpToggleBillPaid, err, n, bill)
		return
	}
	NewResponse().Notify(n).JSON(bill).Write(w)
}

// fail logs err at a level matching its kind and writes the error response.
// data is only sent back for persistence failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error, n core.Notification, data any) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	fields := log.NewFields().
		WithOperation(op).
		WithError(err).
		WithErrorType(errorTypeFor(err)).
		ToSlice()

	switch status := statusFor(err); {
	case status == http.StatusServiceUnavailable:
		logger.WarnContext(ctx, "Change kept in memory only", fields...)
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(ctx, "Operation failed", fields...)
	default:
		logger.DebugContext(ctx, "Operation rejected", fields...)
	}
	ErrorResponse(err, n, data).Write(w)
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
