package http

import (
	"net/http"
	"strings"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/services"
)

type (
	incomeResponse struct {
		Income core.Money `json:"income"`
	}

	summaryResponse struct {
		core.Summary
		Outstanding core.Money `json:"outstanding"`
	}

	categoryDeleted struct {
		Name       string `json:"name"`
		MovedBills int    `json:"movedBills"`
	}
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.svc.Store().Categories()
	if r.URL.Query().Get("sort") == "name" {
		cats = s.svc.Store().SortedCategories()
	}
	NewResponse().JSON(orEmpty(cats)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	name, err := ParseCategoryName(r)
	if err != nil {
		s.fail(w, r, log.OpAddCategory, err, services.InputFailure("category", err), nil)
		return
	}
	n, err := s.svc.AddCategory(r.Context(), name)
	if err != nil {
		s.fail(w, r, log.OpAddCategory, err, n, s.svc.Store().Categories())
		return
	}
	NewResponse().Status(http.StatusCreated).Notify(n).JSON(s.svc.Store().Categories()).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(sanitizeInput(r.PathValue("name")))
	moved, n, err := s.svc.DeleteCategory(r.Context(), name)
	result := categoryDeleted{Name: name, MovedBills: moved}
	if err != nil {
		s.fail(w, r, log.OpDeleteCategory, err, n, result)
		return
	}
	NewResponse().Notify(n).JSON(result).Write(w)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(incomeResponse{Income: s.svc.Store().Income()}).Write(w)
}

func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	amount, err := ParseIncome(r)
	if err != nil {
		s.fail(w, r, log.OpSetIncome, err, services.InputFailure("income", err), nil)
		return
	}
	n, err := s.svc.SetIncome(r.Context(), amount)
	body := incomeResponse{Income: s.svc.Store().Income()}
	if err != nil {
		s.fail(w, r, log.OpSetIncome, err, n, body)
		return
	}
	NewResponse().Notify(n).JSON(body).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Store().Snapshot()
	NewResponse().JSON(summaryResponse{
		Summary:     snap.Summary(),
		Outstanding: snap.Outstanding(),
	}).Write(w)
}

// handleReminders returns the notifications of the latest reminder run.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	var last []core.Notification
	if s.reminders != nil {
		last = s.reminders.Last()
	}
	NewResponse().JSON(orEmpty(last)).Write(w)
}
