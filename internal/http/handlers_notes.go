package http

import (
	"net/http"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/services"
)

// handleListNotes returns notes newest first, or in insertion order with
// ?sort=none.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes := s.svc.Store().SortedNotes()
	if r.URL.Query().Get("sort") == "none" {
		notes = s.svc.Store().Notes()
	}
	NewResponse().JSON(orEmpty(notes)).Write(w)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.svc.Store().Note(r.PathValue("id"))
	if err != nil {
		ErrorResponse(err, core.Notification{}, nil).Write(w)
		return
	}
	NewResponse().JSON(note).Write(w)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	draft, err := ParseNoteDraft(r)
	if err != nil {
		s.fail(w, r, log.OpAddNote, err, services.InputFailure("note", err), nil)
		return
	}
	note, n, err := s.svc.AddNote(r.Context(), draft)
	if err != nil {
		s.fail(w, r, log.OpAddNote, err, n, note)
		return
	}
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/notes/"+note.ID).
		Notify(n).JSON(note).Write(w)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	draft, err := ParseNoteDraft(r)
	if err != nil {
		s.fail(w, r, log.OpUpdateNote, err, services.InputFailure("note", err), nil)
		return
	}
	note, n, err := s.svc.UpdateNote(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		s.fail(w, r, log.OpUpdateNote, err, n, note)
		return
	}
	NewResponse().Notify(n).JSON(note).Write(w)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteNote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpDeleteNote, err, n, nil)
		return
	}
	NewResponse().Status(http.StatusNoContent).Notify(n).Write(w)
}
