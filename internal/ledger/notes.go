package ledger

import (
	"context"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

func (s *Store) AddNote(ctx context.Context, title, content string) (core.Note, error) {
	draft := core.NoteDraft{Title: title, Content: content}.Normalize()
	if err := draft.Validate(); err != nil {
		s.record(log.OpAddNote, ResultInvalid)
		return core.Note{}, err
	}

	var created core.Note
	err := s.mutate(ctx, log.OpAddNote, func(st *state) (string, error) {
		ts := s.timestamp()
		created = core.Note{
			ID:        s.newID(),
			Title:     draft.Title,
			Content:   draft.Content,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		st.notes = append(st.notes, created)
		return created.ID, nil
	})
	if err != nil && !isPersistence(err) {
		return core.Note{}, err
	}
	return created, err
}

// UpdateNote rewrites title and content and refreshes UpdatedAt.
// CreatedAt never changes.
func (s *Store) UpdateNote(ctx context.Context, id, title, content string) (core.Note, error) {
	draft := core.NoteDraft{Title: title, Content: content}.Normalize()
	if err := draft.Validate(); err != nil {
		s.record(log.OpUpdateNote, ResultInvalid)
		return core.Note{}, err
	}

	var updated core.Note
	err := s.mutate(ctx, log.OpUpdateNote, func(st *state) (string, error) {
		i := st.noteIndex(id)
		if i < 0 {
			return "", &core.NotFoundError{Kind: "note", ID: id}
		}
		n := st.notes[i]
		n.Title = draft.Title
		n.Content = draft.Content
		n.UpdatedAt = s.timestamp()
		st.notes[i] = n
		updated = n
		return id, nil
	})
	if err != nil && !isPersistence(err) {
		return core.Note{}, err
	}
	return updated, err
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDeleteNote, func(st *state) (string, error) {
		i := st.noteIndex(id)
		if i < 0 {
			return "", &core.NotFoundError{Kind: "note", ID: id}
		}
		st.notes = append(st.notes[:i], st.notes[i+1:]...)
		return id, nil
	})
}
