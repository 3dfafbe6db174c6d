package ledger

import (
	"context"
	"strings"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

// AddCategory adds a new label. Names are compared exactly, after trimming.
func (s *Store) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		s.record(log.OpAddCategory, ResultInvalid)
		return &core.ValidationError{Field: "category", Reason: "is required"}
	}
	return s.mutate(ctx, log.OpAddCategory, func(st *state) (string, error) {
		if st.hasCategory(name) {
			return "", &core.ValidationError{Field: "category", Reason: "already exists"}
		}
		st.categories = append(st.categories, name)
		return name, nil
	})
}

// DeleteCategory removes name and moves its bills to the fallback
// category in the same change. It returns how many bills were moved.
// The fallback category itself cannot be deleted. Names are trimmed as in
// AddCategory.
func (s *Store) DeleteCategory(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.record(log.OpDeleteCategory, ResultInvalid)
		return 0, &core.ValidationError{Field: "category", Reason: "is required"}
	}
	if name == core.FallbackCategory {
		s.record(log.OpDeleteCategory, ResultInvalid)
		return 0, &core.ValidationError{Field: "category", Reason: "fallback category " + core.FallbackCategory + " cannot be deleted"}
	}

	moved := 0
	err := s.mutate(ctx, log.OpDeleteCategory, func(st *state) (string, error) {
		idx := -1
		for i, c := range st.categories {
			if c == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return "", &core.NotFoundError{Kind: "category", ID: name}
		}
		st.categories = append(st.categories[:idx], st.categories[idx+1:]...)

		for i := range st.bills {
			if st.bills[i].Category == name {
				st.bills[i].Category = core.FallbackCategory
				moved++
			}
		}
		if moved > 0 && !st.hasCategory(core.FallbackCategory) {
			st.categories = append(st.categories, core.FallbackCategory)
		}
		return name, nil
	})
	if err != nil && !isPersistence(err) {
		return 0, err
	}
	return moved, err
}
