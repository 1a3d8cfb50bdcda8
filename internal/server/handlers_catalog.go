package server

import (
	"net/http"

	"github.com/joseph-ayodele/foodgram/internal/common"
)

func (s *HTTPServer) handleListIngredients(w http.ResponseWriter, r *http.Request) {
	found, err := s.ingredients.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(found))
}

func (s *HTTPServer) handleGetIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ing, err := s.ingredients.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ing)
}

func (s *HTTPServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(tags))
}

func (s *HTTPServer) handleGetTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tag, err := s.tags.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, common.WrapError(err, "get tag"))
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// nonNil makes empty collections encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
