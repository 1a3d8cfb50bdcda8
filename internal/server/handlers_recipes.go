package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
	"github.com/joseph-ayodele/foodgram/internal/recipes"
)

// shortRecipe is the compact recipe form returned by list membership endpoints.
type shortRecipe struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CookingTime int       `json:"cooking_time"`
}

func (s *HTTPServer) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	me := viewer(r)

	var filter entity.RecipeFilter
	if raw := q.Get("author"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, r, common.InvalidInput("author must be a user id"))
			return
		}
		filter.AuthorID = &id
	}
	filter.TagSlugs = q["tags"]
	if flag(q.Get("is_favorited")) {
		filter.FavoritedBy = me
	}
	if flag(q.Get("is_in_shopping_cart")) {
		filter.InCartOf = me
	}

	out, err := s.recipes.List(r.Context(), filter, me)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(out))
}

func (s *HTTPServer) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipes.RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.recipes.Create(r.Context(), caller(r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *HTTPServer) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.recipes.Get(r.Context(), id, viewer(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req recipes.RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.recipes.Update(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.recipes.Delete(r.Context(), caller(r), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleGetLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	link, err := s.recipes.ShortLink(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"short-link": link})
}

func (s *HTTPServer) handleExpandShortLink(w http.ResponseWriter, r *http.Request) {
	id, err := s.recipes.Expand(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/api/recipes/%s/", id), http.StatusFound)
}

func (s *HTTPServer) handleAddToList(w http.ResponseWriter, r *http.Request) {
	id, kind, err := listTarget(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.recipes.AddToList(r.Context(), caller(r), id, kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, shortRecipe{ID: rec.ID, Name: rec.Name, CookingTime: rec.CookingTime})
}

func (s *HTTPServer) handleRemoveFromList(w http.ResponseWriter, r *http.Request) {
	id, kind, err := listTarget(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.recipes.RemoveFromList(r.Context(), caller(r), id, kind); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listTarget(r *http.Request) (uuid.UUID, constants.ListKind, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return uuid.Nil, "", err
	}
	kind, ok := constants.ParseListKind(chi.URLParam(r, "list"))
	if !ok {
		return uuid.Nil, "", common.NotFound("not found")
	}
	return id, kind, nil
}

// flag parses boolean query values the way browsers and DRF clients send them.
func flag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
