package server

import (
	"net/http"

	"github.com/joseph-ayodele/foodgram/internal/users"
)

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	out, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(out))
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := s.users.CreateUser(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetUser(r.Context(), caller(r), nil)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := s.users.GetUser(r.Context(), id, viewer(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *HTTPServer) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.users.ListSubscriptions(r.Context(), caller(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(subs))
}

func (s *HTTPServer) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	author, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sub, err := s.users.Subscribe(r.Context(), caller(r), author)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (s *HTTPServer) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	author, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.users.Unsubscribe(r.Context(), caller(r), author); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
