package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/export"
	"github.com/joseph-ayodele/foodgram/internal/recipes"
	"github.com/joseph-ayodele/foodgram/internal/repository"
	"github.com/joseph-ayodele/foodgram/internal/users"
)

// UserIDHeader carries the caller's id as asserted by the identity gateway.
const UserIDHeader = "X-User-ID"

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Recipes     *recipes.Service
	Users       *users.Service
	Exports     *export.Service
	Ingredients repository.IngredientRepository
	Tags        repository.TagRepository
	Health      func(ctx context.Context) error
	CORSOrigins []string
	Logger      *zap.Logger
}

type HTTPServer struct {
	recipes     *recipes.Service
	users       *users.Service
	exports     *export.Service
	ingredients repository.IngredientRepository
	tags        repository.TagRepository
	health      func(ctx context.Context) error
	corsOrigins []string
	logger      *zap.Logger
	now         func() time.Time
}

func NewHTTPServer(d Deps) *HTTPServer {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		recipes:     d.Recipes,
		users:       d.Users,
		exports:     d.Exports,
		ingredients: d.Ingredients,
		tags:        d.Tags,
		health:      d.Health,
		corsOrigins: d.CORSOrigins,
		logger:      logger,
		now:         time.Now,
	}
}

// Routes builds the chi router for the public API.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", UserIDHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(s.requestLogger)
	r.Use(s.identify)

	r.Get("/healthz", s.handleHealth)
	r.Get("/s/{code}/", s.handleExpandShortLink)

	r.Route("/api", func(r chi.Router) {
		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", s.handleListIngredients)
			r.Get("/{id}/", s.handleGetIngredient)
		})
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Get("/{id}/", s.handleGetTag)
		})
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.With(s.requireUser).Post("/", s.handleCreateRecipe)
			r.With(s.requireUser).Get("/download_shopping_cart/", s.handleDownloadShoppingCart)
			r.Get("/{id}/", s.handleGetRecipe)
			r.With(s.requireUser).Patch("/{id}/", s.handleUpdateRecipe)
			r.With(s.requireUser).Delete("/{id}/", s.handleDeleteRecipe)
			r.Get("/{id}/get-link/", s.handleGetLink)
			r.With(s.requireUser).Post("/{id}/{list:(?:favorite|shopping_cart)}/", s.handleAddToList)
			r.With(s.requireUser).Delete("/{id}/{list:(?:favorite|shopping_cart)}/", s.handleRemoveFromList)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.With(s.requireUser).Get("/me/", s.handleMe)
			r.With(s.requireUser).Get("/subscriptions/", s.handleListSubscriptions)
			r.Get("/{id}/", s.handleGetUser)
			r.With(s.requireUser).Post("/{id}/subscribe/", s.handleSubscribe)
			r.With(s.requireUser).Delete("/{id}/subscribe/", s.handleUnsubscribe)
		})
	})
	return r
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// identify reads the gateway identity header. A malformed id is rejected;
// a missing one leaves the request anonymous.
func (s *HTTPServer) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				s.respondError(w, r.WithContext(ctx), common.NewAppError("UNAUTHORIZED", "invalid user identity", common.ErrUnauthorized))
				return
			}
			ctx = common.WithUserID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser rejects anonymous callers and callers with no user record.
func (s *HTTPServer) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := common.UserIDFromContext(r.Context())
		if !ok {
			s.respondError(w, r, common.NewAppError("UNAUTHORIZED", "authentication credentials were not provided", common.ErrUnauthorized))
			return
		}
		exists, err := s.users.Exists(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if !exists {
			s.respondError(w, r, common.NewAppError("UNAUTHORIZED", "unknown user", common.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller returns the authenticated user id. Only valid behind requireUser.
func caller(r *http.Request) uuid.UUID {
	id, _ := common.UserIDFromContext(r.Context())
	return id
}

// viewer returns the caller's id, or nil for anonymous requests.
func viewer(r *http.Request) *uuid.UUID {
	id, ok := common.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// respondError maps err onto a status code and a {"detail": ...} body.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	msg := common.Message(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", common.RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal server error"
	}
	respondJSON(w, status, errorResponse{Detail: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.InvalidInput("malformed JSON body: " + err.Error())
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, common.NotFound("not found")
	}
	return id, nil
}
