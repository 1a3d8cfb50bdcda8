package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
	"github.com/joseph-ayodele/foodgram/internal/export"
	"github.com/joseph-ayodele/foodgram/internal/recipes"
	"github.com/joseph-ayodele/foodgram/internal/repository"
	"github.com/joseph-ayodele/foodgram/internal/users"
)

type testApp struct {
	http        *HTTPServer
	handler     http.Handler
	exports     *export.Service
	users       *users.Service
	ingredients repository.IngredientRepository
	tags        repository.TagRepository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "server.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(logger) })
	require.NoError(t, store.Migrate(ctx, logger))

	ingredients := repository.NewIngredientRepository(store, logger)
	tags := repository.NewTagRepository(store, logger)
	lists := repository.NewListRepository(store, logger)
	userSvc := users.NewService(repository.NewUserRepository(store, logger), repository.NewSubscriptionRepository(store, logger), logger)
	recipeSvc := recipes.NewService(repository.NewRecipeRepository(store, logger), ingredients, tags, lists,
		common.LinksConfig{PublicBaseURL: "http://testserver", ShortPath: "s"}, logger)
	exports := export.NewService(repository.NewShoppingCartReader(store, logger), logger)

	srv := NewHTTPServer(Deps{
		Recipes:     recipeSvc,
		Users:       userSvc,
		Exports:     exports,
		Ingredients: ingredients,
		Tags:        tags,
		Health:      func(ctx context.Context) error { return store.HealthCheck(ctx, time.Second, logger) },
		CORSOrigins: []string{"*"},
		Logger:      logger,
	})
	srv.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	return &testApp{
		http:        srv,
		handler:     srv.Routes(),
		exports:     exports,
		users:       userSvc,
		ingredients: ingredients,
		tags:        tags,
	}
}

func (a *testApp) do(t *testing.T, method, path string, user *uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != nil {
		req.Header.Set(UserIDHeader, user.String())
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) createUser(t *testing.T, username string) uuid.UUID {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/users/", nil, map[string]string{
		"email":    username + "@example.com",
		"username": username,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u entity.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShoppingCartFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")

	milk, _, err := app.ingredients.GetOrCreate(ctx, "milk", "ml")
	require.NoError(t, err)
	egg, _, err := app.ingredients.GetOrCreate(ctx, "egg", "pcs")
	require.NoError(t, err)
	tag, _, err := app.tags.GetOrCreate(ctx, "Breakfast", "breakfast")
	require.NoError(t, err)

	create := func(name string, lines ...map[string]any) uuid.UUID {
		rec := app.do(t, http.MethodPost, "/api/recipes/", &alice, map[string]any{
			"name":         name,
			"text":         "Cook it.",
			"cooking_time": 15,
			"ingredients":  lines,
			"tags":         []uuid.UUID{tag.ID},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[entity.Recipe](t, rec).ID
	}
	pancakes := create("Pancakes",
		map[string]any{"id": milk.ID, "amount": 200},
		map[string]any{"id": egg.ID, "amount": 2})
	omelette := create("Omelette",
		map[string]any{"id": egg.ID, "amount": 3},
		map[string]any{"id": milk.ID, "amount": 300})

	t.Run("AnonymousCannotAddToCart", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/recipes/"+pancakes.String()+"/shopping_cart/", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("AddToCart", func(t *testing.T) {
		for _, id := range []uuid.UUID{pancakes, omelette} {
			rec := app.do(t, http.MethodPost, "/api/recipes/"+id.String()+"/shopping_cart/", &bob, nil)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		}
		rec := app.do(t, http.MethodPost, "/api/recipes/"+pancakes.String()+"/shopping_cart/", &bob, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DownloadText", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", &bob, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, `attachment; filename="shopping_cart.txt"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "Shopping list for 2024-03-01:\n"+
			"Products:\n"+
			"1. Egg – 5 pcs\n"+
			"2. Milk – 500 ml\n"+
			"\n"+
			"Recipes:\n"+
			"- Pancakes\n"+
			"- Omelette", rec.Body.String())
	})

	t.Run("DownloadWithDate", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/?date=2023-12-31", &bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Shopping list for 2023-12-31:")

		rec = app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/?date=yesterday", &bob, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DownloadXLSX", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/?format=xlsx", &bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="shopping_cart.xlsx"`, rec.Header().Get("Content-Disposition"))
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("EmptyCart", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", &alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Shopping list for 2024-03-01:\nProducts:\n\nRecipes:", rec.Body.String())
	})

	t.Run("ListFilterInCart", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/?is_in_shopping_cart=1", &bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[[]entity.Recipe](t, rec)
		require.Len(t, got, 2)
		for _, r := range got {
			assert.True(t, r.IsInShoppingCart)
		}
	})

	t.Run("RemoveFromCart", func(t *testing.T) {
		rec := app.do(t, http.MethodDelete, "/api/recipes/"+pancakes.String()+"/shopping_cart/", &bob, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(t, http.MethodDelete, "/api/recipes/"+pancakes.String()+"/shopping_cart/", &bob, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecipeEndpoints(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")
	egg, _, err := app.ingredients.GetOrCreate(ctx, "egg", "pcs")
	require.NoError(t, err)
	tag, _, err := app.tags.GetOrCreate(ctx, "Breakfast", "breakfast")
	require.NoError(t, err)

	body := map[string]any{
		"name":         "Boiled egg",
		"text":         "Boil.",
		"cooking_time": 8,
		"ingredients":  []map[string]any{{"id": egg.ID, "amount": 1}},
		"tags":         []uuid.UUID{tag.ID},
	}
	rec := app.do(t, http.MethodPost, "/api/recipes/", &alice, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[entity.Recipe](t, rec).ID

	t.Run("ValidationError", func(t *testing.T) {
		bad := map[string]any{"name": "x", "text": "y", "cooking_time": 0}
		rec := app.do(t, http.MethodPost, "/api/recipes/", &alice, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, decode[errorResponse](t, rec).Detail)
	})

	t.Run("MalformedIdentity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recipes/", nil)
		req.Header.Set(UserIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UnknownRecipe", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/"+uuid.NewString()+"/", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("OnlyAuthorMayEdit", func(t *testing.T) {
		rec := app.do(t, http.MethodPatch, "/api/recipes/"+id.String()+"/", &bob, body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(t, http.MethodDelete, "/api/recipes/"+id.String()+"/", &bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ShortLinkRedirects", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/"+id.String()+"/get-link/", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		link := decode[map[string]string](t, rec)["short-link"]
		require.NotEmpty(t, link)

		path := link[len("http://testserver"):]
		rec = app.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/api/recipes/"+id.String()+"/", rec.Header().Get("Location"))

		rec = app.do(t, http.MethodGet, "/s/zzzzzz/", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Favorite", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/recipes/"+id.String()+"/favorite/", &bob, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Boiled egg", decode[shortRecipe](t, rec).Name)

		rec = app.do(t, http.MethodGet, "/api/recipes/"+id.String()+"/", &bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[entity.Recipe](t, rec).IsFavorited)
	})

	t.Run("FilterByTagAndAuthor", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/recipes/?tags=breakfast&author="+alice.String(), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]entity.Recipe](t, rec), 1)

		rec = app.do(t, http.MethodGet, "/api/recipes/?tags=dinner", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", rec.Body.String())
	})

	t.Run("Delete", func(t *testing.T) {
		rec := app.do(t, http.MethodDelete, "/api/recipes/"+id.String()+"/", &alice, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestCatalogEndpoints(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	for _, n := range []string{"apple", "apricot", "banana"} {
		_, _, err := app.ingredients.GetOrCreate(ctx, n, "g")
		require.NoError(t, err)
	}
	_, _, err := app.tags.GetOrCreate(ctx, "Lunch", "lunch")
	require.NoError(t, err)

	rec := app.do(t, http.MethodGet, "/api/ingredients/?name=Ap", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]entity.Ingredient](t, rec)
	require.Len(t, found, 2)
	assert.Equal(t, "apple", found[0].Name)

	rec = app.do(t, http.MethodGet, "/api/ingredients/"+found[0].ID.String()+"/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/tags/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.Tag](t, rec), 1)
}

func TestSubscriptionEndpoints(t *testing.T) {
	app := newTestApp(t)

	alice := app.createUser(t, "alice")
	bob := app.createUser(t, "bob")

	rec := app.do(t, http.MethodPost, "/api/users/"+alice.String()+"/subscribe/", &bob, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/users/"+alice.String()+"/subscribe/", &bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/users/"+bob.String()+"/subscribe/", &bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/users/subscriptions/", &bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[[]entity.Subscription](t, rec)
	require.Len(t, subs, 1)
	assert.Equal(t, alice, subs[0].Author.ID)

	rec = app.do(t, http.MethodDelete, "/api/users/"+alice.String()+"/subscribe/", &bob, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/users/me/", &bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decode[entity.User](t, rec).Username)

	unknown := uuid.New()
	rec = app.do(t, http.MethodGet, "/api/users/me/", &unknown, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
