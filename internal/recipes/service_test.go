package recipes

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
	"github.com/joseph-ayodele/foodgram/internal/repository"
)

type env struct {
	svc         *Service
	users       repository.UserRepository
	ingredients repository.IngredientRepository
	tags        repository.TagRepository
	alice, bob  uuid.UUID
	milk, egg   uuid.UUID
	breakfast   uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "recipes.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(logger) })
	require.NoError(t, store.Migrate(ctx, logger))

	e := &env{
		users:       repository.NewUserRepository(store, logger),
		ingredients: repository.NewIngredientRepository(store, logger),
		tags:        repository.NewTagRepository(store, logger),
	}
	e.svc = NewService(
		repository.NewRecipeRepository(store, logger),
		e.ingredients,
		e.tags,
		repository.NewListRepository(store, logger),
		common.LinksConfig{PublicBaseURL: "https://foodgram.example/", ShortPath: "s"},
		logger,
	)

	for _, name := range []string{"alice", "bob"} {
		u, err := e.users.Create(ctx, &entity.User{Email: name + "@example.com", Username: name})
		require.NoError(t, err)
		if name == "alice" {
			e.alice = u.ID
		} else {
			e.bob = u.ID
		}
	}
	milk, _, err := e.ingredients.GetOrCreate(ctx, "milk", "ml")
	require.NoError(t, err)
	egg, _, err := e.ingredients.GetOrCreate(ctx, "egg", "pcs")
	require.NoError(t, err)
	tag, _, err := e.tags.GetOrCreate(ctx, "Breakfast", "breakfast")
	require.NoError(t, err)
	e.milk, e.egg, e.breakfast = milk.ID, egg.ID, tag.ID
	return e
}

func (e *env) request() RecipeRequest {
	return RecipeRequest{
		Name:        "Pancakes",
		Text:        "Whisk and fry.",
		CookingTime: 20,
		Ingredients: []IngredientRequest{{ID: e.milk, Amount: 200}, {ID: e.egg, Amount: 2}},
		Tags:        []uuid.UUID{e.breakfast},
	}
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.svc.Create(ctx, e.alice, e.request())
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", rec.Name)
	assert.Equal(t, e.alice, rec.Author.ID)
	assert.Len(t, rec.ShortCode, constants.ShortCodeLength)
	assert.Len(t, rec.Ingredients, 2)
	assert.Len(t, rec.Tags, 1)
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := map[string]func(r *RecipeRequest){
		"EmptyName":           func(r *RecipeRequest) { r.Name = "  " },
		"LongName":            func(r *RecipeRequest) { r.Name = strings.Repeat("x", constants.NameMaxLength+1) },
		"EmptyText":           func(r *RecipeRequest) { r.Text = "" },
		"ZeroCookingTime":     func(r *RecipeRequest) { r.CookingTime = 0 },
		"NoIngredients":       func(r *RecipeRequest) { r.Ingredients = nil },
		"ZeroAmount":          func(r *RecipeRequest) { r.Ingredients[0].Amount = 0 },
		"DuplicateIngredient": func(r *RecipeRequest) { r.Ingredients[1].ID = r.Ingredients[0].ID },
		"UnknownIngredient":   func(r *RecipeRequest) { r.Ingredients[0].ID = uuid.New() },
		"NoTags":              func(r *RecipeRequest) { r.Tags = nil },
		"DuplicateTag":        func(r *RecipeRequest) { r.Tags = append(r.Tags, r.Tags[0]) },
		"UnknownTag":          func(r *RecipeRequest) { r.Tags = []uuid.UUID{uuid.New()} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := e.request()
			mutate(&req)
			_, err := e.svc.Create(ctx, e.alice, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation), err.Error())
		})
	}
}

func TestOnlyAuthorMayChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.svc.Create(ctx, e.alice, e.request())
	require.NoError(t, err)

	req := e.request()
	req.Name = "Stolen pancakes"
	_, err = e.svc.Update(ctx, e.bob, rec.ID, req)
	assert.True(t, errors.Is(err, common.ErrForbidden))
	assert.True(t, errors.Is(e.svc.Delete(ctx, e.bob, rec.ID), common.ErrForbidden))

	req.Name = "Better pancakes"
	updated, err := e.svc.Update(ctx, e.alice, rec.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Better pancakes", updated.Name)
	assert.Equal(t, rec.ShortCode, updated.ShortCode)

	require.NoError(t, e.svc.Delete(ctx, e.alice, rec.ID))
	_, err = e.svc.Get(ctx, rec.ID, nil)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestShortLinks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.svc.Create(ctx, e.alice, e.request())
	require.NoError(t, err)

	link, err := e.svc.ShortLink(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://foodgram.example/s/"+rec.ShortCode+"/", link)

	id, err := e.svc.Expand(ctx, rec.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, id)

	_, err = e.svc.Expand(ctx, "nope00")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestShortCodeCollisionRetries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	codes := []string{"abc123", "abc123", "def456"}
	e.svc.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	first, err := e.svc.Create(ctx, e.alice, e.request())
	require.NoError(t, err)
	assert.Equal(t, "abc123", first.ShortCode)

	second, err := e.svc.Create(ctx, e.alice, e.request())
	require.NoError(t, err)
	assert.Equal(t, "def456", second.ShortCode)
}

func TestLists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.svc.Create(ctx, e.alice, e.request())
	require.NoError(t, err)

	got, err := e.svc.AddToList(ctx, e.bob, rec.ID, constants.ListKindShoppingCart)
	require.NoError(t, err)
	assert.True(t, got.IsInShoppingCart)
	assert.False(t, got.IsFavorited)

	_, err = e.svc.AddToList(ctx, e.bob, rec.ID, constants.ListKindShoppingCart)
	assert.True(t, errors.Is(err, common.ErrAlreadyExists))

	inCart, err := e.svc.List(ctx, entity.RecipeFilter{InCartOf: &e.bob}, &e.bob)
	require.NoError(t, err)
	assert.Len(t, inCart, 1)

	// Anonymous callers cannot filter by personal lists.
	all, err := e.svc.List(ctx, entity.RecipeFilter{InCartOf: &e.alice}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, e.svc.RemoveFromList(ctx, e.bob, rec.ID, constants.ListKindShoppingCart))
	err = e.svc.RemoveFromList(ctx, e.bob, rec.ID, constants.ListKindShoppingCart)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	err = e.svc.RemoveFromList(ctx, e.bob, uuid.New(), constants.ListKindFavorite)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
