package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
	"github.com/joseph-ayodele/foodgram/internal/repository"
)

// maxShortCodeAttempts bounds short code regeneration on collisions.
const maxShortCodeAttempts = 20

// Service handles recipe business logic.
type Service struct {
	recipes     repository.RecipeRepository
	ingredients repository.IngredientRepository
	tags        repository.TagRepository
	lists       repository.ListRepository
	links       common.LinksConfig
	newCode     func() string
	logger      *zap.Logger
}

// NewService creates a new recipe service.
func NewService(
	recipes repository.RecipeRepository,
	ingredients repository.IngredientRepository,
	tags repository.TagRepository,
	lists repository.ListRepository,
	links common.LinksConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		recipes:     recipes,
		ingredients: ingredients,
		tags:        tags,
		lists:       lists,
		links:       links,
		newCode:     randomShortCode,
		logger:      logger,
	}
}

// IngredientRequest is one ingredient line of a recipe request.
type IngredientRequest struct {
	ID     uuid.UUID `json:"id" validate:"required"`
	Amount int       `json:"amount"`
}

// RecipeRequest represents recipe creation and update parameters.
type RecipeRequest struct {
	Name        string              `json:"name"`
	Text        string              `json:"text"`
	CookingTime int                 `json:"cooking_time"`
	Ingredients []IngredientRequest `json:"ingredients"`
	Tags        []uuid.UUID         `json:"tags"`
}

// Create validates req and stores a new recipe written by authorID.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, req RecipeRequest) (*entity.Recipe, error) {
	in, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	in.AuthorID = authorID

	code, err := s.uniqueShortCode(ctx)
	if err != nil {
		return nil, err
	}
	in.ShortCode = code

	id, err := s.recipes.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	s.logger.Info("recipe created successfully", zap.Stringer("recipe_id", id), zap.Stringer("author_id", authorID))
	return s.recipes.GetByID(ctx, id, &authorID)
}

// Update replaces a recipe's content. Only its author may do so.
func (s *Service) Update(ctx context.Context, callerID, recipeID uuid.UUID, req RecipeRequest) (*entity.Recipe, error) {
	if err := s.authorize(ctx, callerID, recipeID); err != nil {
		return nil, err
	}
	in, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.recipes.Update(ctx, recipeID, in); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	s.logger.Info("recipe updated successfully", zap.Stringer("recipe_id", recipeID))
	return s.recipes.GetByID(ctx, recipeID, &callerID)
}

// Delete removes a recipe. Only its author may do so.
func (s *Service) Delete(ctx context.Context, callerID, recipeID uuid.UUID) error {
	if err := s.authorize(ctx, callerID, recipeID); err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, recipeID); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.logger.Info("recipe deleted successfully", zap.Stringer("recipe_id", recipeID))
	return nil
}

// Get returns one recipe; viewer may be nil for anonymous callers.
func (s *Service) Get(ctx context.Context, recipeID uuid.UUID, viewer *uuid.UUID) (*entity.Recipe, error) {
	return s.recipes.GetByID(ctx, recipeID, viewer)
}

// List returns recipes matching filter, newest first. The favorite and cart
// constraints only apply to a known viewer.
func (s *Service) List(ctx context.Context, filter entity.RecipeFilter, viewer *uuid.UUID) ([]*entity.Recipe, error) {
	if viewer == nil {
		filter.FavoritedBy = nil
		filter.InCartOf = nil
	}
	out, err := s.recipes.List(ctx, filter, viewer)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return out, nil
}

// ShortLink returns the absolute short URL of a recipe.
func (s *Service) ShortLink(ctx context.Context, recipeID uuid.UUID) (string, error) {
	rec, err := s.recipes.GetByID(ctx, recipeID, nil)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(s.links.PublicBaseURL, "/")
	path := strings.Trim(s.links.ShortPath, "/")
	return fmt.Sprintf("%s/%s/%s/", base, path, rec.ShortCode), nil
}

// Expand resolves a short code to its recipe id.
func (s *Service) Expand(ctx context.Context, code string) (uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return uuid.Nil, common.NotFound("short link not found")
	}
	return s.recipes.IDByShortCode(ctx, code)
}

// AddToList puts a recipe on one of the user's lists and returns it.
func (s *Service) AddToList(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) (*entity.Recipe, error) {
	if err := s.lists.Add(ctx, userID, recipeID, kind); err != nil {
		return nil, err
	}
	s.logger.Info("recipe added to list",
		zap.Stringer("user_id", userID), zap.Stringer("recipe_id", recipeID), zap.String("kind", string(kind)))
	return s.recipes.GetByID(ctx, recipeID, &userID)
}

// RemoveFromList takes a recipe off one of the user's lists.
func (s *Service) RemoveFromList(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) error {
	if _, err := s.recipes.AuthorOf(ctx, recipeID); err != nil {
		return err
	}
	if err := s.lists.Remove(ctx, userID, recipeID, kind); err != nil {
		return err
	}
	s.logger.Info("recipe removed from list",
		zap.Stringer("user_id", userID), zap.Stringer("recipe_id", recipeID), zap.String("kind", string(kind)))
	return nil
}

func (s *Service) authorize(ctx context.Context, callerID, recipeID uuid.UUID) error {
	author, err := s.recipes.AuthorOf(ctx, recipeID)
	if err != nil {
		return err
	}
	if author != callerID {
		return common.Forbidden("only the author may change this recipe")
	}
	return nil
}

func (s *Service) validate(ctx context.Context, req RecipeRequest) (*repository.RecipeInput, error) {
	name := strings.TrimSpace(req.Name)
	text := strings.TrimSpace(req.Text)

	v := common.NewValidator()
	v.Field("name", name, common.Required, common.MaxLength(constants.NameMaxLength))
	v.Field("text", text, common.Required)
	v.Field("cooking_time", req.CookingTime, common.Min(constants.MinCookingTime))
	v.Check(len(req.Ingredients) > 0, "ingredients", nil, "at least one ingredient is required")
	v.Check(len(req.Tags) > 0, "tags", nil, "at least one tag is required")

	seenIng := make(map[uuid.UUID]bool, len(req.Ingredients))
	ingIDs := make([]uuid.UUID, 0, len(req.Ingredients))
	lines := make([]repository.IngredientAmount, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		v.Field("ingredients.amount", ing.Amount, common.Min(constants.MinAmount))
		v.Check(!seenIng[ing.ID], "ingredients", ing.ID, "ingredients must not repeat")
		if !seenIng[ing.ID] {
			ingIDs = append(ingIDs, ing.ID)
		}
		seenIng[ing.ID] = true
		lines = append(lines, repository.IngredientAmount{IngredientID: ing.ID, Amount: ing.Amount})
	}

	seenTag := make(map[uuid.UUID]bool, len(req.Tags))
	tagIDs := make([]uuid.UUID, 0, len(req.Tags))
	for _, id := range req.Tags {
		v.Check(!seenTag[id], "tags", id, "tags must not repeat")
		if !seenTag[id] {
			tagIDs = append(tagIDs, id)
		}
		seenTag[id] = true
	}
	if err := v.Error(); err != nil {
		return nil, err
	}

	foundIng, err := s.ingredients.GetByIDs(ctx, ingIDs)
	if err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	for _, id := range ingIDs {
		v.Check(foundIng[id] != nil, "ingredients", id, "ingredient does not exist")
	}
	foundTags, err := s.tags.GetByIDs(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	for _, id := range tagIDs {
		v.Check(foundTags[id] != nil, "tags", id, "tag does not exist")
	}
	if err := v.Error(); err != nil {
		return nil, err
	}

	return &repository.RecipeInput{
		Name:        name,
		Text:        text,
		CookingTime: req.CookingTime,
		Ingredients: lines,
		TagIDs:      tagIDs,
	}, nil
}

func (s *Service) uniqueShortCode(ctx context.Context) (string, error) {
	for i := 0; i < maxShortCodeAttempts; i++ {
		code := s.newCode()
		exists, err := s.recipes.ShortCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code: %w", err)
		}
		if !exists {
			return code, nil
		}
		s.logger.Debug("short code collision", zap.String("code", code))
	}
	return "", common.NewAppError("INTERNAL", "could not allocate a short link", common.ErrInternal)
}

func randomShortCode() string {
	return uuid.NewString()[:constants.ShortCodeLength]
}
