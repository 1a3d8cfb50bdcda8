package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
)

// IngredientAmount is one ingredient line of a recipe being written.
type IngredientAmount struct {
	IngredientID uuid.UUID
	Amount       int
}

// RecipeInput wraps the writable fields of a recipe.
type RecipeInput struct {
	AuthorID    uuid.UUID
	Name        string
	Text        string
	CookingTime int
	ShortCode   string
	Ingredients []IngredientAmount
	TagIDs      []uuid.UUID
}

type RecipeRepository interface {
	Create(ctx context.Context, in *RecipeInput) (uuid.UUID, error)
	// Update replaces fields, ingredients and tags. AuthorID and ShortCode are ignored.
	Update(ctx context.Context, id uuid.UUID, in *RecipeInput) error
	Delete(ctx context.Context, id uuid.UUID) error
	// GetByID loads a recipe; viewer (may be nil) drives the per-user flags.
	GetByID(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*entity.Recipe, error)
	AuthorOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	IDByShortCode(ctx context.Context, code string) (uuid.UUID, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter entity.RecipeFilter, viewer *uuid.UUID) ([]*entity.Recipe, error)
	CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error)
}

type recipeRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewRecipeRepository(store *Store, logger *zap.Logger) RecipeRepository {
	return &recipeRepository{
		store:  store,
		logger: logger,
	}
}

func (r *recipeRepository) Create(ctx context.Context, in *RecipeInput) (uuid.UUID, error) {
	b := r.store.builder()
	id := uuid.New()

	err := r.store.WithTx(ctx, func(tx querier) error {
		_, err := exec(ctx, tx, b.Insert("recipes").
			Columns("id", "author_id", "name", "text", "cooking_time", "short_code", "created_at").
			Values(id, in.AuthorID, in.Name, in.Text, in.CookingTime, in.ShortCode, nowNano()))
		if err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		return r.writeLinks(ctx, tx, id, in)
	})
	if err != nil {
		r.logger.Error("failed to create recipe", zap.Stringer("author_id", in.AuthorID), zap.String("name", in.Name), zap.Error(err))
		return uuid.Nil, err
	}
	return id, nil
}

func (r *recipeRepository) Update(ctx context.Context, id uuid.UUID, in *RecipeInput) error {
	b := r.store.builder()

	err := r.store.WithTx(ctx, func(tx querier) error {
		n, err := exec(ctx, tx, b.Update("recipes").
			Set("name", in.Name).
			Set("text", in.Text).
			Set("cooking_time", in.CookingTime).
			Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		if n == 0 {
			return common.NotFound(fmt.Sprintf("recipe %s not found", id))
		}
		if err := r.deleteLinks(ctx, tx, id); err != nil {
			return err
		}
		return r.writeLinks(ctx, tx, id, in)
	})
	if err != nil {
		r.logger.Error("failed to update recipe", zap.Stringer("recipe_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *recipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	b := r.store.builder()

	err := r.store.WithTx(ctx, func(tx querier) error {
		if err := r.deleteLinks(ctx, tx, id); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, b.Delete("user_recipe_lists").Where(entsql.EQ("recipe_id", id))); err != nil {
			return fmt.Errorf("delete list entries: %w", err)
		}
		n, err := exec(ctx, tx, b.Delete("recipes").Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		if n == 0 {
			return common.NotFound(fmt.Sprintf("recipe %s not found", id))
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to delete recipe", zap.Stringer("recipe_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *recipeRepository) writeLinks(ctx context.Context, tx querier, id uuid.UUID, in *RecipeInput) error {
	b := r.store.builder()
	if len(in.Ingredients) > 0 {
		ins := b.Insert("recipe_ingredients").Columns("recipe_id", "ingredient_id", "amount", "position")
		for i, ia := range in.Ingredients {
			ins.Values(id, ia.IngredientID, ia.Amount, i)
		}
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert recipe ingredients: %w", err)
		}
	}
	if len(in.TagIDs) > 0 {
		ins := b.Insert("recipe_tags").Columns("recipe_id", "tag_id")
		for _, tagID := range in.TagIDs {
			ins.Values(id, tagID)
		}
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert recipe tags: %w", err)
		}
	}
	return nil
}

func (r *recipeRepository) deleteLinks(ctx context.Context, tx querier, id uuid.UUID) error {
	b := r.store.builder()
	if _, err := exec(ctx, tx, b.Delete("recipe_ingredients").Where(entsql.EQ("recipe_id", id))); err != nil {
		return fmt.Errorf("delete recipe ingredients: %w", err)
	}
	if _, err := exec(ctx, tx, b.Delete("recipe_tags").Where(entsql.EQ("recipe_id", id))); err != nil {
		return fmt.Errorf("delete recipe tags: %w", err)
	}
	return nil
}

func (r *recipeRepository) GetByID(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*entity.Recipe, error) {
	sel, rt := r.baseSelect()
	recipes, err := r.load(ctx, sel.Where(entsql.EQ(rt.C("id"), id)), viewer)
	if err != nil {
		r.logger.Error("failed to get recipe", zap.Stringer("recipe_id", id), zap.Error(err))
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, common.NotFound(fmt.Sprintf("recipe %s not found", id))
	}
	return recipes[0], nil
}

func (r *recipeRepository) AuthorOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	b := r.store.builder()
	var author uuid.UUID
	found := false
	err := queryRows(ctx, r.store.Driver, b.Select("author_id").From(b.Table("recipes")).Where(entsql.EQ("id", id)),
		func(rows *entsql.Rows) error {
			found = true
			return rows.Scan(&author)
		})
	if err != nil {
		r.logger.Error("failed to get recipe author", zap.Stringer("recipe_id", id), zap.Error(err))
		return uuid.Nil, err
	}
	if !found {
		return uuid.Nil, common.NotFound(fmt.Sprintf("recipe %s not found", id))
	}
	return author, nil
}

func (r *recipeRepository) IDByShortCode(ctx context.Context, code string) (uuid.UUID, error) {
	b := r.store.builder()
	var id uuid.UUID
	found := false
	err := queryRows(ctx, r.store.Driver, b.Select("id").From(b.Table("recipes")).Where(entsql.EQ("short_code", code)),
		func(rows *entsql.Rows) error {
			found = true
			return rows.Scan(&id)
		})
	if err != nil {
		r.logger.Error("failed to resolve short code", zap.String("code", code), zap.Error(err))
		return uuid.Nil, err
	}
	if !found {
		return uuid.Nil, common.NotFound(fmt.Sprintf("short link %q not found", code))
	}
	return id, nil
}

func (r *recipeRepository) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	b := r.store.builder()
	n, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("recipes")).Where(entsql.EQ("short_code", code)))
	return n > 0, err
}

func (r *recipeRepository) CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	b := r.store.builder()
	return count(ctx, r.store.Driver, b.Select().Count().From(b.Table("recipes")).Where(entsql.EQ("author_id", authorID)))
}

func (r *recipeRepository) List(ctx context.Context, filter entity.RecipeFilter, viewer *uuid.UUID) ([]*entity.Recipe, error) {
	b := r.store.builder()
	sel, rt := r.baseSelect()

	var preds []*entsql.Predicate
	if filter.AuthorID != nil {
		preds = append(preds, entsql.EQ(rt.C("author_id"), *filter.AuthorID))
	}
	if len(filter.TagSlugs) > 0 {
		links, tags := b.Table("recipe_tags").As("ft"), b.Table("tags").As("ftg")
		sub := b.Select(links.C("recipe_id")).From(links).
			Join(tags).On(links.C("tag_id"), tags.C("id")).
			Where(entsql.In(tags.C("slug"), stringArgs(filter.TagSlugs)...))
		preds = append(preds, entsql.In(rt.C("id"), sub))
	}
	if filter.FavoritedBy != nil {
		preds = append(preds, entsql.In(rt.C("id"), r.listSubquery(*filter.FavoritedBy, constants.ListKindFavorite)))
	}
	if filter.InCartOf != nil {
		preds = append(preds, entsql.In(rt.C("id"), r.listSubquery(*filter.InCartOf, constants.ListKindShoppingCart)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}

	recipes, err := r.load(ctx, sel, viewer)
	if err != nil {
		r.logger.Error("failed to list recipes", zap.Error(err))
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) listSubquery(userID uuid.UUID, kind constants.ListKind) *entsql.Selector {
	b := r.store.builder()
	return b.Select("recipe_id").From(b.Table("user_recipe_lists")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("kind", string(kind))))
}

// baseSelect selects recipes joined with their authors, newest first.
func (r *recipeRepository) baseSelect() (*entsql.Selector, *entsql.SelectTable) {
	b := r.store.builder()
	rt, ut := b.Table("recipes").As("r"), b.Table("users").As("u")
	sel := b.Select(
		rt.C("id"), rt.C("name"), rt.C("text"), rt.C("cooking_time"), rt.C("short_code"), rt.C("created_at"),
		ut.C("id"), ut.C("email"), ut.C("username"), ut.C("first_name"), ut.C("last_name"), ut.C("created_at"),
	).From(rt).
		Join(ut).On(rt.C("author_id"), ut.C("id")).
		OrderBy(entsql.Desc(rt.C("created_at")), rt.C("id"))
	return sel, rt
}

func (r *recipeRepository) load(ctx context.Context, sel *entsql.Selector, viewer *uuid.UUID) ([]*entity.Recipe, error) {
	var recipes []*entity.Recipe
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var (
			rec                  entity.Recipe
			created, userCreated int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Text, &rec.CookingTime, &rec.ShortCode, &created,
			&rec.Author.ID, &rec.Author.Email, &rec.Author.Username, &rec.Author.FirstName, &rec.Author.LastName, &userCreated,
		); err != nil {
			return err
		}
		rec.CreatedAt = fromNano(created)
		rec.Author.CreatedAt = fromNano(userCreated)
		rec.Tags = []entity.Tag{}
		rec.Ingredients = []entity.RecipeIngredient{}
		recipes = append(recipes, &rec)
		return nil
	})
	if err != nil || len(recipes) == 0 {
		return recipes, err
	}

	byID := make(map[uuid.UUID]*entity.Recipe, len(recipes))
	ids := make([]any, 0, len(recipes))
	for _, rec := range recipes {
		byID[rec.ID] = rec
		ids = append(ids, rec.ID)
	}

	if err := r.loadTags(ctx, byID, ids); err != nil {
		return nil, err
	}
	if err := r.loadIngredients(ctx, byID, ids); err != nil {
		return nil, err
	}
	if viewer != nil {
		if err := r.loadViewerFlags(ctx, recipes, byID, ids, *viewer); err != nil {
			return nil, err
		}
	}
	return recipes, nil
}

func (r *recipeRepository) loadTags(ctx context.Context, byID map[uuid.UUID]*entity.Recipe, ids []any) error {
	b := r.store.builder()
	links, tags := b.Table("recipe_tags").As("rtg"), b.Table("tags").As("t")
	sel := b.Select(links.C("recipe_id"), tags.C("id"), tags.C("name"), tags.C("slug")).
		From(links).
		Join(tags).On(links.C("tag_id"), tags.C("id")).
		Where(entsql.In(links.C("recipe_id"), ids...)).
		OrderBy(tags.C("name"))
	return queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var (
			recipeID uuid.UUID
			t        entity.Tag
		)
		if err := rows.Scan(&recipeID, &t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}
		if rec, ok := byID[recipeID]; ok {
			rec.Tags = append(rec.Tags, t)
		}
		return nil
	})
}

func (r *recipeRepository) loadIngredients(ctx context.Context, byID map[uuid.UUID]*entity.Recipe, ids []any) error {
	b := r.store.builder()
	links, ings := b.Table("recipe_ingredients").As("ri"), b.Table("ingredients").As("i")
	sel := b.Select(links.C("recipe_id"), ings.C("id"), ings.C("name"), ings.C("measurement_unit"), links.C("amount")).
		From(links).
		Join(ings).On(links.C("ingredient_id"), ings.C("id")).
		Where(entsql.In(links.C("recipe_id"), ids...)).
		OrderBy(links.C("position"))
	return queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var (
			recipeID uuid.UUID
			ri       entity.RecipeIngredient
		)
		if err := rows.Scan(&recipeID, &ri.IngredientID, &ri.Name, &ri.MeasurementUnit, &ri.Amount); err != nil {
			return err
		}
		if rec, ok := byID[recipeID]; ok {
			rec.Ingredients = append(rec.Ingredients, ri)
		}
		return nil
	})
}

func (r *recipeRepository) loadViewerFlags(ctx context.Context, recipes []*entity.Recipe, byID map[uuid.UUID]*entity.Recipe, ids []any, viewer uuid.UUID) error {
	b := r.store.builder()
	sel := b.Select("recipe_id", "kind").From(b.Table("user_recipe_lists")).
		Where(entsql.And(entsql.EQ("user_id", viewer), entsql.In("recipe_id", ids...)))
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var (
			recipeID uuid.UUID
			kind     string
		)
		if err := rows.Scan(&recipeID, &kind); err != nil {
			return err
		}
		rec, ok := byID[recipeID]
		if !ok {
			return nil
		}
		switch constants.ListKind(kind) {
		case constants.ListKindFavorite:
			rec.IsFavorited = true
		case constants.ListKindShoppingCart:
			rec.IsInShoppingCart = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	following := make(map[uuid.UUID]bool)
	err = queryRows(ctx, r.store.Driver, b.Select("author_id").From(b.Table("subscriptions")).Where(entsql.EQ("user_id", viewer)),
		func(rows *entsql.Rows) error {
			var author uuid.UUID
			if err := rows.Scan(&author); err != nil {
				return err
			}
			following[author] = true
			return nil
		})
	if err != nil {
		return err
	}
	for _, rec := range recipes {
		rec.Author.IsSubscribed = following[rec.Author.ID]
	}
	return nil
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

