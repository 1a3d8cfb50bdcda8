package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/shoppinglist"
)

// ListRepository manages per-user recipe lists (favorites and the shopping cart).
type ListRepository interface {
	Add(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) error
	Remove(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) error
	Contains(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) (bool, error)
	RecipeIDs(ctx context.Context, userID uuid.UUID, kind constants.ListKind) ([]uuid.UUID, error)
}

// ShoppingCartReader exposes the raw cart contents used to build a shopping list.
type ShoppingCartReader interface {
	// CartLines returns one row per ingredient line of every recipe in the cart, unsummed.
	CartLines(ctx context.Context, userID uuid.UUID) ([]shoppinglist.IngredientLine, error)
	// CartRecipeNames returns the cart's recipe names in insertion order.
	CartRecipeNames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type listRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewListRepository(store *Store, logger *zap.Logger) ListRepository {
	return &listRepository{
		store:  store,
		logger: logger,
	}
}

func NewShoppingCartReader(store *Store, logger *zap.Logger) ShoppingCartReader {
	return &listRepository{
		store:  store,
		logger: logger,
	}
}

func (r *listRepository) Add(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) error {
	b := r.store.builder()

	n, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("recipes")).Where(entsql.EQ("id", recipeID)))
	if err != nil {
		r.logger.Error("failed to check recipe existence", zap.Stringer("recipe_id", recipeID), zap.Error(err))
		return err
	}
	if n == 0 {
		return common.NotFound(fmt.Sprintf("recipe %s not found", recipeID))
	}

	affected, err := exec(ctx, r.store.Driver, b.Insert("user_recipe_lists").
		Columns("user_id", "recipe_id", "kind", "created_at").
		Values(userID, recipeID, string(kind), nowNano()).
		OnConflict(entsql.ConflictColumns("user_id", "recipe_id", "kind"), entsql.DoNothing()))
	if err != nil {
		r.logger.Error("failed to add recipe to list",
			zap.Stringer("user_id", userID), zap.Stringer("recipe_id", recipeID), zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	if affected == 0 {
		return common.AlreadyExists(fmt.Sprintf("recipe is already in %s", kindLabel(kind)))
	}
	r.logger.Debug("recipe added to list",
		zap.Stringer("user_id", userID), zap.Stringer("recipe_id", recipeID), zap.String("kind", string(kind)))
	return nil
}

func (r *listRepository) Remove(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) error {
	b := r.store.builder()
	affected, err := exec(ctx, r.store.Driver, b.Delete("user_recipe_lists").Where(entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("recipe_id", recipeID),
		entsql.EQ("kind", string(kind)),
	)))
	if err != nil {
		r.logger.Error("failed to remove recipe from list",
			zap.Stringer("user_id", userID), zap.Stringer("recipe_id", recipeID), zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	if affected == 0 {
		return common.NotFound(fmt.Sprintf("recipe is not in %s", kindLabel(kind)))
	}
	return nil
}

func (r *listRepository) Contains(ctx context.Context, userID, recipeID uuid.UUID, kind constants.ListKind) (bool, error) {
	b := r.store.builder()
	n, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("user_recipe_lists")).Where(entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("recipe_id", recipeID),
		entsql.EQ("kind", string(kind)),
	)))
	return n > 0, err
}

func (r *listRepository) RecipeIDs(ctx context.Context, userID uuid.UUID, kind constants.ListKind) ([]uuid.UUID, error) {
	b := r.store.builder()
	sel := b.Select("recipe_id").From(b.Table("user_recipe_lists")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("kind", string(kind)))).
		OrderBy("created_at", "recipe_id")

	ids := []uuid.UUID{}
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list recipe ids", zap.Stringer("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	return ids, nil
}

func (r *listRepository) CartLines(ctx context.Context, userID uuid.UUID) ([]shoppinglist.IngredientLine, error) {
	b := r.store.builder()
	lists, links, ings := b.Table("user_recipe_lists").As("l"), b.Table("recipe_ingredients").As("ri"), b.Table("ingredients").As("i")
	sel := b.Select(ings.C("name"), ings.C("measurement_unit"), links.C("amount")).
		From(lists).
		Join(links).On(lists.C("recipe_id"), links.C("recipe_id")).
		Join(ings).On(links.C("ingredient_id"), ings.C("id")).
		Where(entsql.And(
			entsql.EQ(lists.C("user_id"), userID),
			entsql.EQ(lists.C("kind"), string(constants.ListKindShoppingCart)),
		))

	lines := []shoppinglist.IngredientLine{}
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var l shoppinglist.IngredientLine
		if err := rows.Scan(&l.Name, &l.MeasurementUnit, &l.Amount); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to read cart lines", zap.Stringer("user_id", userID), zap.Error(err))
		return nil, err
	}
	return lines, nil
}

func (r *listRepository) CartRecipeNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	b := r.store.builder()
	lists, recipes := b.Table("user_recipe_lists").As("l"), b.Table("recipes").As("r")
	sel := b.Select(recipes.C("name")).
		From(lists).
		Join(recipes).On(lists.C("recipe_id"), recipes.C("id")).
		Where(entsql.And(
			entsql.EQ(lists.C("user_id"), userID),
			entsql.EQ(lists.C("kind"), string(constants.ListKindShoppingCart)),
		)).
		OrderBy(lists.C("created_at"), recipes.C("id"))

	names := []string{}
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to read cart recipes", zap.Stringer("user_id", userID), zap.Error(err))
		return nil, err
	}
	return names, nil
}

func kindLabel(kind constants.ListKind) string {
	if kind == constants.ListKindShoppingCart {
		return "the shopping cart"
	}
	return "favorites"
}
