package repository

import (
	"context"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
)

type IngredientRepository interface {
	// GetOrCreate returns the ingredient with the given name and unit, creating it if needed.
	GetOrCreate(ctx context.Context, name, unit string) (*entity.Ingredient, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Ingredient, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Ingredient, error)
	// Search matches by case-insensitive prefix, or by substring when the term is all digits.
	Search(ctx context.Context, term string) ([]*entity.Ingredient, error)
	Count(ctx context.Context) (int, error)
}

type ingredientRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewIngredientRepository(store *Store, logger *zap.Logger) IngredientRepository {
	return &ingredientRepository{
		store:  store,
		logger: logger,
	}
}

func (r *ingredientRepository) GetOrCreate(ctx context.Context, name, unit string) (*entity.Ingredient, bool, error) {
	b := r.store.builder()
	id := uuid.New()

	_, err := exec(ctx, r.store.Driver, b.Insert("ingredients").
		Columns("id", "name", "measurement_unit").
		Values(id, name, unit).
		OnConflict(entsql.ConflictColumns("name", "measurement_unit"), entsql.DoNothing()))
	if err != nil {
		r.logger.Error("failed to insert ingredient", zap.String("name", name), zap.String("unit", unit), zap.Error(err))
		return nil, false, err
	}

	found, err := r.list(ctx, b.Select("id", "name", "measurement_unit").From(b.Table("ingredients")).
		Where(entsql.And(entsql.EQ("name", name), entsql.EQ("measurement_unit", unit))))
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		return nil, false, fmt.Errorf("ingredient %q (%s) vanished after insert", name, unit)
	}
	return found[0], found[0].ID == id, nil
}

func (r *ingredientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Ingredient, error) {
	byID, err := r.GetByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	ing, ok := byID[id]
	if !ok {
		return nil, common.NotFound(fmt.Sprintf("ingredient %s not found", id))
	}
	return ing, nil
}

func (r *ingredientRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Ingredient, error) {
	out := make(map[uuid.UUID]*entity.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	b := r.store.builder()
	found, err := r.list(ctx, b.Select("id", "name", "measurement_unit").From(b.Table("ingredients")).
		Where(entsql.In("id", uuidArgs(ids)...)))
	if err != nil {
		r.logger.Error("failed to get ingredients", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}
	for _, ing := range found {
		out[ing.ID] = ing
	}
	return out, nil
}

func (r *ingredientRepository) Search(ctx context.Context, term string) ([]*entity.Ingredient, error) {
	b := r.store.builder()
	sel := b.Select("id", "name", "measurement_unit").From(b.Table("ingredients"))

	term = strings.TrimSpace(term)
	if term != "" {
		if isDigits(term) {
			sel.Where(entsql.Contains("name", term))
		} else {
			prefix := strings.ToLower(term)
			sel.Where(entsql.P(func(pb *entsql.Builder) {
				pb.WriteString("LOWER(").Ident("name").WriteString(") LIKE ").Arg(escapeLike(prefix) + "%")
			}))
		}
	}

	found, err := r.list(ctx, sel.OrderBy("name", "measurement_unit"))
	if err != nil {
		r.logger.Error("failed to search ingredients", zap.String("term", term), zap.Error(err))
		return nil, err
	}
	return found, nil
}

func (r *ingredientRepository) Count(ctx context.Context) (int, error) {
	b := r.store.builder()
	return count(ctx, r.store.Driver, b.Select().Count().From(b.Table("ingredients")))
}

func (r *ingredientRepository) list(ctx context.Context, sel *entsql.Selector) ([]*entity.Ingredient, error) {
	var out []*entity.Ingredient
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var ing entity.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.MeasurementUnit); err != nil {
			return err
		}
		out = append(out, &ing)
		return nil
	})
	return out, err
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// escapeLike drops LIKE wildcards from user input.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

func uuidArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
