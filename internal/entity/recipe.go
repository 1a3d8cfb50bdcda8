package entity

import (
	"time"

	"github.com/google/uuid"
)

// Recipe represents a recipe for data transfer between layers.
type Recipe struct {
	ID               uuid.UUID          `json:"id"`
	Author           User               `json:"author"`
	Name             string             `json:"name"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
	ShortCode        string             `json:"-"`
	Tags             []Tag              `json:"tags"`
	Ingredients      []RecipeIngredient `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	CreatedAt        time.Time          `json:"created_at"`
}

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	IngredientID    uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

// RecipeFilter narrows recipe listings. Zero values mean "no constraint".
type RecipeFilter struct {
	AuthorID    *uuid.UUID
	TagSlugs    []string
	FavoritedBy *uuid.UUID
	InCartOf    *uuid.UUID
}
