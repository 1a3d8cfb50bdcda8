// Package ingest loads ingredient and tag fixtures (JSON or CSV) into the store.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/foodgram/internal/entity"
)

// Kind names the catalog a fixture file feeds.
type Kind string

const (
	KindIngredients Kind = "ingredients"
	KindTags        Kind = "tags"
)

// FileResult is the per-file load outcome.
type FileResult struct {
	Path     string
	Kind     Kind
	Records  uint32
	Created  uint32
	Existing uint32
	Failed   uint32
	Err      string
}

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
	Created   uint32
	Existing  uint32
}

// IngredientStore is the part of the ingredient repository the loader needs.
type IngredientStore interface {
	GetOrCreate(ctx context.Context, name, unit string) (*entity.Ingredient, bool, error)
}

// TagStore is the part of the tag repository the loader needs.
type TagStore interface {
	GetOrCreate(ctx context.Context, name, slug string) (*entity.Tag, bool, error)
}
