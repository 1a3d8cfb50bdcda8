package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
)

type TagRepository interface {
	GetOrCreate(ctx context.Context, name, slug string) (*entity.Tag, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Tag, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Tag, error)
	List(ctx context.Context) ([]*entity.Tag, error)
	Count(ctx context.Context) (int, error)
}

type tagRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewTagRepository(store *Store, logger *zap.Logger) TagRepository {
	return &tagRepository{
		store:  store,
		logger: logger,
	}
}

func (r *tagRepository) GetOrCreate(ctx context.Context, name, slug string) (*entity.Tag, bool, error) {
	b := r.store.builder()

	existing, err := r.list(ctx, b.Select("id", "name", "slug").From(b.Table("tags")).
		Where(entsql.Or(entsql.EQ("name", name), entsql.EQ("slug", slug))))
	if err != nil {
		return nil, false, err
	}
	for _, t := range existing {
		if t.Name == name && t.Slug == slug {
			return t, false, nil
		}
	}
	if len(existing) > 0 {
		return nil, false, common.AlreadyExists(fmt.Sprintf("tag name %q or slug %q is already taken", name, slug))
	}

	tag := &entity.Tag{ID: uuid.New(), Name: name, Slug: slug}
	_, err = exec(ctx, r.store.Driver, b.Insert("tags").Columns("id", "name", "slug").Values(tag.ID, tag.Name, tag.Slug))
	if err != nil {
		r.logger.Error("failed to create tag", zap.String("slug", slug), zap.Error(err))
		return nil, false, err
	}
	return tag, true, nil
}

func (r *tagRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Tag, error) {
	byID, err := r.GetByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	t, ok := byID[id]
	if !ok {
		return nil, common.NotFound(fmt.Sprintf("tag %s not found", id))
	}
	return t, nil
}

func (r *tagRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Tag, error) {
	out := make(map[uuid.UUID]*entity.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	b := r.store.builder()
	found, err := r.list(ctx, b.Select("id", "name", "slug").From(b.Table("tags")).Where(entsql.In("id", uuidArgs(ids)...)))
	if err != nil {
		r.logger.Error("failed to get tags", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}
	for _, t := range found {
		out[t.ID] = t
	}
	return out, nil
}

func (r *tagRepository) List(ctx context.Context) ([]*entity.Tag, error) {
	b := r.store.builder()
	tags, err := r.list(ctx, b.Select("id", "name", "slug").From(b.Table("tags")).OrderBy("name"))
	if err != nil {
		r.logger.Error("failed to list tags", zap.Error(err))
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) Count(ctx context.Context) (int, error) {
	b := r.store.builder()
	return count(ctx, r.store.Driver, b.Select().Count().From(b.Table("tags")))
}

func (r *tagRepository) list(ctx context.Context, sel *entsql.Selector) ([]*entity.Tag, error) {
	var out []*entity.Tag
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		var t entity.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}
		out = append(out, &t)
		return nil
	})
	return out, err
}
