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

type SubscriptionRepository interface {
	Subscribe(ctx context.Context, userID, authorID uuid.UUID) error
	Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error
	IsSubscribed(ctx context.Context, userID, authorID uuid.UUID) (bool, error)
	// ListAuthors returns the authors userID follows, in subscription order.
	ListAuthors(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)
}

type subscriptionRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewSubscriptionRepository(store *Store, logger *zap.Logger) SubscriptionRepository {
	return &subscriptionRepository{
		store:  store,
		logger: logger,
	}
}

func (r *subscriptionRepository) Subscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	if userID == authorID {
		return common.InvalidInput("cannot subscribe to yourself")
	}
	b := r.store.builder()

	n, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("users")).Where(entsql.EQ("id", authorID)))
	if err != nil {
		r.logger.Error("failed to check author existence", zap.Stringer("author_id", authorID), zap.Error(err))
		return err
	}
	if n == 0 {
		return common.NotFound(fmt.Sprintf("user %s not found", authorID))
	}

	affected, err := exec(ctx, r.store.Driver, b.Insert("subscriptions").
		Columns("user_id", "author_id", "created_at").
		Values(userID, authorID, nowNano()).
		OnConflict(entsql.ConflictColumns("user_id", "author_id"), entsql.DoNothing()))
	if err != nil {
		r.logger.Error("failed to subscribe", zap.Stringer("user_id", userID), zap.Stringer("author_id", authorID), zap.Error(err))
		return err
	}
	if affected == 0 {
		return common.AlreadyExists("already subscribed to this author")
	}
	return nil
}

func (r *subscriptionRepository) Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	b := r.store.builder()
	affected, err := exec(ctx, r.store.Driver, b.Delete("subscriptions").
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("author_id", authorID))))
	if err != nil {
		r.logger.Error("failed to unsubscribe", zap.Stringer("user_id", userID), zap.Stringer("author_id", authorID), zap.Error(err))
		return err
	}
	if affected == 0 {
		return common.NotFound("not subscribed to this author")
	}
	return nil
}

func (r *subscriptionRepository) IsSubscribed(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	b := r.store.builder()
	n, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("subscriptions")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("author_id", authorID))))
	return n > 0, err
}

func (r *subscriptionRepository) ListAuthors(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	b := r.store.builder()
	subs, users := b.Table("subscriptions").As("s"), b.Table("users").As("u")
	sel := b.Select(users.C("id"), users.C("email"), users.C("username"), users.C("first_name"), users.C("last_name"), users.C("created_at")).
		From(subs).
		Join(users).On(subs.C("author_id"), users.C("id")).
		Where(entsql.EQ(subs.C("user_id"), userID)).
		OrderBy(subs.C("created_at"), users.C("id"))

	out := []*entity.Subscription{}
	ids := []any{}
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		u.IsSubscribed = true
		out = append(out, &entity.Subscription{Author: *u})
		ids = append(ids, u.ID)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list subscriptions", zap.Stringer("user_id", userID), zap.Error(err))
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	counts := make(map[uuid.UUID]int, len(out))
	err = queryRows(ctx, r.store.Driver, b.Select("author_id", entsql.Count("*")).
		From(b.Table("recipes")).
		Where(entsql.In("author_id", ids...)).
		GroupBy("author_id"),
		func(rows *entsql.Rows) error {
			var (
				author uuid.UUID
				n      int
			)
			if err := rows.Scan(&author, &n); err != nil {
				return err
			}
			counts[author] = n
			return nil
		})
	if err != nil {
		r.logger.Error("failed to count author recipes", zap.Stringer("user_id", userID), zap.Error(err))
		return nil, err
	}
	for _, s := range out {
		s.RecipesCount = counts[s.Author.ID]
	}
	return out, nil
}
