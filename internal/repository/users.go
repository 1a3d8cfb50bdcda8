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

var userColumns = []string{"id", "email", "username", "first_name", "last_name", "created_at"}

type UserRepository interface {
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]*entity.User, error)
}

type userRepository struct {
	store  *Store
	logger *zap.Logger
}

func NewUserRepository(store *Store, logger *zap.Logger) UserRepository {
	return &userRepository{
		store:  store,
		logger: logger,
	}
}

func (r *userRepository) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	b := r.store.builder()

	taken, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("users")).
		Where(entsql.Or(entsql.EQ("email", u.Email), entsql.EQ("username", u.Username))))
	if err != nil {
		r.logger.Error("failed to check user uniqueness", zap.String("username", u.Username), zap.Error(err))
		return nil, err
	}
	if taken > 0 {
		return nil, common.AlreadyExists("a user with this email or username already exists")
	}

	out := *u
	out.ID = uuid.New()
	created := nowNano()
	out.CreatedAt = fromNano(created)

	_, err = exec(ctx, r.store.Driver, b.Insert("users").
		Columns(userColumns...).
		Values(out.ID, out.Email, out.Username, out.FirstName, out.LastName, created))
	if err != nil {
		r.logger.Error("failed to create user", zap.String("username", u.Username), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	b := r.store.builder()
	users, err := r.list(ctx, b.Select(userColumns...).From(b.Table("users")).Where(entsql.EQ("id", id)))
	if err != nil {
		r.logger.Error("failed to get user", zap.Stringer("user_id", id), zap.Error(err))
		return nil, err
	}
	if len(users) == 0 {
		return nil, common.NotFound(fmt.Sprintf("user %s not found", id))
	}
	return users[0], nil
}

func (r *userRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	b := r.store.builder()
	n, err := count(ctx, r.store.Driver, b.Select().Count().From(b.Table("users")).Where(entsql.EQ("id", id)))
	if err != nil {
		r.logger.Error("failed to check user existence", zap.Stringer("user_id", id), zap.Error(err))
		return false, err
	}
	return n > 0, nil
}

func (r *userRepository) List(ctx context.Context) ([]*entity.User, error) {
	b := r.store.builder()
	users, err := r.list(ctx, b.Select(userColumns...).From(b.Table("users")).OrderBy("username"))
	if err != nil {
		r.logger.Error("failed to list users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (r *userRepository) list(ctx context.Context, sel *entsql.Selector) ([]*entity.User, error) {
	var out []*entity.User
	err := queryRows(ctx, r.store.Driver, sel, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

func scanUser(rows *entsql.Rows) (*entity.User, error) {
	var (
		u       entity.User
		created int64
	)
	if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = fromNano(created)
	return &u, nil
}
