package users

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/repository"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "users.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(logger) })
	require.NoError(t, store.Migrate(ctx, logger))

	return NewService(repository.NewUserRepository(store, logger), repository.NewSubscriptionRepository(store, logger), logger)
}

func TestCreateUser(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserRequest{Email: " alice@example.com ", Username: "alice.b_1", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "alice.b_1", u.Username)

	_, err = svc.CreateUser(ctx, CreateUserRequest{Email: "alice2@example.com", Username: "alice.b_1"})
	assert.True(t, errors.Is(err, common.ErrAlreadyExists))

	for name, req := range map[string]CreateUserRequest{
		"BadUsername": {Email: "x@example.com", Username: "no spaces!"},
		"BadEmail":    {Email: "not-an-email", Username: "bob"},
		"NoUsername":  {Email: "y@example.com"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, req)
			assert.True(t, errors.Is(err, common.ErrValidation), "%v", err)
		})
	}
}

func TestSubscriptions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserRequest{Email: "alice@example.com", Username: "alice"})
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, CreateUserRequest{Email: "bob@example.com", Username: "bob"})
	require.NoError(t, err)

	_, err = svc.Subscribe(ctx, bob.ID, bob.ID)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	sub, err := svc.Subscribe(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, sub.Author.ID)
	assert.Equal(t, 0, sub.RecipesCount)

	_, err = svc.Subscribe(ctx, bob.ID, alice.ID)
	assert.True(t, errors.Is(err, common.ErrAlreadyExists))

	got, err := svc.GetUser(ctx, alice.ID, &bob.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSubscribed)

	subs, err := svc.ListSubscriptions(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.NoError(t, svc.Unsubscribe(ctx, bob.ID, alice.ID))
	assert.True(t, errors.Is(svc.Unsubscribe(ctx, bob.ID, alice.ID), common.ErrNotFound))
}
