package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/entity"
	"github.com/joseph-ayodele/foodgram/internal/repository"
)

// Service handles user records and author subscriptions. Credentials live
// with the identity gateway, so a user here is identity fields only.
type Service struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	logger        *zap.Logger
}

// NewService creates a new user service.
func NewService(users repository.UserRepository, subscriptions repository.SubscriptionRepository, logger *zap.Logger) *Service {
	return &Service{
		users:         users,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// CreateUserRequest represents user creation parameters.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// CreateUser registers a new user record.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*entity.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &entity.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created successfully", zap.Stringer("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// GetUser returns a user, flagging whether viewer follows them.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*entity.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer != nil && *viewer != id {
		u.IsSubscribed, err = s.subscriptions.IsSubscribed(ctx, *viewer, id)
		if err != nil {
			return nil, fmt.Errorf("check subscription: %w", err)
		}
	}
	return u, nil
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return s.users.List(ctx)
}

// Subscribe makes userID follow authorID and returns the new subscription.
func (s *Service) Subscribe(ctx context.Context, userID, authorID uuid.UUID) (*entity.Subscription, error) {
	if err := s.subscriptions.Subscribe(ctx, userID, authorID); err != nil {
		return nil, err
	}
	s.logger.Info("subscribed", zap.Stringer("user_id", userID), zap.Stringer("author_id", authorID))

	subs, err := s.subscriptions.ListAuthors(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.Author.ID == authorID {
			return sub, nil
		}
	}
	return nil, common.NotFound("subscription vanished")
}

// Unsubscribe stops userID following authorID.
func (s *Service) Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	if err := s.subscriptions.Unsubscribe(ctx, userID, authorID); err != nil {
		return err
	}
	s.logger.Info("unsubscribed", zap.Stringer("user_id", userID), zap.Stringer("author_id", authorID))
	return nil
}

// ListSubscriptions returns the authors userID follows with their recipe counts.
func (s *Service) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	return s.subscriptions.ListAuthors(ctx, userID)
}

// Exists reports whether a user record exists for id.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.users.Exists(ctx, id)
}
