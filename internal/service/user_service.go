package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
)

type CreateUserInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// searchLimit caps the users returned by one search.
const searchLimit = 20

type UserService struct {
	store repository.Store
	log   *slog.Logger
}

func NewUserService(store repository.Store, log *slog.Logger) *UserService {
	return &UserService{store: store, log: log}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser provisions a user record. Credentials live with the identity
// provider; only the profile is stored here.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user := &domain.User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		CreatedAt: time.Now(),
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Users().GetByEmail(ctx, user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailTaken
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info("user created", "user_id", user.ID)
	return user, nil
}

// SearchUsers finds users by name for callerID, who is left out of the
// results. A blank query matches nobody.
func (s *UserService) SearchUsers(ctx context.Context, callerID uuid.UUID, query string) ([]domain.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.UserSummary{}, nil
	}

	// One extra so dropping the caller still fills the page.
	users, err := s.store.Users().Search(ctx, query, searchLimit+1)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}

	others := lo.Filter(users, func(u domain.User, _ int) bool { return u.ID != callerID })
	if len(others) > searchLimit {
		others = others[:searchLimit]
	}
	return lo.Map(others, func(u domain.User, _ int) domain.UserSummary {
		return domain.UserSummary{ID: u.ID, Name: u.Name}
	}), nil
}
