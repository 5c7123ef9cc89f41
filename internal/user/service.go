// Package user implements the user operations exposed over HTTP.
package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/users-backend/internal/domain"
	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/pagination"
	"github.com/Proton-105/users-backend/internal/store"
	"github.com/Proton-105/users-backend/internal/validation"
)

// Service provides business operations over users.
type Service struct {
	store   store.UserStore
	log     *slog.Logger
	limits  pagination.Limits
	fixture Fixture
}

// Option customizes a Service.
type Option func(*Service)

// WithLimits sets the page size bounds used by List.
func WithLimits(limits pagination.Limits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithFixture sets the source used by LoadFixture.
func WithFixture(f Fixture) Option {
	return func(s *Service) {
		if f != nil {
			s.fixture = f
		}
	}
}

// NewService constructs a new Service instance.
func NewService(st store.UserStore, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:   st,
		log:     log,
		limits:  pagination.DefaultLimits(),
		fixture: EmbeddedFixture(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the page size bounds the service enforces.
func (s *Service) Limits() pagination.Limits {
	return s.limits
}

// Create validates and stores a new user.
func (s *Service) Create(ctx context.Context, in domain.UserCreate) (domain.User, error) {
	if err := validation.ValidateUser(in); err != nil {
		return domain.User{}, s.translate(ctx, "create", 0, err)
	}

	user, err := s.store.Create(ctx, in)
	if err != nil {
		return domain.User{}, s.translate(ctx, "create", 0, err)
	}

	s.log.InfoContext(ctx, "user created", slog.Int64("user_id", user.ID))
	return user, nil
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.User{}, s.translate(ctx, "get", id, err)
	}
	return user, nil
}

// List returns one page of users ordered by id.
func (s *Service) List(ctx context.Context, params pagination.Params) (domain.Page[domain.User], error) {
	if err := params.Validate(s.limits); err != nil {
		return domain.Page[domain.User]{}, s.translate(ctx, "list", 0, err)
	}

	users, total, err := store.ListPage(ctx, s.store, params.Offset(), params.Size)
	if err != nil {
		return domain.Page[domain.User]{}, s.translate(ctx, "list", 0, err)
	}

	return pagination.NewPage(users, params, total), nil
}

// Update applies the fields present in patch to the user with id.
func (s *Service) Update(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error) {
	if err := validation.ValidatePatch(patch); err != nil {
		return domain.User{}, s.translate(ctx, "update", id, err)
	}

	user, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return domain.User{}, s.translate(ctx, "update", id, err)
	}

	s.log.InfoContext(ctx, "user updated", slog.Int64("user_id", id))
	return user, nil
}

// Delete removes the user with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.translate(ctx, "delete", id, err)
	}

	s.log.InfoContext(ctx, "user deleted", slog.Int64("user_id", id))
	return nil
}

// Clear removes every user.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return s.translate(ctx, "clear", 0, err)
	}

	s.log.InfoContext(ctx, "users cleared")
	return nil
}

// LoadFixture replaces the store contents with the configured fixture.
func (s *Service) LoadFixture(ctx context.Context) ([]domain.User, error) {
	records, err := s.fixture.Load()
	if err != nil {
		s.log.ErrorContext(ctx, "fixture unreadable", slog.String("fixture", s.fixture.Name()), slog.Any("error", err))
		return nil, apperrors.NewInternalError(err)
	}

	users, err := s.store.Replace(ctx, records)
	if err != nil {
		return nil, s.translate(ctx, "load_fixture", 0, err)
	}

	s.log.InfoContext(ctx, "fixture loaded",
		slog.String("fixture", s.fixture.Name()),
		slog.Int("users", len(users)),
	)
	return users, nil
}

func (s *Service) translate(ctx context.Context, operation string, id int64, err error) error {
	var verrs validation.Errors
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return apperrors.NewNotFoundError(apperrors.MsgUserNotFound)
	case errors.As(err, &verrs):
		return apperrors.NewValidationError("invalid input", verrs)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewInternalError(err)
	}

	s.log.ErrorContext(ctx, "user service operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", id),
		slog.String("store", s.store.Name()),
		slog.Any("error", err),
	)
	return apperrors.NewDatabaseError(err)
}
