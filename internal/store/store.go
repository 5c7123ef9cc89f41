// Package store persists user records behind a single interface with an
// in-memory and a relational implementation.
package store

import (
	"context"
	"errors"

	"github.com/Proton-105/users-backend/internal/domain"
	"github.com/Proton-105/users-backend/internal/pagination"
)

// ErrUserNotFound is returned when no record matches the requested id.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the persistence boundary for user records.
type UserStore interface {
	// Create assigns an id, persists the record and returns it.
	Create(ctx context.Context, in domain.UserCreate) (domain.User, error)
	Get(ctx context.Context, id int64) (domain.User, error)
	// List returns every record in ascending id order.
	List(ctx context.Context) ([]domain.User, error)
	// Update applies only the fields present in patch.
	Update(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	// Replace swaps the whole contents of the store for users in one step.
	Replace(ctx context.Context, users []domain.UserCreate) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// PageLister is implemented by stores that can page without loading every record.
type PageLister interface {
	ListPage(ctx context.Context, offset, limit int) ([]domain.User, int, error)
}

// ListPage pages s natively when it implements PageLister and slices a full
// listing otherwise.
func ListPage(ctx context.Context, s UserStore, offset, limit int) ([]domain.User, int, error) {
	if pager, ok := s.(PageLister); ok {
		return pager.ListPage(ctx, offset, limit)
	}

	users, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	return pagination.Window(users, offset, limit), len(users), nil
}
