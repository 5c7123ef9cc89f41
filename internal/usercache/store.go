package usercache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/users-backend/internal/domain"
	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/store"
)

// Store is a read-through cache in front of another UserStore. Cache failures
// are logged and never fail the request; repeated failures open a circuit
// breaker and the cache is bypassed until it recovers.
type Store struct {
	next    store.UserStore
	cache   *Cache
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

func NewStore(next store.UserStore, cache *Cache, breaker *apperrors.CircuitBreaker, log *slog.Logger) *Store {
	if breaker == nil {
		breaker = apperrors.NewCircuitBreaker()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		next:    next,
		cache:   cache,
		breaker: breaker,
		log:     log.With(slog.String("component", "usercache")),
	}
}

func (s *Store) Name() string {
	return s.next.Name()
}

// call runs a cache operation through the breaker. Misses are not failures.
func (s *Store) call(ctx context.Context, op string, fn func() error) error {
	var miss bool
	err := s.breaker.Call(func() error {
		err := fn()
		if errors.Is(err, ErrMiss) {
			miss = true
			return nil
		}
		return err
	})
	if miss {
		return ErrMiss
	}
	if err != nil && !errors.Is(err, apperrors.ErrCircuitOpen) && !errors.Is(err, apperrors.ErrHalfOpenTooManyRequests) {
		s.log.WarnContext(ctx, "cache operation failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
	}
	return err
}

func (s *Store) Get(ctx context.Context, id int64) (domain.User, error) {
	var cached domain.User
	err := s.call(ctx, "get", func() error {
		var err error
		cached, err = s.cache.Get(ctx, id)
		return err
	})
	if err == nil {
		return cached, nil
	}

	user, err := s.next.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	_ = s.call(ctx, "fill", func() error { return s.cache.Fill(ctx, user) })
	return user, nil
}

func (s *Store) Create(ctx context.Context, in domain.UserCreate) (domain.User, error) {
	return s.next.Create(ctx, in)
}

func (s *Store) List(ctx context.Context) ([]domain.User, error) {
	return s.next.List(ctx)
}

func (s *Store) ListPage(ctx context.Context, offset, limit int) ([]domain.User, int, error) {
	return store.ListPage(ctx, s.next, offset, limit)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.next.Count(ctx)
}

func (s *Store) Update(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error) {
	user, err := s.next.Update(ctx, id, patch)
	if err != nil {
		return domain.User{}, err
	}

	_ = s.call(ctx, "set", func() error { return s.cache.Set(ctx, user) })
	return user, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.call(ctx, "invalidate", func() error { return s.cache.Invalidate(ctx, id) })
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.next.Clear(ctx); err != nil {
		return err
	}

	_ = s.call(ctx, "purge", func() error { return s.cache.Purge(ctx) })
	return nil
}

func (s *Store) Replace(ctx context.Context, users []domain.UserCreate) ([]domain.User, error) {
	created, err := s.next.Replace(ctx, users)
	if err != nil {
		return nil, err
	}

	_ = s.call(ctx, "purge", func() error { return s.cache.Purge(ctx) })
	return created, nil
}
