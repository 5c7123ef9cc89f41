package store

import (
	"context"
	"errors"
	"time"

	"github.com/Proton-105/users-backend/internal/domain"
	"github.com/Proton-105/users-backend/pkg/metrics"
)

const (
	statusOK       = "ok"
	statusNotFound = "not_found"
	statusError    = "error"
)

// Instrumented records Prometheus metrics for every call to the wrapped store
// and keeps the users_total gauge in step with writes.
type Instrumented struct {
	next UserStore
}

func NewInstrumented(next UserStore) *Instrumented {
	return &Instrumented{next: next}
}

func (s *Instrumented) Name() string {
	return s.next.Name()
}

func (s *Instrumented) observe(operation string, start time.Time, err error) {
	status := statusOK
	switch {
	case errors.Is(err, ErrUserNotFound):
		status = statusNotFound
	case err != nil:
		status = statusError
	}
	metrics.RecordStoreOperation(s.next.Name(), operation, status, time.Since(start))
}

func (s *Instrumented) refreshTotal(ctx context.Context) {
	if count, err := s.next.Count(ctx); err == nil {
		metrics.SetUsersTotal(count)
	}
}

func (s *Instrumented) Create(ctx context.Context, in domain.UserCreate) (domain.User, error) {
	start := time.Now()
	user, err := s.next.Create(ctx, in)
	s.observe("create", start, err)
	if err == nil {
		s.refreshTotal(ctx)
	}
	return user, err
}

func (s *Instrumented) Get(ctx context.Context, id int64) (domain.User, error) {
	start := time.Now()
	user, err := s.next.Get(ctx, id)
	s.observe("get", start, err)
	return user, err
}

func (s *Instrumented) List(ctx context.Context) ([]domain.User, error) {
	start := time.Now()
	users, err := s.next.List(ctx)
	s.observe("list", start, err)
	return users, err
}

func (s *Instrumented) ListPage(ctx context.Context, offset, limit int) ([]domain.User, int, error) {
	start := time.Now()
	users, total, err := ListPage(ctx, s.next, offset, limit)
	s.observe("list_page", start, err)
	return users, total, err
}

func (s *Instrumented) Update(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error) {
	start := time.Now()
	user, err := s.next.Update(ctx, id, patch)
	s.observe("update", start, err)
	return user, err
}

func (s *Instrumented) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err)
	if err == nil {
		s.refreshTotal(ctx)
	}
	return err
}

func (s *Instrumented) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.next.Clear(ctx)
	s.observe("clear", start, err)
	if err == nil {
		metrics.SetUsersTotal(0)
	}
	return err
}

func (s *Instrumented) Replace(ctx context.Context, users []domain.UserCreate) ([]domain.User, error) {
	start := time.Now()
	created, err := s.next.Replace(ctx, users)
	s.observe("replace", start, err)
	if err == nil {
		metrics.SetUsersTotal(len(created))
	}
	return created, err
}

func (s *Instrumented) Count(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := s.next.Count(ctx)
	s.observe("count", start, err)
	return count, err
}
