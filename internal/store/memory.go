package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Proton-105/users-backend/internal/domain"
)

// MemoryStore keeps users in a process-local map. The id sequence survives
// Clear and Replace the way a database sequence would.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]domain.User),
	}
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Create(ctx context.Context, in domain.UserCreate) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(in), nil
}

func (s *MemoryStore) insertLocked(in domain.UserCreate) domain.User {
	s.nextID++
	user := domain.NewUser(s.nextID, in)
	s.users[user.ID] = user
	return user
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	s.mu.RUnlock()

	slices.SortFunc(users, func(a, b domain.User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}

	user = patch.Apply(user)
	s.users[id] = user
	return user, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.users)
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, users []domain.UserCreate) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.users)
	created := make([]domain.User, 0, len(users))
	for _, in := range users {
		created = append(created, s.insertLocked(in))
	}
	return created, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users), nil
}
