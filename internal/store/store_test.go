package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/users-backend/internal/database"
	"github.com/Proton-105/users-backend/internal/domain"
	"github.com/Proton-105/users-backend/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleUser(n int) domain.UserCreate {
	return domain.UserCreate{
		Email:     fmt.Sprintf("user%d@reqres.in", n),
		FirstName: fmt.Sprintf("First%d", n),
		LastName:  fmt.Sprintf("Last%d", n),
		Avatar:    fmt.Sprintf("https://reqres.in/img/faces/%d-image.jpg", n),
	}
}

func newSQLiteStore(t *testing.T) UserStore {
	t.Helper()

	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		DSN:      "file:" + filepath.Join(t.TempDir(), "users.db"),
		PoolSize: 4,
	}

	db, err := database.Open(ctx, cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db, cfg, testLogger()))
	return NewSQLStore(db, cfg.Driver, testLogger())
}

func backends() map[string]func(t *testing.T) UserStore {
	return map[string]func(t *testing.T) UserStore{
		"memory": func(*testing.T) UserStore { return NewMemoryStore() },
		"sqlite": newSQLiteStore,
	}
}

func TestUserStore_CreateGet(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			created, err := s.Create(ctx, sampleUser(1))
			require.NoError(t, err)
			assert.Positive(t, created.ID)
			assert.Equal(t, domain.NewUser(created.ID, sampleUser(1)), created)

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, got)

			_, err = s.Get(ctx, created.ID+100)
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestUserStore_ListOrderedByID(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			for i := 1; i <= 5; i++ {
				_, err := s.Create(ctx, sampleUser(i))
				require.NoError(t, err)
			}

			users, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, users, 5)
			for i := 1; i < len(users); i++ {
				assert.Less(t, users[i-1].ID, users[i].ID)
			}

			count, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, count)
		})
	}
}

func TestUserStore_UpdateAppliesOnlyPresentFields(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			created, err := s.Create(ctx, sampleUser(1))
			require.NoError(t, err)

			updated, err := s.Update(ctx, created.ID, domain.UserPatch{FirstName: domain.Some("Renamed")})
			require.NoError(t, err)

			want := created
			want.FirstName = "Renamed"
			assert.Equal(t, want, updated)

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			unchanged, err := s.Update(ctx, created.ID, domain.UserPatch{})
			require.NoError(t, err)
			assert.Equal(t, want, unchanged)

			_, err = s.Update(ctx, created.ID+100, domain.UserPatch{FirstName: domain.Some("x")})
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestUserStore_DeleteAndClear(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			first, err := s.Create(ctx, sampleUser(1))
			require.NoError(t, err)
			_, err = s.Create(ctx, sampleUser(2))
			require.NoError(t, err)

			require.NoError(t, s.Delete(ctx, first.ID))
			_, err = s.Get(ctx, first.ID)
			assert.ErrorIs(t, err, ErrUserNotFound)
			assert.ErrorIs(t, s.Delete(ctx, first.ID), ErrUserNotFound)

			require.NoError(t, s.Clear(ctx))
			users, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, users)

			next, err := s.Create(ctx, sampleUser(3))
			require.NoError(t, err)
			assert.Greater(t, next.ID, first.ID)
		})
	}
}

func TestUserStore_Replace(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			_, err := s.Create(ctx, sampleUser(100))
			require.NoError(t, err)

			batch := make([]domain.UserCreate, 0, 50)
			for i := 1; i <= 50; i++ {
				batch = append(batch, sampleUser(i))
			}

			created, err := s.Replace(ctx, batch)
			require.NoError(t, err)
			require.Len(t, created, 50)

			users, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, created, users)

			seen := make(map[int64]bool, len(users))
			for _, u := range users {
				assert.False(t, seen[u.ID], "duplicate id %d", u.ID)
				seen[u.ID] = true
			}
		})
	}
}

func TestMemoryStore_ConcurrentCreates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Create(ctx, sampleUser(n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 50)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(50), users[49].ID)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, sampleUser(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLStore_ListPage(t *testing.T) {
	s := newSQLiteStore(t).(*SQLStore)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, err := s.Create(ctx, sampleUser(i))
		require.NoError(t, err)
	}

	users, total, err := s.ListPage(ctx, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, users, 2)
	assert.Equal(t, "user11@reqres.in", users[0].Email)

	users, total, err = s.ListPage(ctx, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Empty(t, users)
}

func TestListPage_FarOffsetIsEmpty(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				_, err := s.Create(ctx, sampleUser(i))
				require.NoError(t, err)
			}

			users, total, err := ListPage(ctx, s, math.MaxInt, 20)
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Empty(t, users)

			users, _, err = ListPage(ctx, s, 1, 20)
			require.NoError(t, err)
			require.Len(t, users, 2)
			assert.Equal(t, "user2@reqres.in", users[0].Email)
		})
	}
}
