package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/users-backend/internal/domain"
	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/pagination"
	"github.com/Proton-105/users-backend/internal/store"
	"github.com/Proton-105/users-backend/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewService(store.NewMemoryStore(), testLogger(), opts...)
}

func appError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr
}

var george = domain.UserCreate{
	Email:     "george.bluth@reqres.in",
	FirstName: "George",
	LastName:  "Bluth",
	Avatar:    "https://reqres.in/img/faces/1-image.jpg",
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, george)
	require.NoError(t, err)
	assert.Equal(t, domain.NewUser(created.ID, george), created)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestService_CreateRejectsInvalidEmail(t *testing.T) {
	svc := newTestService(t)

	in := george
	in.Email = "george"
	_, err := svc.Create(context.Background(), in)

	appErr := appError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.IsType(t, validation.Errors{}, appErr.Detail)
}

func TestService_NotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 42)
	assert.Equal(t, http.StatusNotFound, appError(t, err).Status)

	_, err = svc.Update(ctx, 42, domain.UserPatch{FirstName: domain.Some("x")})
	assert.Equal(t, http.StatusNotFound, appError(t, err).Status)

	err = svc.Delete(ctx, 42)
	assert.Equal(t, apperrors.MsgUserNotFound, appError(t, err).Detail)
}

func TestService_UpdateOnlyFirstName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, george)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.UserPatch{FirstName: domain.Some("Gob")})
	require.NoError(t, err)

	want := created
	want.FirstName = "Gob"
	assert.Equal(t, want, updated)

	_, err = svc.Update(ctx, created.ID, domain.UserPatch{LastName: domain.Null[string]()})
	assert.Equal(t, http.StatusUnprocessableEntity, appError(t, err).Status)
}

func TestService_ListPaginatesFixture(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	loaded, err := svc.LoadFixture(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 50)

	page, err := svc.List(ctx, pagination.Params{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 50, page.Total)
	assert.Equal(t, 5, page.Pages)
	assert.Equal(t, loaded[:10], page.Items)

	page, err = svc.List(ctx, pagination.Params{Page: 6, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 50, page.Total)

	_, err = svc.List(ctx, pagination.Params{Page: 1, Size: 21})
	assert.Equal(t, http.StatusUnprocessableEntity, appError(t, err).Status)
}

func TestService_LoadFixtureReplacesContents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, george)
	require.NoError(t, err)

	_, err = svc.LoadFixture(ctx)
	require.NoError(t, err)

	page, err := svc.List(ctx, pagination.Params{Page: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 50, page.Total)
}

func TestService_ClearAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, george)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, appError(t, err).Status)

	_, err = svc.Create(ctx, george)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))

	page, err := svc.List(ctx, pagination.Params{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestFixtureFromPath(t *testing.T) {
	assert.Equal(t, "embedded", FixtureFromPath("").Name())

	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"email":"a@b.io","first_name":"A","last_name":"B","avatar":"https://b.io/a.jpg"}]`), 0o600))

	records, err := FixtureFromPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, []domain.UserCreate{{Email: "a@b.io", FirstName: "A", LastName: "B", Avatar: "https://b.io/a.jpg"}}, records)

	_, err = FileFixture(filepath.Join(t.TempDir(), "missing.json")).Load()
	assert.Error(t, err)
}

func TestLoadFixture_InvalidRecord(t *testing.T) {
	svc := newTestService(t, WithFixture(BytesFixture("broken", []byte(`[{"email":"a@b.io"}]`))))

	_, err := svc.LoadFixture(context.Background())
	appErr := appError(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Contains(t, appErr.Error(), "fixture record 0")
}

type brokenStore struct {
	store.UserStore
}

func (brokenStore) Get(context.Context, int64) (domain.User, error) {
	return domain.User{}, errors.New("connection refused")
}

func (brokenStore) Name() string { return "broken" }

func TestService_StoreFailureIsDatabaseError(t *testing.T) {
	svc := NewService(brokenStore{UserStore: store.NewMemoryStore()}, testLogger())

	_, err := svc.Get(context.Background(), 1)
	appErr := appError(t, err)
	assert.Equal(t, apperrors.CodeDatabase, appErr.Code)
	assert.Equal(t, apperrors.MsgInternalServerError, appErr.Detail)
}
