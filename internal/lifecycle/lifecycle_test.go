package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/users-backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticStatus domain.AppStatus

func (s staticStatus) Check(context.Context) domain.AppStatus {
	return domain.AppStatus(s)
}

func TestProbes(t *testing.T) {
	ctx := context.Background()

	ready := NewProbes(testLogger(), staticStatus{"database": true, "redis": true})
	assert.NoError(t, ready.Liveness(ctx))
	assert.NoError(t, ready.Readiness(ctx))

	notReady := NewProbes(testLogger(), staticStatus{"database": false, "redis": false})
	assert.NoError(t, notReady.Liveness(ctx))
	assert.EqualError(t, notReady.Readiness(ctx), "not ready: database, redis")

	assert.NoError(t, NewProbes(nil, nil).Readiness(ctx))
	assert.NoError(t, NewProbes(testLogger(), staticStatus{}).Readiness(ctx))

	partial := NewProbes(testLogger(), staticStatus{"database": true, "redis": false})
	assert.EqualError(t, partial.Readiness(ctx), "not ready: redis")
}

func TestShutdown_RunsEveryHook(t *testing.T) {
	s := NewShutdown(testLogger())

	var ran atomic.Int32
	s.Register("database", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	s.Register("redis", func(context.Context) error {
		ran.Add(1)
		return errors.New("already closed")
	})
	s.Register("ignored", nil)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: already closed")
	assert.Equal(t, int32(2), ran.Load())
	assert.Equal(t, []string{"database", "redis"}, s.Hooks())
}

func TestShutdown_NoHooks(t *testing.T) {
	assert.NoError(t, NewShutdown(nil).Execute(context.Background()))
}
