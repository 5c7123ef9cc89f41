package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConstructors(t *testing.T) {
	cause := errors.New("connection refused")

	testCases := []struct {
		name      string
		err       *AppError
		code      string
		status    int
		detail    any
		retryable bool
	}{
		{"validation", NewValidationError("invalid", []string{"x"}), CodeValidation, http.StatusUnprocessableEntity, []string{"x"}, false},
		{"not found", NewNotFoundError(MsgUserNotFound), CodeNotFound, http.StatusNotFound, MsgUserNotFound, false},
		{"database", NewDatabaseError(cause), CodeDatabase, http.StatusInternalServerError, MsgInternalServerError, true},
		{"rate limit", NewRateLimitError(30), CodeRateLimit, http.StatusTooManyRequests, MsgRateLimitExceeded, false},
		{"internal", NewInternalError(cause), CodeInternal, http.StatusInternalServerError, MsgInternalServerError, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.Status)
			assert.Equal(t, tc.detail, tc.err.Detail)
			assert.Equal(t, tc.retryable, IsRetryable(tc.err))
		})
	}

	assert.ErrorIs(t, NewDatabaseError(cause), cause)
	assert.Contains(t, NewDatabaseError(cause).Error(), "connection refused")
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(testLogger(), false)
	ctx := context.Background()

	resp := h.Handle(ctx, NewNotFoundError(MsgUserNotFound))
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, map[string]any{"detail": MsgUserNotFound}, resp.Body)

	wrapped := fmt.Errorf("get user: %w", NewValidationError("bad id", []int{1}))
	resp = h.Handle(ctx, wrapped)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, []int{1}, resp.Body["detail"])

	resp = h.Handle(ctx, errors.New("secret driver failure"))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, MsgInternalServerError, resp.Body["detail"])

	resp = h.Handle(ctx, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestWithRetry(t *testing.T) {
	t.Run("retries retryable errors until success", func(t *testing.T) {
		var calls int32
		err := WithRetry(context.Background(), func() error {
			if atomic.AddInt32(&calls, 1) < 2 {
				return NewDatabaseError(errors.New("temporary"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		var calls int32
		err := WithRetry(context.Background(), func() error {
			atomic.AddInt32(&calls, 1)
			return NewNotFoundError(MsgUserNotFound)
		})
		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := WithRetry(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCalculateBackoffDuration(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, calculateBackoffDuration(1))
	assert.Equal(t, 400*time.Millisecond, calculateBackoffDuration(2))
	assert.Equal(t, MaxBackoff, calculateBackoffDuration(10))
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreakerWithSettings(BreakerSettings{MinRequests: 4, OpenTimeout: time.Minute, HalfOpenMaxRequests: 2})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
