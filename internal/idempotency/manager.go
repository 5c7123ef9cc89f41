// Package idempotency replays the stored response when a client retries a
// request with the same Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const defaultLockTTL = 30 * time.Second

var (
	ErrRequestInProgress   = errors.New("request with this key is already in progress")
	ErrFingerprintMismatch = errors.New("idempotency key was used with a different request")
)

// Response is the part of an HTTP response that is stored and replayed.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type Operation func(ctx context.Context) (*Response, error)

type Result struct {
	Response  *Response
	FromCache bool
}

type Manager interface {
	// Execute runs fn once per key. Later calls with the same key and
	// fingerprint get the stored response back.
	Execute(ctx context.Context, key, fingerprint string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	log     *slog.Logger
	lockTTL time.Duration
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		log:     log,
		lockTTL: defaultLockTTL,
	}
}

func (m *manager) Execute(ctx context.Context, key, fingerprint string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	if result, err := m.replay(ctx, key, fingerprint); result != nil || err != nil {
		return result, err
	}

	locked, err := m.store.Lock(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestInProgress
	}
	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	// The previous holder may have finished between replay and Lock.
	if result, err := m.replay(ctx, key, fingerprint); result != nil || err != nil {
		return result, err
	}

	resp, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("operation returned no response")
	}

	if resp.StatusCode < http.StatusInternalServerError {
		record := &Record{
			Status:      StatusCompleted,
			Fingerprint: fingerprint,
			Response:    *resp,
		}
		if err := m.store.Set(ctx, key, record, ttl); err != nil {
			m.log.Warn("failed to store idempotent response", slog.String("key", key), slog.Any("error", err))
		}
	}

	return &Result{Response: resp, FromCache: false}, nil
}

func (m *manager) replay(ctx context.Context, key, fingerprint string) (*Result, error) {
	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Status != StatusCompleted {
		return nil, nil
	}
	if record.Fingerprint != fingerprint {
		return nil, ErrFingerprintMismatch
	}

	resp := record.Response
	return &Result{Response: &resp, FromCache: true}, nil
}
