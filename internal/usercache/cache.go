// Package usercache keeps recently read users in Redis in front of a UserStore.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Proton-105/users-backend/internal/domain"
	redisclient "github.com/Proton-105/users-backend/pkg/redis"
)

const (
	keyPrefix = "users:user:"
	// tombstone occupies the key of a deleted user so that a read-through
	// fill racing with the delete cannot bring the row back.
	tombstone = "-"
)

// Backend is the subset of the Redis client the cache needs. Both
// redis.Client and redis.MetricsClient satisfy it.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// ErrMiss is returned by Get when the user is not cached.
var ErrMiss = errors.New("user not cached")

// Cache stores users as JSON documents keyed by id.
type Cache struct {
	backend Backend
	ttl     time.Duration
}

// NewCache constructs a user cache whose entries live for ttl.
func NewCache(backend Backend, ttl time.Duration) *Cache {
	return &Cache{backend: backend, ttl: ttl}
}

// Get fetches a cached user. A miss or a tombstone is reported as ErrMiss.
func (c *Cache) Get(ctx context.Context, id int64) (domain.User, error) {
	data, err := c.backend.Get(ctx, cacheKey(id))
	if err != nil {
		if redisclient.IsNil(err) {
			return domain.User{}, ErrMiss
		}
		return domain.User{}, fmt.Errorf("get cached user: %w", err)
	}
	if data == tombstone {
		return domain.User{}, ErrMiss
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return domain.User{}, fmt.Errorf("decode cached user: %w", err)
	}

	return user, nil
}

// Set stores the user under its id, replacing whatever is cached.
func (c *Cache) Set(ctx context.Context, user domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user for cache: %w", err)
	}

	if err := c.backend.Set(ctx, cacheKey(user.ID), payload, c.ttl); err != nil {
		return fmt.Errorf("set cached user: %w", err)
	}

	return nil
}

// Fill caches a user read from the backing store. It never overwrites an
// existing entry, so a write or delete that landed after the read wins.
func (c *Cache) Fill(ctx context.Context, user domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user for cache: %w", err)
	}

	if _, err := c.backend.SetIfAbsent(ctx, cacheKey(user.ID), payload, c.ttl); err != nil {
		return fmt.Errorf("fill cached user: %w", err)
	}

	return nil
}

// Invalidate replaces the cached entry for id with a tombstone that expires
// with the cache TTL.
func (c *Cache) Invalidate(ctx context.Context, id int64) error {
	if err := c.backend.Set(ctx, cacheKey(id), tombstone, c.ttl); err != nil {
		return fmt.Errorf("invalidate cached user: %w", err)
	}

	return nil
}

// Purge removes every cached user.
func (c *Cache) Purge(ctx context.Context) error {
	if _, err := c.backend.DeleteByPrefix(ctx, keyPrefix); err != nil {
		return fmt.Errorf("purge cached users: %w", err)
	}

	return nil
}

func cacheKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
