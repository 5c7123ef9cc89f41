// Package health reports whether the components the service depends on are up.
package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/users-backend/internal/domain"
)

const (
	ComponentDatabase = "database"
	ComponentUsers    = "users"
	ComponentRedis    = "redis"
)

const defaultCheckTimeout = 2 * time.Second

// ErrNoUsers is reported by UsersChecker when the store is empty.
var ErrNoUsers = errors.New("no users stored")

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Checkable
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		log:     log,
		timeout: defaultCheckTimeout,
		checks:  make(map[string]Checkable),
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names lists the registered components in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs all registered health checks and reports each as up or down.
// Failures are logged, never returned.
func (c *Checker) Check(ctx context.Context) domain.AppStatus {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := make(domain.AppStatus, len(checks))
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := check.HealthCheck(checkCtx)
		cancel()

		if err != nil {
			c.log.ErrorContext(ctx, "health check failed", slog.String("component", name), slog.Any("error", err))
			status[name] = false
			continue
		}
		status[name] = true
	}

	return status
}

// DBChecker runs a trivial query against the database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck executes SELECT 1, which fails whenever the database cannot
// serve queries.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}

	var one int
	return c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Counter is the part of a user store UsersChecker needs.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// UsersChecker reports healthy once at least one user is stored.
type UsersChecker struct {
	users Counter
}

// NewUsersChecker constructs a UsersChecker.
func NewUsersChecker(users Counter) *UsersChecker {
	return &UsersChecker{users: users}
}

func (c *UsersChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.users == nil {
		return ErrNoUsers
	}

	count, err := c.users.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNoUsers
	}
	return nil
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}
