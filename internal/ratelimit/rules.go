package ratelimit

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/Proton-105/users-backend/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	enabled  bool
	limit    int
	window   time.Duration
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

// NewRules constructs rate limiting rules from configuration settings.
// Whitelist entries may be single addresses or CIDR ranges.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	r := &Rules{
		enabled: cfg.Enabled,
		addrs:   make(map[netip.Addr]struct{}),
	}

	if cfg.Enabled {
		limit, window, err := parseRule(cfg.PerClient)
		if err != nil {
			return nil, fmt.Errorf("per_client rule: %w", err)
		}
		r.limit, r.window = limit, window
	}

	for _, entry := range cfg.Whitelist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("whitelist entry %q: %w", entry, err)
			}
			r.prefixes = append(r.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("whitelist entry %q: %w", entry, err)
		}
		r.addrs[addr.Unmap()] = struct{}{}
	}

	return r, nil
}

// Enabled reports whether limits apply at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.enabled
}

// IsWhitelisted returns true if the client address bypasses rate limits.
func (r *Rules) IsWhitelisted(clientIP string) bool {
	if r == nil {
		return false
	}

	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	if _, ok := r.addrs[addr]; ok {
		return true
	}
	for _, prefix := range r.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// PerClientLimit returns the limit and window applied to each client.
func (r *Rules) PerClientLimit() (int, time.Duration) {
	return r.limit, r.window
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		return 0, 0, errors.New("window duration must be positive")
	}
	return rule.Limit, window, nil
}
