package middleware

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/ratelimit"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// RateLimit enforces the per-client limit keyed by client IP. Limiter
// failures let the request through.
func RateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, errs *apperrors.Handler, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		if limiter == nil || !rules.Enabled() {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if rules.IsWhitelisted(clientIP) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		limit, window := rules.PerClientLimit()

		result, err := limiter.Check(ctx, "ip:"+clientIP, limit, window)
		if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
			log.WarnContext(ctx, "rate limiter error", slog.String("client_ip", clientIP), slog.Any("error", err))
			c.Next()
			return
		}

		if result != nil {
			c.Header(HeaderRateLimitLimit, strconv.Itoa(limit))
			c.Header(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
		}

		if errors.Is(err, ratelimit.ErrLimitExceeded) {
			retryAfter := result.RetryAfter(time.Now())
			c.Header(HeaderRetryAfter, strconv.Itoa(retryAfter))

			resp := errs.Handle(ctx, apperrors.NewRateLimitError(retryAfter))
			c.AbortWithStatusJSON(resp.Status, resp.Body)
			return
		}

		c.Next()
	}
}
