package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Proton-105/users-backend/internal/idempotency"
)

const (
	HeaderIdempotencyKey    = "Idempotency-Key"
	HeaderIdempotentReplay  = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 255
)

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency runs the rest of the chain at most once per Idempotency-Key
// header. Retries carrying the same key and body get the first response
// replayed. Requests without the header pass straight through.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if manager == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Idempotency-Key is too long"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Unable to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		fingerprint := idempotency.Fingerprint(c.Request.Method, c.Request.URL.Path, body)

		result, err := manager.Execute(ctx, key, fingerprint, ttl, func(context.Context) (*idempotency.Response, error) {
			writer := &captureWriter{ResponseWriter: c.Writer}
			c.Writer = writer
			c.Next()
			c.Writer = writer.ResponseWriter

			return &idempotency.Response{
				StatusCode:  c.Writer.Status(),
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        writer.body.Bytes(),
			}, nil
		})

		switch {
		case err == nil:
		case errors.Is(err, idempotency.ErrRequestInProgress):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"detail": "A request with this Idempotency-Key is in progress"})
			return
		case errors.Is(err, idempotency.ErrFingerprintMismatch):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": "Idempotency-Key was already used with a different request"})
			return
		default:
			log.WarnContext(ctx, "idempotency unavailable, executing request", slog.String("key", key), slog.Any("error", err))
			c.Next()
			return
		}

		if result.FromCache {
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(result.Response.StatusCode, result.Response.ContentType, result.Response.Body)
			c.Abort()
		}
	}
}
