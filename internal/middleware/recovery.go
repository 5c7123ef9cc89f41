package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Proton-105/users-backend/internal/errors"
)

// Recovery turns a panic in a handler into a 500 response reported through
// the error handler.
func Recovery(errs *apperrors.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			resp := errs.Handle(c.Request.Context(), apperrors.NewInternalError(fmt.Errorf("panic: %v", recovered)))
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(resp.Status, resp.Body)
		}()

		c.Next()
	}
}
