package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
)

// ErrorHandler converts errors attached via c.Error into the uniform JSON
// error envelope. Handlers never write error responses themselves.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.WithContext(c.Request.Context()).Errorw("request failed",
				"path", c.Request.URL.Path,
				"error", err)
		}
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
