package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medisched/hms-api/pkg/errors"
	"github.com/medisched/hms-api/pkg/httputil"
	"github.com/medisched/hms-api/pkg/logger"
)

// ErrorHandler logs errors attached to the context and writes the
// response for handlers that aborted without a body.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			log.Error(e.Err, "request error",
				"request_id", c.GetString(ContextRequestID),
				"method", c.Request.Method,
				"path", c.Request.URL.Path)
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		status := http.StatusInternalServerError
		message := "internal server error"

		var appErr *errors.AppError
		if stderrors.As(lastErr, &appErr) {
			status = appErr.StatusCode()
			message = appErr.Message
		}

		c.JSON(status, httputil.Response{
			Status:  "error",
			Message: message,
		})
	}
}
