package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mpr89/wheeltrader/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request context with an id so log lines from one
// call can be correlated across packages. An id supplied by the caller is
// kept; otherwise a fresh one is generated and echoed back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = logging.NewRequestID()
		}
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
