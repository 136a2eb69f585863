package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxRequestIDKey = "requestID"

// RequestID assigns every request a correlation id, honouring an inbound
// X-Request-ID header when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(ctxRequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id assigned to the request, if any.
func RequestIDFrom(c *gin.Context) string {
	value, ok := c.Get(ctxRequestIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}
