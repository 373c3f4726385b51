package response

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/qbank-console/internal/client"
)

// ContextKeyRequestID is the Gin context key for the request ID.
const ContextKeyRequestID = "request_id"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestIDMiddleware tags every request with an id: the caller's
// X-Request-ID when it looks sane, a fresh UUID otherwise. The id is echoed
// back and forwarded on every backend call made for the request.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(client.RequestIDHeader)
		if !validRequestID.MatchString(reqID) {
			reqID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header(client.RequestIDHeader, reqID)
		c.Request = c.Request.WithContext(client.WithRequestID(c.Request.Context(), reqID))
		c.Next()
	}
}
