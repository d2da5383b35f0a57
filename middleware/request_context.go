// api/middleware/request_context.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderSessionID = "X-Session-ID"
)

// RequestContext attaches caller metadata to the request context so it ends
// up on audit records. A request id is generated when the caller sent none.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		md := pdp_model.RequestMetadata{
			RequestID: requestID,
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			SessionID: c.GetHeader(HeaderSessionID),
		}
		c.Request = c.Request.WithContext(pdp_model.WithRequestMetadata(c.Request.Context(), md))
		c.Next()
	}
}
