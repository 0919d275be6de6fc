package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"

	// Inbound ids longer than this are replaced; they are caller-supplied
	// and end up in every log line for the request.
	maxRequestIDLength = 128
)

// RequestID tags every request with an id for log correlation. An id arriving
// on X-Request-ID is kept so the trail stays continuous across the gateway
// hop; requests without one get a fresh uuid.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)
		c.Next()
	}
}
