package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ctxPkg "github.com/yeisme/torrentvault/pkg/context"
)

// RequestIDHeader 请求 ID 头.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware 沿用上游的请求 ID，缺失时生成 UUID，并回写到响应头.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(ctxPkg.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
