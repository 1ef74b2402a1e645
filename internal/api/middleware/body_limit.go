package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edu-records/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（培养方案导入默认 1MB）
// 未声明 Content-Length 时读取超限返回 *http.MaxBytesError，由 Handler 转为 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.PayloadTooLarge(c, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
