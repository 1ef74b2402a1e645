package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"edu-records/pkg/response"
)

const (
	requestIDKey    = response.RequestIDKey
	requestIDHeader = "X-Request-ID"
	// 外部传入的 ID 超过该长度或含控制字符时重新生成
	requestIDMaxLen = 64
)

// RequestID 请求追踪 ID 中间件
// 选课、成绩服务投递事件时携带 X-Request-ID，便于跨服务追踪同一事件；缺省时生成 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}

func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		if rid[i] < 0x21 || rid[i] > 0x7e {
			return false
		}
	}
	return true
}
