package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 健康检查由探针高频调用，不记录
var skipLogPaths = map[string]bool{
	"/health": true,
}

// Logger 请求日志中间件（基于 Zap 结构化日志）
// 记录路由模板；路径参数 id 单独成 target_id 字段
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipLogPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if uid := c.GetString(CtxUserID); uid != "" {
			fields = append(fields, zap.String("caller", uid), zap.String("role", c.GetString(CtxRole)))
		}
		if sid := c.Param("id"); sid != "" {
			fields = append(fields, zap.String("target_id", sid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case statusCode >= 500:
			logger.Error("请求处理失败", fields...)
		case statusCode >= 400:
			logger.Warn("客户端错误", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
