package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"edu-records/pkg/jwt"
	"edu-records/pkg/response"
)

// Gin 上下文键
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxStudentID = "student_id"
	CtxTokenJTI  = "token_jti"
)

// TokenBlacklist Token 黑名单查询，由 pkg/redis.Client 实现
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// blacklist 为 nil 时跳过黑名单检查；黑名单查询出错时降级放行
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxStudentID, claims.StudentID)
		c.Set(CtxTokenJTI, claims.ID)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
