package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"edu-records/internal/api/middleware"
	"edu-records/pkg/jwt"
	"edu-records/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxRole)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustAccessStudent 校验调用方能否访问某学生的数据。
// 学生角色只能访问自己（Token 中的 student_id），其他角色由路由层 RoleAuth 控制。
func MustAccessStudent(c *gin.Context, studentID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role != jwt.RoleStudent {
		return true
	}
	if c.GetString(middleware.CtxStudentID) != studentID {
		response.Forbidden(c, 10003, "只能查看本人的培养路线")
		return false
	}
	return true
}

// mustBindJSON 绑定并校验 JSON 请求体，失败时写入 400；超出 BodyLimit 时写入 413
func mustBindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.PayloadTooLarge(c, 10005, "请求体过大")
		return false
	}
	response.BadRequest(c, 10001, "参数校验失败")
	return false
}
