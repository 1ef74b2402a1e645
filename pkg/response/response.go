package response

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// RequestIDKey 请求 ID 在 gin.Context 中的键，由 RequestID 中间件写入
const RequestIDKey = "request_id"

// CodeInternal 未归类错误的业务码
const CodeInternal = 50000

// Response 统一响应结构
// code 为 0 表示成功；出错时 request_id 便于与日志对照
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Details   string      `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func write(c *gin.Context, httpStatus, code int, message string, data interface{}, details string) {
	resp := Response{Code: code, Message: message, Data: data, Details: details}
	if code != 0 {
		resp.RequestID = c.GetString(RequestIDKey)
	}
	c.JSON(httpStatus, resp)
}

// ── 成功响应 ──

// OK 200
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, 0, "success", data, "")
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, 0, "success", data, "")
}

// Accepted 202 已接收但未产生变更（如事件对应的课程不在学生路线中）
func Accepted(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusAccepted, 0, message, data, "")
}

// Attachment 200 文件下载，文件名按 RFC 5987 编码
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, contentType, body)
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	write(c, httpStatus, code, message, nil, "")
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	write(c, httpStatus, code, message, nil, details)
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409，details 可为空
func Conflict(c *gin.Context, code int, message, details string) {
	ErrorWithDetails(c, http.StatusConflict, code, message, details)
}

// PayloadTooLarge 413
func PayloadTooLarge(c *gin.Context, code int, message string) {
	Error(c, http.StatusRequestEntityTooLarge, code, message)
}

// Unprocessable 422 请求格式正确但内容无法接受（如培养方案依赖成环）
func Unprocessable(c *gin.Context, code int, message, details string) {
	ErrorWithDetails(c, http.StatusUnprocessableEntity, code, message, details)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, code int, message string) {
	Error(c, http.StatusTooManyRequests, code, message)
}

// InternalError 500，不向客户端暴露内部错误
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}
