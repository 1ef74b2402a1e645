package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"edu-records/internal/dto"
	"edu-records/internal/service"
	"edu-records/pkg/jwt"
	"edu-records/pkg/response"
)

// GraduationHandler 毕业审核 HTTP 处理器
type GraduationHandler struct {
	graduationSvc service.GraduationService
}

// NewGraduationHandler 创建 GraduationHandler
func NewGraduationHandler(graduationSvc service.GraduationService) *GraduationHandler {
	return &GraduationHandler{graduationSvc: graduationSvc}
}

// EvaluateGraduation 审核单个学生；persist=true 时写入毕业标记
// 学生可对本人做不落库的审核，persist 仅限管理员与教师
// POST /api/v1/students/:id/graduation
func (h *GraduationHandler) EvaluateGraduation(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	var req dto.EvaluateGraduationRequest
	if c.Request.ContentLength > 0 {
		if !mustBindJSON(c, &req) {
			return
		}
	}

	if req.Persist {
		role, _ := MustGetRole(c)
		if role != jwt.RoleAdmin && role != jwt.RoleTeacher {
			response.Forbidden(c, 10003, "无权写入毕业标记")
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.graduationSvc.EvaluateGraduation(c.Request.Context(), studentID, req.Persist, callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}

// ListAudits 毕业审核历史
// GET /api/v1/students/:id/graduation/audits?limit=20
func (h *GraduationHandler) ListAudits(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		response.BadRequest(c, 10001, "limit 必须在 1-100 之间")
		return
	}

	audits, err := h.graduationSvc.ListAudits(c.Request.Context(), studentID, limit)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, gin.H{"list": audits})
}

// Sweep 批量毕业审核
// POST /api/v1/graduation/sweep
func (h *GraduationHandler) Sweep(c *gin.Context) {
	var req dto.GraduationSweepRequest
	if c.Request.ContentLength > 0 {
		if !mustBindJSON(c, &req) {
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.graduationSvc.Sweep(c.Request.Context(), &req, callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}
