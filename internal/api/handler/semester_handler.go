package handler

import (
	"github.com/gin-gonic/gin"

	"edu-records/internal/dto"
	"edu-records/internal/service"
	"edu-records/pkg/response"
)

// SemesterHandler 学期模块 HTTP 处理器
type SemesterHandler struct {
	semesterSvc service.SemesterService
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(semesterSvc service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterSvc: semesterSvc}
}

// ListSemesters 获取学期列表
// GET /api/v1/semesters
func (h *SemesterHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesterSvc.List(c.Request.Context())
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, gin.H{"list": semesters})
}

// GetSemester 获取学期详情
// GET /api/v1/semesters/:id
func (h *SemesterHandler) GetSemester(c *gin.Context) {
	id := c.Param("id")

	semester, err := h.semesterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, semester)
}

// GetCurrentSemester 获取当前学期
// GET /api/v1/semesters/current
func (h *SemesterHandler) GetCurrentSemester(c *gin.Context) {
	semester, err := h.semesterSvc.GetCurrent(c.Request.Context())
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, semester)
}

// CreateSemester 创建学期
// POST /api/v1/semesters
func (h *SemesterHandler) CreateSemester(c *gin.Context) {
	var req dto.CreateSemesterRequest
	if !mustBindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	semester, err := h.semesterSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.Created(c, semester)
}

// UpdateSemester 更新学期
// PUT /api/v1/semesters/:id
func (h *SemesterHandler) UpdateSemester(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateSemesterRequest
	if !mustBindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	semester, err := h.semesterSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, semester)
}

// ActivateSemester 激活学期（设为当前学期）
// PUT /api/v1/semesters/:id/activate
func (h *SemesterHandler) ActivateSemester(c *gin.Context) {
	id := c.Param("id")

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.semesterSvc.Activate(c.Request.Context(), id, callerID); err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, nil)
}
