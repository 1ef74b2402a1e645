package handler

import (
	"github.com/gin-gonic/gin"

	"edu-records/internal/dto"
	"edu-records/internal/service"
	"edu-records/pkg/response"
)

// RoadmapHandler 培养路线模块 HTTP 处理器
type RoadmapHandler struct {
	roadmapSvc service.RoadmapService
}

// NewRoadmapHandler 创建 RoadmapHandler
func NewRoadmapHandler(roadmapSvc service.RoadmapService) *RoadmapHandler {
	return &RoadmapHandler{roadmapSvc: roadmapSvc}
}

// AssignCurriculum 为学生分配培养方案并生成路线
// POST /api/v1/students/:id/curriculum
func (h *RoadmapHandler) AssignCurriculum(c *gin.Context) {
	studentID := c.Param("id")

	var req dto.AssignCurriculumRequest
	if !mustBindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.roadmapSvc.AssignCurriculum(c.Request.Context(), studentID, req.CurriculumID, callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.Created(c, result)
}

// GetRoadmap 获取学生完整培养路线
// GET /api/v1/students/:id/roadmap
func (h *RoadmapHandler) GetRoadmap(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	result, err := h.roadmapSvc.GetRoadmap(c.Request.Context(), studentID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}

// GetCurrentSemester 获取学生当前学期的路线
// GET /api/v1/students/:id/roadmap/current
func (h *RoadmapHandler) GetCurrentSemester(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	result, err := h.roadmapSvc.GetCurrentSemester(c.Request.Context(), studentID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}

// GetOpenSubjects 获取学生当前可选课程
// GET /api/v1/students/:id/roadmap/open
func (h *RoadmapHandler) GetOpenSubjects(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	result, err := h.roadmapSvc.GetOpenSubjects(c.Request.Context(), studentID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}

// CheckEligibility 选课资格查询
// GET /api/v1/students/:id/eligibility?subject_id=xxx&semester_id=xxx&class_section_id=xxx
func (h *RoadmapHandler) CheckEligibility(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	var q dto.EligibilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "subject_id 与 semester_id 不能为空")
		return
	}

	result, err := h.roadmapSvc.CheckEligibility(c.Request.Context(), studentID, &q)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}
