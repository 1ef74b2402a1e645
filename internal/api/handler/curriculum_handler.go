package handler

import (
	"github.com/gin-gonic/gin"

	"edu-records/internal/dto"
	"edu-records/internal/roadmap"
	"edu-records/internal/service"
	"edu-records/pkg/response"
)

// CurriculumHandler 培养方案模块 HTTP 处理器
type CurriculumHandler struct {
	curriculumSvc service.CurriculumService
}

// NewCurriculumHandler 创建 CurriculumHandler
func NewCurriculumHandler(curriculumSvc service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculumSvc: curriculumSvc}
}

// ImportCurriculum 导入或更新培养方案
// POST /api/v1/curricula
func (h *CurriculumHandler) ImportCurriculum(c *gin.Context) {
	var req dto.ImportCurriculumRequest
	if !mustBindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.curriculumSvc.Import(c.Request.Context(), toDefinition(&req), callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.Created(c, result)
}

// ListCurricula 培养方案列表
// GET /api/v1/curricula
func (h *CurriculumHandler) ListCurricula(c *gin.Context) {
	list, err := h.curriculumSvc.List(c.Request.Context())
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetCurriculum 培养方案详情
// GET /api/v1/curricula/:id
func (h *CurriculumHandler) GetCurriculum(c *gin.Context) {
	result, err := h.curriculumSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}

func toDefinition(req *dto.ImportCurriculumRequest) roadmap.Definition {
	def := roadmap.Definition{
		Code:           req.Code,
		Name:           req.Name,
		TotalSemesters: req.TotalSemesters,
		Subjects:       make([]roadmap.DefinitionSubject, 0, len(req.Subjects)),
	}
	for _, s := range req.Subjects {
		def.Subjects = append(def.Subjects, roadmap.DefinitionSubject{
			Code:         s.Code,
			Name:         s.Name,
			Credits:      s.Credits,
			Mandatory:    s.Mandatory,
			Semester:     s.Semester,
			Prerequisite: s.Prerequisite,
		})
	}
	return def
}
