package handler

import (
	"github.com/gin-gonic/gin"

	"edu-records/internal/service"
	"edu-records/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRoadmap 导出学生培养路线
// GET /api/v1/students/:id/roadmap/export
func (h *ExportHandler) ExportRoadmap(c *gin.Context) {
	studentID := c.Param("id")
	if !MustAccessStudent(c, studentID) {
		return
	}

	buf, filename, err := h.exportSvc.ExportRoadmap(c.Request.Context(), studentID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}
