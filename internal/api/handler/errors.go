package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edu-records/internal/roadmap"
	"edu-records/internal/service"
	pkgerrors "edu-records/pkg/errors"
	"edu-records/pkg/response"
)

// handleRoadmapError 统一处理培养路线相关业务错误
//
// 错误码 14xxx：学期；20xxx：培养路线；21xxx：培养方案；22xxx：毕业审核与导出。
func handleRoadmapError(c *gin.Context, err error) {
	var cfgErr *roadmap.ConfigurationError
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 20001, "学生不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 20002, "课程不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrSemesterDateInvalid):
		response.BadRequest(c, 14002, "学期日期无效")
	case errors.Is(err, service.ErrSemesterDateOverlap):
		response.Conflict(c, 14003, "学期日期与已有学期重叠", "")
	case errors.Is(err, service.ErrSemesterArchived):
		response.Conflict(c, 14005, "已归档的学期不能激活", "")
	case errors.Is(err, service.ErrSemesterActive):
		response.Conflict(c, 14006, "当前学期不能归档", "")
	case errors.Is(err, service.ErrNoActiveSemester):
		response.NotFound(c, 14004, "当前没有激活的学期")
	case errors.Is(err, service.ErrCurriculumNotFound):
		response.NotFound(c, 21001, "培养方案不存在")
	case errors.Is(err, service.ErrCurriculumAlreadyAssigned):
		response.Conflict(c, 20003, "学生已分配培养方案", "")
	case errors.Is(err, roadmap.ErrInvalidTransition):
		response.Conflict(c, 20004, "非法的课程状态变更", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20005, "数据已被其他操作修改，请重试", err.Error())
	case errors.Is(err, service.ErrInvalidScore):
		response.BadRequest(c, 20006, "成绩必须在 0 到 10 之间")
	case errors.As(err, &cfgErr):
		response.Unprocessable(c, 21002, "培养方案配置错误", cfgErr.Error())
	case errors.Is(err, service.ErrExportNoRoadmap):
		response.NotFound(c, 22001, "学生尚未分配培养方案")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
