package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edu-records/internal/dto"
	"edu-records/internal/roadmap"
	"edu-records/internal/service"
	"edu-records/pkg/response"
)

// EventHandler 选课、成绩事件接收
//
// 事件可能重复投递；重复事件返回 200 且 changed=false。
type EventHandler struct {
	advancer service.RoadmapAdvancer
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(advancer service.RoadmapAdvancer) *EventHandler {
	return &EventHandler{advancer: advancer}
}

// EnrollmentCommitted 选课生效
// POST /api/v1/events/enrollment-committed
func (h *EventHandler) EnrollmentCommitted(c *gin.Context) {
	var ev dto.EnrollmentCommittedEvent
	if !mustBindJSON(c, &ev) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.advancer.OnEnrollmentCommitted(c.Request.Context(), &ev, callerID)
	if err != nil {
		// 课程不在路线中不影响选课本身，只提示调用方
		if errors.Is(err, roadmap.ErrNotInRoadmap) {
			response.Accepted(c, "课程不在学生培养路线中", &dto.AdvanceResponse{Changed: false})
			return
		}
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}

// GradePosted 成绩发布
// POST /api/v1/events/grade-posted
func (h *EventHandler) GradePosted(c *gin.Context) {
	var ev dto.GradePostedEvent
	if !mustBindJSON(c, &ev) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.advancer.OnGradePosted(c.Request.Context(), &ev, callerID)
	if err != nil {
		handleRoadmapError(c, err)
		return
	}

	response.OK(c, result)
}
