package handler

import "edu-records/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester   *SemesterHandler
	Curriculum *CurriculumHandler
	Roadmap    *RoadmapHandler
	Event      *EventHandler
	Graduation *GraduationHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Semester:   NewSemesterHandler(svc.Semester),
		Curriculum: NewCurriculumHandler(svc.Curriculum),
		Roadmap:    NewRoadmapHandler(svc.Roadmap),
		Event:      NewEventHandler(svc.Advancer),
		Graduation: NewGraduationHandler(svc.Graduation),
		Export:     NewExportHandler(svc.Export),
	}
}
