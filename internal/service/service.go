package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"edu-records/config"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
)

// RoadmapCache 可选课程缓存
//
// 缓存只是派生数据：读失败按未命中处理，写失败只记录日志。
type RoadmapCache interface {
	GetOpenSubjects(ctx context.Context, studentID, semesterID string) ([]string, bool, error)
	SetOpenSubjects(ctx context.Context, studentID, semesterID string, subjectIDs []string, ttl time.Duration) error
	InvalidateStudent(ctx context.Context, studentID string) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Semester   SemesterService
	Curriculum CurriculumService
	Roadmap    RoadmapService
	Advancer   RoadmapAdvancer
	Graduation GraduationService
	Export     ExportService
}

// NewService 创建 Service 聚合
//
// cache 可为 nil（未配置 Redis 时每次重新计算）。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	catalog *roadmap.Catalog,
	cache RoadmapCache,
	logger *zap.Logger,
) *Service {
	policy := NewPolicy(&cfg.Roadmap)
	locks := newStudentLocks()

	roadmapSvc := NewRoadmapService(repo, catalog, policy, cache, cfg.Roadmap.OpenCacheTTL, locks, logger)
	graduationSvc := NewGraduationService(repo, catalog, policy, cache, cfg.Roadmap.GraduationWorkers, locks, logger)

	return &Service{
		Semester:   NewSemesterService(repo, logger),
		Curriculum: NewCurriculumService(repo, catalog, logger),
		Roadmap:    roadmapSvc,
		Advancer:   NewRoadmapAdvancer(repo, policy, cache, locks, logger),
		Graduation: graduationSvc,
		Export:     NewExportService(roadmapSvc, graduationSvc, logger),
	}
}

// NewPolicy 由配置生成及格线与毕业等级策略
func NewPolicy(cfg *config.RoadmapConfig) roadmap.Policy {
	if cfg == nil {
		return roadmap.DefaultPolicy()
	}
	policy := roadmap.Policy{PassingThreshold: cfg.PassingThreshold}
	if policy.PassingThreshold <= 0 {
		policy.PassingThreshold = roadmap.DefaultPassingThreshold
	}
	for _, t := range cfg.Classification {
		policy.Tiers = append(policy.Tiers, roadmap.Tier{Name: t.Name, MinAverage: t.MinAverage})
	}
	if len(policy.Tiers) == 0 {
		policy.Tiers = roadmap.DefaultPolicy().Tiers
	}
	return policy
}
