package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"edu-records/internal/dto"
	"edu-records/internal/model"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
)

const defaultGraduationWorkers = 8

// GraduationService 毕业审核
type GraduationService interface {
	// EvaluateGraduation persist 为 true 且满足条件时写入毕业标记，并记录审核结果
	EvaluateGraduation(ctx context.Context, studentID string, persist bool, callerID string) (*dto.GraduationVerdictResponse, error)
	// Sweep 并发审核全部未毕业学生；单个学生失败只计数，不中断整体
	Sweep(ctx context.Context, req *dto.GraduationSweepRequest, callerID string) (*dto.GraduationSweepResponse, error)
	ListAudits(ctx context.Context, studentID string, limit int) ([]model.GraduationAudit, error)
}

type graduationService struct {
	repo      *repository.Repository
	catalog   *roadmap.Catalog
	evaluator *roadmap.GraduationEvaluator
	cache     RoadmapCache
	workers   int
	locks     *studentLocks
	logger    *zap.Logger
	now       func() time.Time
}

// NewGraduationService 创建 GraduationService 实例
func NewGraduationService(
	repo *repository.Repository,
	catalog *roadmap.Catalog,
	policy roadmap.Policy,
	cache RoadmapCache,
	workers int,
	locks *studentLocks,
	logger *zap.Logger,
) GraduationService {
	if workers <= 0 {
		workers = defaultGraduationWorkers
	}
	if locks == nil {
		locks = newStudentLocks()
	}
	return &graduationService{
		repo:      repo,
		catalog:   catalog,
		evaluator: roadmap.NewGraduationEvaluator(catalog, policy),
		cache:     cache,
		workers:   workers,
		locks:     locks,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── EvaluateGraduation ──────────────────────

func (s *graduationService) EvaluateGraduation(ctx context.Context, studentID string, persist bool, callerID string) (*dto.GraduationVerdictResponse, error) {
	if persist {
		unlock := s.locks.Lock(studentID)
		defer unlock()
	}

	student, _, snap, err := loadSnapshot(ctx, s.repo, s.catalog, studentID, s.logger)
	if err != nil {
		return nil, err
	}

	verdict := s.evaluator.Evaluate(snap)
	resp := s.toVerdictResponse(studentID, snap.CurriculumID, verdict)
	resp.Graduated = student.IsGraduated

	if !persist || snap.CurriculumID == "" {
		return resp, nil
	}

	if verdict.Eligible && !student.IsGraduated {
		now := s.now()
		student.IsGraduated = true
		student.GraduatedAt = &now
		if verdict.Classification != "" {
			classification := verdict.Classification
			student.Classification = &classification
		}
		student.UpdatedBy = model.Operator(callerID)
		if err := s.repo.Student.Update(ctx, student); err != nil {
			s.logger.Error("写入毕业标记失败", zap.String("student_id", studentID), zap.Error(err))
			return nil, err
		}
		invalidateOpenSubjects(ctx, s.cache, studentID, s.logger)
		resp.Graduated = true
		s.logger.Info("学生已毕业",
			zap.String("student_id", studentID),
			zap.String("classification", verdict.Classification),
			zap.Float64("weighted_average", verdict.WeightedAverage),
		)
	}

	if err := s.recordAudit(ctx, studentID, snap.CurriculumID, verdict); err != nil {
		s.logger.Warn("记录毕业审核失败", zap.String("student_id", studentID), zap.Error(err))
	}
	return resp, nil
}

// ────────────────────── Sweep ──────────────────────

func (s *graduationService) Sweep(ctx context.Context, req *dto.GraduationSweepRequest, callerID string) (*dto.GraduationSweepResponse, error) {
	if req.CurriculumID != "" {
		if _, err := graphFor(ctx, s.repo, s.catalog, req.CurriculumID); err != nil {
			return nil, err
		}
	}

	ids, err := s.repo.Student.ListGraduationCandidates(ctx, req.CurriculumID)
	if err != nil {
		s.logger.Error("查询待审核学生失败", zap.Error(err))
		return nil, err
	}

	verdicts := make([]*dto.GraduationVerdictResponse, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := s.EvaluateGraduation(gctx, id, req.Persist, callerID)
			if err != nil {
				s.logger.Warn("毕业审核失败", zap.String("student_id", id), zap.Error(err))
				return nil
			}
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.GraduationSweepResponse{Verdicts: make([]dto.GraduationVerdictResponse, 0, len(ids))}
	for _, v := range verdicts {
		if v == nil {
			resp.Failed++
			continue
		}
		resp.Evaluated++
		if v.Eligible {
			resp.Eligible++
		}
		if v.Graduated {
			resp.Graduated++
		}
		resp.Verdicts = append(resp.Verdicts, *v)
	}

	s.logger.Info("批量毕业审核完成",
		zap.String("curriculum_id", req.CurriculumID),
		zap.Bool("persist", req.Persist),
		zap.Int("evaluated", resp.Evaluated),
		zap.Int("eligible", resp.Eligible),
		zap.Int("graduated", resp.Graduated),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ────────────────────── ListAudits ──────────────────────

func (s *graduationService) ListAudits(ctx context.Context, studentID string, limit int) ([]model.GraduationAudit, error) {
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		return nil, translateStudentErr(err)
	}
	audits, err := s.repo.Audit.ListByStudent(ctx, studentID, limit)
	if err != nil {
		s.logger.Error("查询毕业审核记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return audits, nil
}

// ── 内部辅助方法 ──

func (s *graduationService) recordAudit(ctx context.Context, studentID, curriculumID string, verdict roadmap.GraduationVerdict) error {
	missing, err := json.Marshal(verdict.MissingMandatory)
	if err != nil {
		return err
	}
	audit := &model.GraduationAudit{
		StudentID:        studentID,
		CurriculumID:     curriculumID,
		Eligible:         verdict.Eligible,
		WeightedAverage:  verdict.WeightedAverage,
		CompletedCredits: verdict.CompletedCredits,
		RequiredCredits:  verdict.RequiredCredits,
		MissingMandatory: datatypes.JSON(missing),
		EvaluatedAt:      s.now(),
	}
	if verdict.Classification != "" {
		classification := verdict.Classification
		audit.Classification = &classification
	}
	return s.repo.Audit.Create(ctx, audit)
}

// toVerdictResponse 缺失的必修课以课程代码返回
func (s *graduationService) toVerdictResponse(studentID, curriculumID string, v roadmap.GraduationVerdict) *dto.GraduationVerdictResponse {
	resp := &dto.GraduationVerdictResponse{
		StudentID:        studentID,
		Eligible:         v.Eligible,
		Classification:   v.Classification,
		MissingMandatory: make([]string, 0, len(v.MissingMandatory)),
		WeightedAverage:  v.WeightedAverage,
		CompletedCredits: v.CompletedCredits,
		RequiredCredits:  v.RequiredCredits,
		Reason:           v.Reason,
	}
	graph, _ := s.catalog.Graph(curriculumID)
	for _, id := range v.MissingMandatory {
		code := id
		if graph != nil {
			if subject, ok := graph.Subject(id); ok {
				code = subject.Code
			}
		}
		resp.MissingMandatory = append(resp.MissingMandatory, code)
	}
	return resp
}
