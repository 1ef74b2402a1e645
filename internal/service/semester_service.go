package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edu-records/internal/dto"
	"edu-records/internal/model"
	"edu-records/internal/repository"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound    = errors.New("学期不存在")
	ErrSemesterDateInvalid = errors.New("学期结束日期必须晚于开始日期")
	ErrSemesterDateOverlap = errors.New("学期日期与已有学期重叠")
	ErrSemesterArchived    = errors.New("已归档的学期不能激活")
	ErrSemesterActive      = errors.New("当前学期不能归档")
)

// SemesterService 学期业务接口
//
// 学期是路线条目引用的具体学期实例，只归档不删除。
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	Activate(ctx context.Context, id string, callerID string) error
}

type semesterService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	start, end, err := parseSemesterRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, "", start, end); err != nil {
		return nil, err
	}

	semester := &model.Semester{
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Status:    model.SemesterStatusActive,
	}
	semester.CreatedBy = model.Operator(callerID)
	semester.UpdatedBy = model.Operator(callerID)

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSemesterResponse(semester), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSemester
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *toSemesterResponse(&semesters[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改名称、日期或归档状态；激活状态只能通过 Activate 变更
func (s *semesterService) Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	semester, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		semester.Name = *req.Name
	}
	if req.StartDate != nil || req.EndDate != nil {
		startRaw, endRaw := semester.StartDate.Format(dateLayout), semester.EndDate.Format(dateLayout)
		if req.StartDate != nil {
			startRaw = *req.StartDate
		}
		if req.EndDate != nil {
			endRaw = *req.EndDate
		}
		start, end, err := parseSemesterRange(startRaw, endRaw)
		if err != nil {
			return nil, err
		}
		if err := s.checkOverlap(ctx, id, start, end); err != nil {
			return nil, err
		}
		semester.StartDate, semester.EndDate = start, end
	}
	if req.Status != nil {
		if *req.Status == model.SemesterStatusArchived && semester.IsActive {
			return nil, ErrSemesterActive
		}
		semester.Status = *req.Status
	}

	semester.UpdatedBy = model.Operator(callerID)

	if err := s.repo.Semester.Update(ctx, semester); err != nil {
		s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── Activate ──────────────────────

// Activate 设为当前学期；可选课程、当前学期路线都以它为准
func (s *semesterService) Activate(ctx context.Context, id string, callerID string) error {
	semester, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if semester.Status == model.SemesterStatusArchived {
		return ErrSemesterArchived
	}
	if semester.IsActive {
		return nil
	}

	// 至多一个激活学期
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Semester.ClearActive(ctx); err != nil {
			return err
		}
		semester.IsActive = true
		semester.UpdatedBy = model.Operator(callerID)
		return txRepo.Semester.Update(ctx, semester)
	})
	if err != nil {
		s.logger.Error("激活学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("学期已激活", zap.String("id", id), zap.String("name", semester.Name))
	return nil
}

// ── 内部辅助方法 ──

func (s *semesterService) get(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return semester, nil
}

// checkOverlap 占位学期按开始日期推算，日期区间不得相交
func (s *semesterService) checkOverlap(ctx context.Context, selfID string, start, end time.Time) error {
	overlap, err := s.repo.Semester.HasOverlap(ctx, selfID, start, end)
	if err != nil {
		s.logger.Error("检查学期日期失败", zap.Error(err))
		return err
	}
	if overlap {
		return ErrSemesterDateOverlap
	}
	return nil
}

const dateLayout = "2006-01-02"

func parseSemesterRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, ErrSemesterDateInvalid
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, ErrSemesterDateInvalid
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrSemesterDateInvalid
	}
	return start, end, nil
}

func toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	return &dto.SemesterResponse{
		ID:        semester.SemesterID,
		Name:      semester.Name,
		StartDate: semester.StartDate.Format(dateLayout),
		EndDate:   semester.EndDate.Format(dateLayout),
		IsActive:  semester.IsActive,
		Status:    semester.Status,
		CreatedAt: semester.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: semester.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
