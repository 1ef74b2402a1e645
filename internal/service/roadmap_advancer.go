package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edu-records/internal/dto"
	"edu-records/internal/model"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
)

// ErrInvalidScore 成绩不在 0~10 之间
var ErrInvalidScore = errors.New("成绩必须在 0 到 10 之间")

// RoadmapAdvancer 响应选课生效与成绩发布事件，推进路线条目状态
//
// 同一学生的事件通过学生锁串行处理；行级 version 防止跨实例的并发覆盖。
type RoadmapAdvancer interface {
	// OnEnrollmentCommitted 条目不存在时返回 roadmap.ErrNotInRoadmap（仅告警，不影响选课本身）
	OnEnrollmentCommitted(ctx context.Context, ev *dto.EnrollmentCommittedEvent, callerID string) (*dto.AdvanceResponse, error)
	// OnGradePosted 条目不存在时忽略
	OnGradePosted(ctx context.Context, ev *dto.GradePostedEvent, callerID string) (*dto.AdvanceResponse, error)
}

type roadmapAdvancer struct {
	repo   *repository.Repository
	policy roadmap.Policy
	cache  RoadmapCache
	locks  *studentLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewRoadmapAdvancer 创建 RoadmapAdvancer 实例
func NewRoadmapAdvancer(
	repo *repository.Repository,
	policy roadmap.Policy,
	cache RoadmapCache,
	locks *studentLocks,
	logger *zap.Logger,
) RoadmapAdvancer {
	if locks == nil {
		locks = newStudentLocks()
	}
	return &roadmapAdvancer{
		repo:   repo,
		policy: policy,
		cache:  cache,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// OnEnrollmentCommitted — Planned/Open/Failed → InProgress
// ═══════════════════════════════════════════════════════════

func (a *roadmapAdvancer) OnEnrollmentCommitted(ctx context.Context, ev *dto.EnrollmentCommittedEvent, callerID string) (*dto.AdvanceResponse, error) {
	if _, err := a.repo.Semester.GetByID(ctx, ev.SemesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		a.logger.Error("查询学期失败", zap.String("semester_id", ev.SemesterID), zap.Error(err))
		return nil, err
	}

	unlock := a.locks.Lock(ev.StudentID)
	defer unlock()

	entry, err := a.getEntry(ctx, ev.StudentID, ev.SubjectID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		a.logger.Warn("选课事件对应课程不在学生培养路线中",
			zap.String("student_id", ev.StudentID),
			zap.String("subject_id", ev.SubjectID),
			zap.String("semester_id", ev.SemesterID),
		)
		return nil, roadmap.ErrNotInRoadmap
	}

	sameSemester := entry.SemesterID != nil && *entry.SemesterID == ev.SemesterID
	if entry.Status == roadmap.StatusInProgress && sameSemester {
		return advanceResult(entry, false), nil
	}

	if entry.Status != roadmap.StatusInProgress {
		if err := roadmap.Transition(entry.Status, roadmap.StatusInProgress); err != nil {
			a.logger.Warn("拒绝非法的课程状态变更",
				zap.String("student_id", ev.StudentID),
				zap.String("subject_id", ev.SubjectID),
				zap.Error(err),
			)
			return nil, err
		}
		if entry.Status == roadmap.StatusFailed {
			// 重修：清除上一次的成绩
			entry.FinalScore = nil
			entry.LetterGrade = nil
		}
		entry.Status = roadmap.StatusInProgress
		if entry.StartedAt == nil {
			now := a.now()
			entry.StartedAt = &now
		}
	}
	semesterID := ev.SemesterID
	entry.SemesterID = &semesterID
	entry.UpdatedBy = model.Operator(callerID)

	if err := a.save(ctx, entry); err != nil {
		return nil, err
	}
	return advanceResult(entry, true), nil
}

// ═══════════════════════════════════════════════════════════
// OnGradePosted — 及格 → Completed，不及格 → Failed
// ═══════════════════════════════════════════════════════════

func (a *roadmapAdvancer) OnGradePosted(ctx context.Context, ev *dto.GradePostedEvent, callerID string) (*dto.AdvanceResponse, error) {
	if ev.FinalScore == nil || math.IsNaN(*ev.FinalScore) || *ev.FinalScore < 0 || *ev.FinalScore > 10 {
		return nil, ErrInvalidScore
	}
	score := *ev.FinalScore

	unlock := a.locks.Lock(ev.StudentID)
	defer unlock()

	entry, err := a.getEntry(ctx, ev.StudentID, ev.SubjectID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		a.logger.Info("成绩对应课程不在学生培养路线中，已忽略",
			zap.String("student_id", ev.StudentID),
			zap.String("subject_id", ev.SubjectID),
		)
		return &dto.AdvanceResponse{Changed: false}, nil
	}

	target := roadmap.StatusFailed
	if a.policy.Passed(score) {
		target = roadmap.StatusCompleted
	}

	if entry.Status == roadmap.StatusCompleted {
		// 重复投递的同一成绩视为幂等
		if target == roadmap.StatusCompleted && sameGrade(entry, score, ev.LetterGrade) {
			return advanceResult(entry, false), nil
		}
		err := &roadmap.TransitionError{From: entry.Status, To: target}
		a.logger.Warn("拒绝修改已完成课程的成绩",
			zap.String("student_id", ev.StudentID),
			zap.String("subject_id", ev.SubjectID),
			zap.Float64("score", score),
			zap.Error(err),
		)
		return nil, err
	}
	if err := roadmap.Transition(entry.Status, target); err != nil {
		return nil, err
	}

	entry.Status = target
	entry.FinalScore = &score
	entry.LetterGrade = nil
	if ev.LetterGrade != "" {
		letter := ev.LetterGrade
		entry.LetterGrade = &letter
	}
	entry.CompletedAt = nil
	if target == roadmap.StatusCompleted {
		now := a.now()
		entry.CompletedAt = &now
	}
	entry.UpdatedBy = model.Operator(callerID)

	if err := a.save(ctx, entry); err != nil {
		return nil, err
	}
	return advanceResult(entry, true), nil
}

// ── 内部辅助方法 ──

func (a *roadmapAdvancer) getEntry(ctx context.Context, studentID, subjectID string) (*model.RoadmapEntry, error) {
	entry, err := a.repo.Roadmap.GetByStudentAndSubject(ctx, studentID, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		a.logger.Error("查询路线条目失败",
			zap.String("student_id", studentID),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		return nil, err
	}
	return entry, nil
}

func (a *roadmapAdvancer) save(ctx context.Context, entry *model.RoadmapEntry) error {
	if err := a.repo.Roadmap.Update(ctx, entry); err != nil {
		a.logger.Error("更新路线条目失败",
			zap.String("entry_id", entry.EntryID),
			zap.String("status", entry.Status.String()),
			zap.Error(err),
		)
		return err
	}
	invalidateOpenSubjects(ctx, a.cache, entry.StudentID, a.logger)
	return nil
}

func sameGrade(entry *model.RoadmapEntry, score float64, letter string) bool {
	if entry.FinalScore == nil || math.Abs(*entry.FinalScore-score) > 1e-9 {
		return false
	}
	current := ""
	if entry.LetterGrade != nil {
		current = *entry.LetterGrade
	}
	return current == letter
}

func advanceResult(entry *model.RoadmapEntry, changed bool) *dto.AdvanceResponse {
	return &dto.AdvanceResponse{
		EntryID: entry.EntryID,
		Status:  entry.Status.String(),
		Changed: changed,
	}
}
