package repository

import (
	"context"

	"gorm.io/gorm"

	"edu-records/internal/model"
	pkgerrors "edu-records/pkg/errors"
)

// RoadmapRepository 培养路线条目数据访问接口
type RoadmapRepository interface {
	BatchCreate(ctx context.Context, entries []model.RoadmapEntry) error
	GetByStudentAndSubject(ctx context.Context, studentID, subjectID string) (*model.RoadmapEntry, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.RoadmapEntry, error)
	Update(ctx context.Context, entry *model.RoadmapEntry) error
}

type roadmapRepo struct {
	db *gorm.DB
}

// NewRoadmapRepo 创建 RoadmapRepository 实例
func NewRoadmapRepo(db *gorm.DB) RoadmapRepository {
	return &roadmapRepo{db: db}
}

func (r *roadmapRepo) BatchCreate(ctx context.Context, entries []model.RoadmapEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Omit("Subject", "Semester").
		CreateInBatches(entries, 100).Error
}

func (r *roadmapRepo) GetByStudentAndSubject(ctx context.Context, studentID, subjectID string) (*model.RoadmapEntry, error) {
	var entry model.RoadmapEntry
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *roadmapRepo) ListByStudent(ctx context.Context, studentID string) ([]model.RoadmapEntry, error) {
	var entries []model.RoadmapEntry
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Preload("Semester").
		Where("student_id = ?", studentID).
		Find(&entries).Error
	return entries, err
}

// Update 乐观锁更新，version 不匹配时返回 ErrOptimisticLock
func (r *roadmapRepo) Update(ctx context.Context, entry *model.RoadmapEntry) error {
	oldVersion := entry.Version
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("entry_id = ? AND version = ?", entry.EntryID, oldVersion).
		Updates(map[string]interface{}{
			"semester_id":  entry.SemesterID,
			"status":       entry.Status,
			"final_score":  entry.FinalScore,
			"letter_grade": entry.LetterGrade,
			"started_at":   entry.StartedAt,
			"completed_at": entry.CompletedAt,
			"notes":        entry.Notes,
			"updated_by":   entry.UpdatedBy,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.VersionConflict("roadmap_entries", entry.EntryID, oldVersion)
	}
	entry.Version = oldVersion + 1
	return nil
}
