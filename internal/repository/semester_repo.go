package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"edu-records/internal/model"
	pkgerrors "edu-records/pkg/errors"
)

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	Create(ctx context.Context, semester *model.Semester) error
	GetByID(ctx context.Context, id string) (*model.Semester, error)
	GetCurrent(ctx context.Context) (*model.Semester, error)
	List(ctx context.Context) ([]model.Semester, error)
	Update(ctx context.Context, semester *model.Semester) error
	ClearActive(ctx context.Context) error
	// HasOverlap 是否存在与 [start, end] 相交的其他学期（闭区间）
	HasOverlap(ctx context.Context, excludeID string, start, end time.Time) (bool, error)
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Create(semester).Error
}

func (r *semesterRepo) GetByID(ctx context.Context, id string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", id).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetCurrent(ctx context.Context) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

// List 按开始日期升序；路线中的学期推算依赖此顺序
func (r *semesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.db.WithContext(ctx).
		Order("start_date ASC").
		Find(&semesters).Error
	return semesters, err
}

// Update 乐观锁更新
func (r *semesterRepo) Update(ctx context.Context, semester *model.Semester) error {
	oldVersion := semester.Version
	result := r.db.WithContext(ctx).
		Model(semester).
		Where("semester_id = ? AND version = ?", semester.SemesterID, oldVersion).
		Updates(map[string]interface{}{
			"name":       semester.Name,
			"start_date": semester.StartDate,
			"end_date":   semester.EndDate,
			"is_active":  semester.IsActive,
			"status":     semester.Status,
			"updated_by": semester.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.VersionConflict("semesters", semester.SemesterID, oldVersion)
	}
	semester.Version = oldVersion + 1
	return nil
}

// ClearActive 将所有学期的 is_active 设为 false
func (r *semesterRepo) ClearActive(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *semesterRepo) HasOverlap(ctx context.Context, excludeID string, start, end time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if excludeID != "" {
		q = q.Where("semester_id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
