package repository

import (
	"context"

	"gorm.io/gorm"

	"edu-records/internal/model"
)

// EnrollmentRepository 选课记录只读访问接口
type EnrollmentRepository interface {
	ListActiveByStudent(ctx context.Context, studentID string) ([]model.ClassEnrollment, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

// ListActiveByStudent 待审核或已通过的选课记录
func (r *enrollmentRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]model.ClassEnrollment, error) {
	var enrollments []model.ClassEnrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND status IN ?", studentID, model.ActiveEnrollmentStatuses).
		Find(&enrollments).Error
	return enrollments, err
}
