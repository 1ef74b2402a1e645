package repository

import (
	"context"

	"gorm.io/gorm"

	"edu-records/internal/model"
)

// GraduationAuditRepository 毕业审核记录数据访问接口
type GraduationAuditRepository interface {
	Create(ctx context.Context, audit *model.GraduationAudit) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]model.GraduationAudit, error)
}

type graduationAuditRepo struct {
	db *gorm.DB
}

// NewGraduationAuditRepo 创建 GraduationAuditRepository 实例
func NewGraduationAuditRepo(db *gorm.DB) GraduationAuditRepository {
	return &graduationAuditRepo{db: db}
}

func (r *graduationAuditRepo) Create(ctx context.Context, audit *model.GraduationAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// ListByStudent 最近的审核记录在前
func (r *graduationAuditRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]model.GraduationAudit, error) {
	var audits []model.GraduationAudit
	db := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("evaluated_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&audits).Error
	return audits, err
}
