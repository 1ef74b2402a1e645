package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Subject    SubjectRepository
	Curriculum CurriculumRepository
	Student    StudentRepository
	Semester   SemesterRepository
	Roadmap    RoadmapRepository
	Enrollment EnrollmentRepository
	Audit      GraduationAuditRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Subject:    NewSubjectRepo(db),
		Curriculum: NewCurriculumRepo(db),
		Student:    NewStudentRepo(db),
		Semester:   NewSemesterRepo(db),
		Roadmap:    NewRoadmapRepo(db),
		Enrollment: NewEnrollmentRepo(db),
		Audit:      NewGraduationAuditRepo(db),
		db:         db,
	}
}

// BeginTx 开启事务，调用方负责 Commit / Rollback
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在事务中执行 fn，fn 返回错误时回滚
//
// 未绑定数据库连接时（单元测试中的 mock 聚合）直接以自身调用 fn。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
