package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edu-records/internal/model"
)

// SubjectRepository 课程数据访问接口
type SubjectRepository interface {
	CreateIfAbsent(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, id string) (*model.Subject, error)
	GetByCode(ctx context.Context, code string) (*model.Subject, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Subject, error)
}

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo 创建 SubjectRepository 实例
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

// CreateIfAbsent 课程代码不存在时插入；已存在则保持原记录不变，
// 两种情况下都将库中的记录回填到 subject
func (r *subjectRepo) CreateIfAbsent(ctx context.Context, subject *model.Subject) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(subject).Error; err != nil {
		return err
	}
	return db.Where("code = ?", subject.Code).First(subject).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetByCode(ctx context.Context, code string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var subjects []model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id IN ?", ids).
		Order("code ASC").
		Find(&subjects).Error
	return subjects, err
}
