package repository

import (
	"context"

	"gorm.io/gorm"

	"edu-records/internal/model"
)

// CurriculumRepository 培养方案数据访问接口
//
// 培养方案按 (code, version) 只增不改，每个版本一行。
type CurriculumRepository interface {
	Create(ctx context.Context, curriculum *model.Curriculum) error
	GetByID(ctx context.Context, id string) (*model.Curriculum, error)
	GetLatestByCode(ctx context.Context, code string) (*model.Curriculum, error)
	List(ctx context.Context) ([]model.Curriculum, error)
	CreateLinks(ctx context.Context, links []model.CurriculumSubjectLink) error
	ListLinks(ctx context.Context, curriculumID string) ([]model.CurriculumSubjectLink, error)
	ListWithLinks(ctx context.Context) ([]model.Curriculum, error)
}

type curriculumRepo struct {
	db *gorm.DB
}

// NewCurriculumRepo 创建 CurriculumRepository 实例
func NewCurriculumRepo(db *gorm.DB) CurriculumRepository {
	return &curriculumRepo{db: db}
}

func (r *curriculumRepo) Create(ctx context.Context, curriculum *model.Curriculum) error {
	return r.db.WithContext(ctx).Omit("Links").Create(curriculum).Error
}

func (r *curriculumRepo) withLinks() *gorm.DB {
	return r.db.
		Preload("Links", func(db *gorm.DB) *gorm.DB {
			return db.Order("semester_number ASC")
		}).
		Preload("Links.Subject")
}

func (r *curriculumRepo) GetByID(ctx context.Context, id string) (*model.Curriculum, error) {
	var curriculum model.Curriculum
	err := r.withLinks().WithContext(ctx).
		Where("curriculum_id = ?", id).
		First(&curriculum).Error
	if err != nil {
		return nil, err
	}
	return &curriculum, nil
}

// GetLatestByCode 某方案代码的最新版本（含课程关联）
func (r *curriculumRepo) GetLatestByCode(ctx context.Context, code string) (*model.Curriculum, error) {
	var curriculum model.Curriculum
	err := r.withLinks().WithContext(ctx).
		Where("code = ?", code).
		Order("version DESC").
		First(&curriculum).Error
	if err != nil {
		return nil, err
	}
	return &curriculum, nil
}

// List 全部版本，同一代码内新版本在前
func (r *curriculumRepo) List(ctx context.Context) ([]model.Curriculum, error) {
	var curricula []model.Curriculum
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Order("version DESC").
		Find(&curricula).Error
	return curricula, err
}

// CreateLinks 写入新版本的课程关联，须与 Create 在同一事务中调用
func (r *curriculumRepo) CreateLinks(ctx context.Context, links []model.CurriculumSubjectLink) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Subject").CreateInBatches(links, 100).Error
}

func (r *curriculumRepo) ListLinks(ctx context.Context, curriculumID string) ([]model.CurriculumSubjectLink, error) {
	var links []model.CurriculumSubjectLink
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("curriculum_id = ?", curriculumID).
		Order("semester_number ASC").
		Find(&links).Error
	return links, err
}

// ListWithLinks 加载全部培养方案及其课程，供启动时构建依赖图
func (r *curriculumRepo) ListWithLinks(ctx context.Context) ([]model.Curriculum, error) {
	var curricula []model.Curriculum
	err := r.db.WithContext(ctx).
		Preload("Links").
		Preload("Links.Subject").
		Order("code ASC").
		Order("version ASC").
		Find(&curricula).Error
	return curricula, err
}
