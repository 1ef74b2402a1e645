package repository

import (
	"context"

	"gorm.io/gorm"

	"edu-records/internal/model"
	pkgerrors "edu-records/pkg/errors"
)

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	ListGraduationCandidates(ctx context.Context, curriculumID string) ([]string, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Omit("Curriculum").Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Update 乐观锁更新学业状态字段
func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	oldVersion := student.Version
	result := r.db.WithContext(ctx).
		Model(student).
		Where("student_id = ? AND version = ?", student.StudentID, oldVersion).
		Updates(map[string]interface{}{
			"curriculum_id":  student.CurriculumID,
			"is_graduated":   student.IsGraduated,
			"graduated_at":   student.GraduatedAt,
			"classification": student.Classification,
			"updated_by":     student.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.VersionConflict("students", student.StudentID, oldVersion)
	}
	student.Version = oldVersion + 1
	return nil
}

// ListGraduationCandidates 已分配培养方案且尚未毕业的学生 ID；curriculumID 为空时不过滤
func (r *studentRepo) ListGraduationCandidates(ctx context.Context, curriculumID string) ([]string, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("curriculum_id IS NOT NULL AND is_graduated = ?", false)
	if curriculumID != "" {
		db = db.Where("curriculum_id = ?", curriculumID)
	}
	var ids []string
	err := db.Order("student_no ASC").Pluck("student_id", &ids).Error
	return ids, err
}
