package model

// Curriculum 培养方案 — 对应 curricula
//
// 内容变化的重新导入写入新行（同一 code，version 加一），旧版本保留；
// 学生固定在分配时的版本上。(code, version) 唯一。
type Curriculum struct {
	CurriculumID   string                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"curriculum_id"`
	Code           string                  `gorm:"type:varchar(50);not null;index"                 json:"code"`
	Name           string                  `gorm:"type:varchar(200);not null"                      json:"name"`
	TotalSemesters int                     `gorm:"not null"                                        json:"total_semesters"`
	Links          []CurriculumSubjectLink `gorm:"foreignKey:CurriculumID"                         json:"links,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Curriculum) TableName() string { return "curricula" }

// CurriculumSubjectLink 培养方案中的课程 — 对应 curriculum_subjects
type CurriculumSubjectLink struct {
	CurriculumID   string   `gorm:"type:uuid;primaryKey"  json:"curriculum_id"`
	SubjectID      string   `gorm:"type:uuid;primaryKey"  json:"subject_id"`
	SemesterNumber int      `gorm:"not null"              json:"semester_number"`
	PrerequisiteID *string  `gorm:"type:uuid"             json:"prerequisite_id,omitempty"`
	Subject        *Subject `gorm:"foreignKey:SubjectID"  json:"subject,omitempty"`
}

// TableName 指定表名
func (CurriculumSubjectLink) TableName() string { return "curriculum_subjects" }
