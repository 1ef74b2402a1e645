package model

import "time"

// Student 学生 — 对应 students
//
// 账号由统一身份服务维护，本服务只保存学业状态。
type Student struct {
	StudentID      string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	StudentNo      string      `gorm:"type:varchar(30);not null;uniqueIndex"           json:"student_no"`
	Name           string      `gorm:"type:varchar(100);not null"                      json:"name"`
	Email          string      `gorm:"type:varchar(200)"                               json:"email"`
	CurriculumID   *string     `gorm:"type:uuid;index"                                 json:"curriculum_id,omitempty"`
	IsGraduated    bool        `gorm:"not null;default:false"                          json:"is_graduated"`
	GraduatedAt    *time.Time  `                                                       json:"graduated_at,omitempty"`
	Classification *string     `gorm:"type:varchar(30)"                                json:"classification,omitempty"`
	Curriculum     *Curriculum `gorm:"foreignKey:CurriculumID"                         json:"curriculum,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
