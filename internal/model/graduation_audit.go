package model

import (
	"time"

	"gorm.io/datatypes"
)

// GraduationAudit 毕业审核记录 — 对应 graduation_audits
//
// 只追加；每次持久化审核写入一条。
type GraduationAudit struct {
	AuditID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_id"`
	StudentID        string         `gorm:"type:uuid;not null;index"                        json:"student_id"`
	CurriculumID     string         `gorm:"type:uuid;not null"                              json:"curriculum_id"`
	Eligible         bool           `gorm:"not null"                                        json:"eligible"`
	Classification   *string        `gorm:"type:varchar(30)"                                json:"classification,omitempty"`
	WeightedAverage  float64        `gorm:"type:numeric(5,2);not null;default:0"           json:"weighted_average"`
	CompletedCredits float64        `gorm:"type:numeric(6,1);not null;default:0"           json:"completed_credits"`
	RequiredCredits  float64        `gorm:"type:numeric(6,1);not null;default:0"           json:"required_credits"`
	MissingMandatory datatypes.JSON `gorm:"type:jsonb;not null"                             json:"missing_mandatory"` // 课程 ID 数组
	EvaluatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"              json:"evaluated_at"`
}

// TableName 指定表名
func (GraduationAudit) TableName() string { return "graduation_audits" }
