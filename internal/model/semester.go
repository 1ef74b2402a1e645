package model

import "time"

// Semester 学期表 — 对应 semesters
//
// 学期按 start_date 排序；同一时刻至多一个 is_active 学期。
type Semester struct {
	SemesterID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"semester_id"`
	Name       string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate  time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate    time.Time `gorm:"type:date;not null"                             json:"end_date"`
	IsActive   bool      `gorm:"not null;default:false"                         json:"is_active"`
	Status     string    `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | archived
	VersionedModel
}

// 学期状态：归档学期保留给历史路线条目引用，不能再激活
const (
	SemesterStatusActive   = "active"
	SemesterStatusArchived = "archived"
)

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

// Ended 学期是否在 t 当天之前已经结束
func (s *Semester) Ended(t time.Time) bool {
	return s.EndDate.Before(t.Truncate(24 * time.Hour))
}
