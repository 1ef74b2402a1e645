package model

import (
	"time"

	"edu-records/internal/roadmap"
)

// RoadmapEntry 学生培养路线条目 — 对应 roadmap_entries
//
// (student_id, subject_id) 唯一；状态只经 roadmap.Transition 变更。
type RoadmapEntry struct {
	EntryID     string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"          json:"entry_id"`
	StudentID   string         `gorm:"type:uuid;not null;uniqueIndex:uk_roadmap_student_subject" json:"student_id"`
	SubjectID   string         `gorm:"type:uuid;not null;uniqueIndex:uk_roadmap_student_subject" json:"subject_id"`
	SemesterID  *string        `gorm:"type:uuid;index"                                         json:"semester_id,omitempty"`
	Status      roadmap.Status `gorm:"type:varchar(20);not null;default:'Planned'"             json:"status"`
	FinalScore  *float64       `gorm:"type:numeric(4,2)"                                       json:"final_score,omitempty"`
	LetterGrade *string        `gorm:"type:varchar(5)"                                         json:"letter_grade,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Notes       string         `gorm:"type:text;not null;default:''" json:"notes"`
	Subject     *Subject       `gorm:"foreignKey:SubjectID"                                    json:"subject,omitempty"`
	Semester    *Semester      `gorm:"foreignKey:SemesterID"                                   json:"semester,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (RoadmapEntry) TableName() string { return "roadmap_entries" }

// State 转换为判定器使用的快照
func (e *RoadmapEntry) State() roadmap.EntryState {
	st := roadmap.EntryState{SubjectID: e.SubjectID, Status: e.Status, FinalScore: e.FinalScore}
	if e.SemesterID != nil {
		st.SemesterID = *e.SemesterID
	}
	return st
}
