package model

// 选课记录状态
const (
	EnrollmentPending   = "pending"
	EnrollmentApproved  = "approved"
	EnrollmentRejected  = "rejected"
	EnrollmentDropped   = "dropped"
	EnrollmentCompleted = "completed" // 已结课，成绩待审批
)

// ActiveEnrollmentStatuses 判定重复选课时计入的状态：待审批、已通过、已结课待成绩审批
var ActiveEnrollmentStatuses = []string{EnrollmentPending, EnrollmentApproved, EnrollmentCompleted}

// ClassEnrollment 学生在某教学班的选课记录 — 对应 class_enrollments
//
// 由选课服务写入，本服务只读，用于判定重复选课。
type ClassEnrollment struct {
	EnrollmentID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	StudentID      string `gorm:"type:uuid;not null;index"                        json:"student_id"`
	SubjectID      string `gorm:"type:uuid;not null"                              json:"subject_id"`
	SemesterID     string `gorm:"type:uuid;not null"                              json:"semester_id"`
	ClassSectionID string `gorm:"type:uuid;not null"                              json:"class_section_id"`
	Status         string `gorm:"type:varchar(20);not null;default:'pending'"     json:"status"`
	BaseModel
}

// TableName 指定表名
func (ClassEnrollment) TableName() string { return "class_enrollments" }
