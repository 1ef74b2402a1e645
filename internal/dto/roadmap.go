package dto

// ── 培养路线模块 DTO ──

// AssignCurriculumRequest 为学生分配培养方案
type AssignCurriculumRequest struct {
	CurriculumID string `json:"curriculum_id" binding:"required"`
}

// EligibilityQuery 选课资格查询参数
type EligibilityQuery struct {
	SubjectID      string `form:"subject_id"       binding:"required"`
	SemesterID     string `form:"semester_id"      binding:"required"`
	ClassSectionID string `form:"class_section_id"`
}

// EligibilityResponse 选课资格结果
type EligibilityResponse struct {
	StudentID  string   `json:"student_id"`
	SubjectID  string   `json:"subject_id"`
	SemesterID string   `json:"semester_id"`
	Eligible   bool     `json:"eligible"`
	Reasons    []string `json:"reasons"`
}

// RoadmapEntryResponse 路线条目
type RoadmapEntryResponse struct {
	ID             string   `json:"id"`
	SubjectID      string   `json:"subject_id"`
	SubjectCode    string   `json:"subject_code"`
	SubjectName    string   `json:"subject_name"`
	Credits        float64  `json:"credits"`
	Mandatory      bool     `json:"mandatory"`
	SemesterNumber int      `json:"semester_number"`
	SemesterID     *string  `json:"semester_id,omitempty"`
	SemesterName   string   `json:"semester_name,omitempty"`
	Status         string   `json:"status"`
	FinalScore     *float64 `json:"final_score,omitempty"`
	LetterGrade    *string  `json:"letter_grade,omitempty"`
	StartedAt      string   `json:"started_at,omitempty"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Version        int      `json:"version"`
}

// RoadmapSemesterGroup 同一学期序号下的条目
type RoadmapSemesterGroup struct {
	SemesterNumber int                    `json:"semester_number"`
	Entries        []RoadmapEntryResponse `json:"entries"`
}

// RoadmapResponse 学生完整培养路线
type RoadmapResponse struct {
	StudentID        string                 `json:"student_id"`
	CurriculumID     string                 `json:"curriculum_id,omitempty"`
	CurriculumCode   string                 `json:"curriculum_code,omitempty"`
	Semesters        []RoadmapSemesterGroup `json:"semesters"`
	CompletedCredits float64                `json:"completed_credits"`
	RequiredCredits  float64                `json:"required_credits"`
}

// CurrentSemesterResponse 当前学期的路线切片
type CurrentSemesterResponse struct {
	StudentID string                 `json:"student_id"`
	Semester  *SemesterResponse      `json:"semester,omitempty"`
	Entries   []RoadmapEntryResponse `json:"entries"`
}

// OpenSubjectsResponse 当前可选课程
type OpenSubjectsResponse struct {
	StudentID  string                 `json:"student_id"`
	SemesterID string                 `json:"semester_id"`
	Subjects   []RoadmapEntryResponse `json:"subjects"`
}

// ── 事件 ──

// EnrollmentCommittedEvent 选课服务在选课生效后发送
type EnrollmentCommittedEvent struct {
	StudentID  string `json:"student_id"  binding:"required"`
	SubjectID  string `json:"subject_id"  binding:"required"`
	SemesterID string `json:"semester_id" binding:"required"`
}

// GradePostedEvent 成绩服务在总评成绩确定后发送
type GradePostedEvent struct {
	StudentID   string   `json:"student_id"   binding:"required"`
	SubjectID   string   `json:"subject_id"   binding:"required"`
	FinalScore  *float64 `json:"final_score"  binding:"required"`
	LetterGrade string   `json:"letter_grade" binding:"max=5"`
}

// AdvanceResponse 事件处理结果
type AdvanceResponse struct {
	EntryID string `json:"entry_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Changed bool   `json:"changed"`
}

// ── 毕业审核 ──

// EvaluateGraduationRequest 毕业审核
type EvaluateGraduationRequest struct {
	Persist bool `json:"persist"`
}

// GraduationVerdictResponse 毕业审核结论
type GraduationVerdictResponse struct {
	StudentID        string   `json:"student_id"`
	Eligible         bool     `json:"eligible"`
	Classification   string   `json:"classification,omitempty"`
	MissingMandatory []string `json:"missing_mandatory"` // 课程代码
	WeightedAverage  float64  `json:"weighted_average"`
	CompletedCredits float64  `json:"completed_credits"`
	RequiredCredits  float64  `json:"required_credits"`
	Graduated        bool     `json:"graduated"`
	Reason           string   `json:"reason,omitempty"`
}

// GraduationSweepRequest 批量毕业审核
type GraduationSweepRequest struct {
	CurriculumID string `json:"curriculum_id"`
	Persist      bool   `json:"persist"`
}

// GraduationSweepResponse 批量毕业审核结果
type GraduationSweepResponse struct {
	Evaluated int                         `json:"evaluated"`
	Eligible  int                         `json:"eligible"`
	Graduated int                         `json:"graduated"`
	Failed    int                         `json:"failed"`
	Verdicts  []GraduationVerdictResponse `json:"verdicts"`
}
