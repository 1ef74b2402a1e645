package dto

// ── 培养方案模块 DTO ──

// ImportCurriculumRequest 导入培养方案（JSON 形式，与 YAML 定义文件字段一致）
type ImportCurriculumRequest struct {
	Code           string                   `json:"code"            binding:"required,max=50"`
	Name           string                   `json:"name"            binding:"required,max=200"`
	TotalSemesters int                      `json:"total_semesters" binding:"required,min=1,max=20"`
	Subjects       []CurriculumSubjectInput `json:"subjects"        binding:"required,min=1,dive"`
}

// CurriculumSubjectInput 培养方案中的课程
type CurriculumSubjectInput struct {
	Code         string  `json:"code"     binding:"required,max=30"`
	Name         string  `json:"name"     binding:"required,max=200"`
	Credits      float64 `json:"credits"  binding:"min=0"`
	Mandatory    *bool   `json:"mandatory"`
	Semester     int     `json:"semester" binding:"required,min=1"`
	Prerequisite string  `json:"prerequisite"`
}

// CurriculumResponse 培养方案摘要
type CurriculumResponse struct {
	ID               string  `json:"id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Version          int     `json:"version"`
	TotalSemesters   int     `json:"total_semesters"`
	SubjectCount     int     `json:"subject_count"`
	MandatoryCredits float64 `json:"mandatory_credits"`
	TotalCredits     float64 `json:"total_credits"`
}

// CurriculumDetailResponse 培养方案详情（含课程与先修关系）
type CurriculumDetailResponse struct {
	CurriculumResponse
	Subjects []CurriculumSubjectResponse `json:"subjects"`
}

// CurriculumSubjectResponse 培养方案中的一门课程
type CurriculumSubjectResponse struct {
	SubjectID        string  `json:"subject_id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Credits          float64 `json:"credits"`
	Mandatory        bool    `json:"mandatory"`
	SemesterNumber   int     `json:"semester_number"`
	PrerequisiteID   string  `json:"prerequisite_id,omitempty"`
	PrerequisiteCode string  `json:"prerequisite_code,omitempty"`
}
