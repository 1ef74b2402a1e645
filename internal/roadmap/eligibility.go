package roadmap

import "fmt"

// 不可选课原因（对外契约，保持英文原文）
const (
	ReasonNoCurriculum        = "no curriculum assigned"
	ReasonGraduated           = "already graduated"
	ReasonNotInCurriculum     = "subject not in curriculum"
	ReasonAlreadyCompleted    = "already completed"
	ReasonDuplicateEnrollment = "duplicate enrollment for this subject/semester"
	reasonMissingPrerequisite = "missing prerequisite: %s"
)

// MissingPrerequisiteReason 缺少先修课的原因文本
func MissingPrerequisiteReason(code string) string {
	return fmt.Sprintf(reasonMissingPrerequisite, code)
}

// EntryState 路线条目快照
type EntryState struct {
	SubjectID  string
	SemesterID string
	Status     Status
	FinalScore *float64
}

// Hold 学生在某教学班中仍有效的选课记录（待审核或已通过）
type Hold struct {
	SubjectID      string
	SemesterID     string
	ClassSectionID string
}

// Snapshot 某学生在某一时刻的学业状态
type Snapshot struct {
	StudentID    string
	CurriculumID string // 为空表示未分配培养方案
	Graduated    bool
	Entries      map[string]EntryState // subjectID → 条目
	Holds        []Hold
}

// Request 选课资格查询
type Request struct {
	SubjectID      string
	SemesterID     string
	ClassSectionID string // 可选；同一教学班的已有记录不视为重复选课
}

// EligibilityResult 选课资格结果，Reasons 为空即可选
type EligibilityResult struct {
	Eligible bool
	Reasons  []string
}

// EligibilityEvaluator 选课资格判定
//
// 纯函数：只读快照与依赖图，不做任何修改，可并发、重复调用。
type EligibilityEvaluator struct {
	graphs GraphSource
	policy Policy
}

// NewEligibilityEvaluator 创建判定器
func NewEligibilityEvaluator(graphs GraphSource, policy Policy) *EligibilityEvaluator {
	return &EligibilityEvaluator{graphs: graphs, policy: policy}
}

// Evaluate 按固定顺序累积全部不满足的条件
func (e *EligibilityEvaluator) Evaluate(snap *Snapshot, req Request) EligibilityResult {
	reasons := make([]string, 0)

	// 1. 未分配培养方案：终态，直接返回
	if snap == nil || snap.CurriculumID == "" {
		return EligibilityResult{Eligible: false, Reasons: append(reasons, ReasonNoCurriculum)}
	}
	graph, ok := e.graphs.Graph(snap.CurriculumID)
	if !ok {
		return EligibilityResult{Eligible: false, Reasons: append(reasons, ReasonNoCurriculum)}
	}

	// 2. 已毕业
	if snap.Graduated {
		reasons = append(reasons, ReasonGraduated)
	}

	// 3. 课程不在培养方案中
	inCurriculum := graph.Contains(req.SubjectID)
	if !inCurriculum {
		reasons = append(reasons, ReasonNotInCurriculum)
	}

	// 4. 已修完
	if entry, ok := snap.Entries[req.SubjectID]; ok && entry.Status == StatusCompleted {
		reasons = append(reasons, ReasonAlreadyCompleted)
	}

	// 5. 同学期同课程在其他教学班已有有效选课
	for _, h := range snap.Holds {
		if h.SubjectID != req.SubjectID || h.SemesterID != req.SemesterID {
			continue
		}
		if req.ClassSectionID != "" && h.ClassSectionID == req.ClassSectionID {
			continue
		}
		reasons = append(reasons, ReasonDuplicateEnrollment)
		break
	}

	// 6. 直接先修课须已完成且成绩及格
	if inCurriculum {
		if pre, ok := graph.PrerequisiteOf(req.SubjectID); ok && !e.passed(snap.Entries[pre]) {
			code := pre
			if s, ok := graph.Subject(pre); ok {
				code = s.Code
			}
			reasons = append(reasons, MissingPrerequisiteReason(code))
		}
	}

	return EligibilityResult{Eligible: len(reasons) == 0, Reasons: reasons}
}

func (e *EligibilityEvaluator) passed(entry EntryState) bool {
	return entry.Status == StatusCompleted &&
		entry.FinalScore != nil &&
		e.policy.Passed(*entry.FinalScore)
}

// OpenSubjects 返回当前可选的课程：未在修、未修完且在目标学期满足全部条件
func (e *EligibilityEvaluator) OpenSubjects(snap *Snapshot, semesterID string) []string {
	if snap == nil || snap.CurriculumID == "" {
		return nil
	}
	graph, ok := e.graphs.Graph(snap.CurriculumID)
	if !ok {
		return nil
	}
	var open []string
	for _, id := range graph.SubjectIDs() {
		entry, ok := snap.Entries[id]
		if !ok {
			continue
		}
		if entry.Status == StatusInProgress || entry.Status == StatusCompleted {
			continue
		}
		if e.Evaluate(snap, Request{SubjectID: id, SemesterID: semesterID}).Eligible {
			open = append(open, id)
		}
	}
	return open
}
