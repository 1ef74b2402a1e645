package roadmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 { return &v }

func newEvaluator(t *testing.T) *EligibilityEvaluator {
	t.Helper()
	return NewEligibilityEvaluator(NewCatalog(seGraph(t)), DefaultPolicy())
}

func baseSnapshot() *Snapshot {
	return &Snapshot{
		StudentID:    "stu-1",
		CurriculumID: "cur-se",
		Entries: map[string]EntryState{
			"id-CS101": {SubjectID: "id-CS101", Status: StatusPlanned},
			"id-SE101": {SubjectID: "id-SE101", Status: StatusPlanned},
			"id-SE201": {SubjectID: "id-SE201", Status: StatusPlanned},
			"id-ELE1":  {SubjectID: "id-ELE1", Status: StatusPlanned},
		},
	}
}

func TestEvaluate_PrerequisiteCompleted(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.Entries["id-CS101"] = EntryState{SubjectID: "id-CS101", Status: StatusCompleted, FinalScore: score(8.0)}

	res := ev.Evaluate(snap, Request{SubjectID: "id-SE101", SemesterID: "sem-next"})
	assert.True(t, res.Eligible)
	assert.Empty(t, res.Reasons)
	assert.NotNil(t, res.Reasons)
}

func TestEvaluate_PrerequisiteMissing(t *testing.T) {
	ev := newEvaluator(t)

	res := ev.Evaluate(baseSnapshot(), Request{SubjectID: "id-SE101", SemesterID: "sem-next"})
	assert.False(t, res.Eligible)
	assert.Equal(t, []string{"missing prerequisite: CS101"}, res.Reasons)
}

func TestEvaluate_PrerequisiteFailedScore(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	// 已标记完成但成绩低于当前及格线（例如及格线被上调）
	snap.Entries["id-CS101"] = EntryState{SubjectID: "id-CS101", Status: StatusCompleted, FinalScore: score(4.5)}

	res := ev.Evaluate(snap, Request{SubjectID: "id-SE101", SemesterID: "sem-next"})
	assert.False(t, res.Eligible)
	assert.Equal(t, []string{"missing prerequisite: CS101"}, res.Reasons)

	snap.Entries["id-CS101"] = EntryState{SubjectID: "id-CS101", Status: StatusCompleted}
	res = ev.Evaluate(snap, Request{SubjectID: "id-SE101", SemesterID: "sem-next"})
	assert.False(t, res.Eligible, "没有成绩的完成记录不满足先修要求")
}

func TestEvaluate_PrerequisiteNotTransitive(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.Entries["id-CS101"] = EntryState{SubjectID: "id-CS101", Status: StatusCompleted, FinalScore: score(9)}
	snap.Entries["id-SE101"] = EntryState{SubjectID: "id-SE101", Status: StatusInProgress}

	res := ev.Evaluate(snap, Request{SubjectID: "id-SE201", SemesterID: "sem-next"})
	assert.False(t, res.Eligible)
	assert.Equal(t, []string{"missing prerequisite: SE101"}, res.Reasons)
}

func TestEvaluate_NoCurriculumStops(t *testing.T) {
	ev := newEvaluator(t)
	snap := &Snapshot{StudentID: "stu-1", Graduated: true}

	res := ev.Evaluate(snap, Request{SubjectID: "id-SE101", SemesterID: "sem-next"})
	assert.False(t, res.Eligible)
	assert.Equal(t, []string{ReasonNoCurriculum}, res.Reasons)

	res = ev.Evaluate(nil, Request{SubjectID: "id-SE101"})
	assert.Equal(t, []string{ReasonNoCurriculum}, res.Reasons)
}

func TestEvaluate_UnknownCurriculumTreatedAsUnassigned(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.CurriculumID = "cur-gone"

	res := ev.Evaluate(snap, Request{SubjectID: "id-CS101"})
	assert.Equal(t, []string{ReasonNoCurriculum}, res.Reasons)
}

func TestEvaluate_AccumulatesReasonsInOrder(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.Graduated = true
	snap.Entries["id-SE101"] = EntryState{SubjectID: "id-SE101", Status: StatusCompleted, FinalScore: score(7)}
	snap.Holds = []Hold{{SubjectID: "id-SE101", SemesterID: "sem-next", ClassSectionID: "sec-A"}}

	res := ev.Evaluate(snap, Request{SubjectID: "id-SE101", SemesterID: "sem-next", ClassSectionID: "sec-B"})
	assert.False(t, res.Eligible)
	assert.Equal(t, []string{
		ReasonGraduated,
		ReasonAlreadyCompleted,
		ReasonDuplicateEnrollment,
		"missing prerequisite: CS101",
	}, res.Reasons)
}

func TestEvaluate_SubjectNotInCurriculum(t *testing.T) {
	ev := newEvaluator(t)

	res := ev.Evaluate(baseSnapshot(), Request{SubjectID: "id-MATH", SemesterID: "sem-next"})
	assert.False(t, res.Eligible)
	assert.Equal(t, []string{ReasonNotInCurriculum}, res.Reasons)
}

func TestEvaluate_DuplicateEnrollment(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.Holds = []Hold{{SubjectID: "id-CS101", SemesterID: "sem-1", ClassSectionID: "sec-A"}}

	// 其他教学班
	res := ev.Evaluate(snap, Request{SubjectID: "id-CS101", SemesterID: "sem-1", ClassSectionID: "sec-B"})
	assert.Equal(t, []string{ReasonDuplicateEnrollment}, res.Reasons)

	// 未指定教学班：任何有效记录都算重复
	res = ev.Evaluate(snap, Request{SubjectID: "id-CS101", SemesterID: "sem-1"})
	assert.Equal(t, []string{ReasonDuplicateEnrollment}, res.Reasons)

	// 同一教学班的复核不算重复
	res = ev.Evaluate(snap, Request{SubjectID: "id-CS101", SemesterID: "sem-1", ClassSectionID: "sec-A"})
	assert.True(t, res.Eligible)

	// 不同学期不冲突
	res = ev.Evaluate(snap, Request{SubjectID: "id-CS101", SemesterID: "sem-2", ClassSectionID: "sec-B"})
	assert.True(t, res.Eligible)
}

func TestEvaluate_PureAndConcurrent(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.Entries["id-CS101"] = EntryState{SubjectID: "id-CS101", Status: StatusCompleted, FinalScore: score(6)}

	var wg sync.WaitGroup
	results := make([]EligibilityResult, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := "id-SE101"
			if i%2 == 1 {
				subject = "id-SE201"
			}
			results[i] = ev.Evaluate(snap, Request{SubjectID: subject, SemesterID: "sem-next"})
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if i%2 == 0 {
			assert.True(t, res.Eligible)
		} else {
			assert.Equal(t, []string{"missing prerequisite: SE101"}, res.Reasons)
		}
	}
	assert.Equal(t, StatusCompleted, snap.Entries["id-CS101"].Status)
	assert.Equal(t, StatusPlanned, snap.Entries["id-SE101"].Status)
}

func TestOpenSubjects(t *testing.T) {
	ev := newEvaluator(t)
	snap := baseSnapshot()
	snap.Entries["id-CS101"] = EntryState{SubjectID: "id-CS101", Status: StatusCompleted, FinalScore: score(8)}
	snap.Entries["id-ELE1"] = EntryState{SubjectID: "id-ELE1", Status: StatusInProgress}

	open := ev.OpenSubjects(snap, "sem-2")
	require.Equal(t, []string{"id-SE101"}, open)

	assert.Nil(t, ev.OpenSubjects(&Snapshot{}, "sem-2"))
}
