package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"edu-records/internal/dto"
	"edu-records/internal/model"
	"edu-records/internal/roadmap"
)

// ── 测试辅助 ──

// completeAllMandatory 加权均分 (9×4 + 8.5×4 + 8.5×3 + 8.5×3) / 14 ≈ 8.64
func (f *roadmapFixture) completeAllMandatory(t *testing.T) {
	t.Helper()
	f.complete(t, "CS101", "sem-1", 9)
	f.complete(t, "MA101", "sem-1", 8.5)
	f.complete(t, "SE101", "sem-2", 8.5)
	f.complete(t, "SE201", "sem-3", 8.5)
}

// ── EvaluateGraduation 测试 ──

func TestGraduationService_Evaluate_DryRun(t *testing.T) {
	f := newAssignedFixture(t)
	f.completeAllMandatory(t)
	updates := f.students.updates

	resp, err := f.graduation.EvaluateGraduation(context.Background(), testStudentID, false, testCaller)
	if err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if !resp.Eligible {
		t.Errorf("必修课全部完成应满足毕业条件，缺少: %v", resp.MissingMandatory)
	}
	if resp.Classification != "Excellent" {
		t.Errorf("期望 Excellent，实际=%s", resp.Classification)
	}
	if resp.WeightedAverage != 8.64 {
		t.Errorf("期望加权均分 8.64，实际=%v", resp.WeightedAverage)
	}
	if resp.Graduated {
		t.Error("仅审核不应标记毕业")
	}
	if f.students.updates != updates || len(f.audits.audits) != 0 {
		t.Error("仅审核不应写库")
	}
}

func TestGraduationService_Evaluate_Persist(t *testing.T) {
	f := newAssignedFixture(t)
	f.completeAllMandatory(t)
	ctx := context.Background()

	resp, err := f.graduation.EvaluateGraduation(ctx, testStudentID, true, testCaller)
	if err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if !resp.Graduated {
		t.Error("应标记毕业")
	}

	student, _ := f.students.GetByID(ctx, testStudentID)
	if !student.IsGraduated || student.GraduatedAt == nil {
		t.Error("学生记录应写入毕业标记")
	}
	if student.Classification == nil || *student.Classification != "Excellent" {
		t.Errorf("期望毕业等级 Excellent，实际=%v", student.Classification)
	}
	if len(f.audits.audits) != 1 {
		t.Fatalf("期望 1 条审核记录，实际=%d", len(f.audits.audits))
	}
	if got := string(f.audits.audits[0].MissingMandatory); got != "[]" {
		t.Errorf("期望缺少必修课为空数组，实际=%s", got)
	}

	// 再次审核不重复写毕业标记
	updates := f.students.updates
	if _, err := f.graduation.EvaluateGraduation(ctx, testStudentID, true, testCaller); err != nil {
		t.Fatalf("再次审核应成功: %v", err)
	}
	if f.students.updates != updates {
		t.Error("已毕业学生不应重复写入")
	}
	if len(f.audits.audits) != 2 {
		t.Errorf("每次持久化审核都应留痕，实际=%d", len(f.audits.audits))
	}

	// 毕业后不能再选课
	q, _ := f.roadmap.CheckEligibility(ctx, testStudentID, eligibility("sub-ART1", "sem-3"))
	if q.Eligible {
		t.Error("已毕业学生不应可选课")
	}
}

func TestGraduationService_Evaluate_MissingMandatory(t *testing.T) {
	f := newAssignedFixture(t)
	f.complete(t, "CS101", "sem-1", 7)
	f.complete(t, "ART1", "sem-1", 10)

	resp, err := f.graduation.EvaluateGraduation(context.Background(), testStudentID, true, testCaller)
	if err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if resp.Eligible || resp.Graduated {
		t.Error("缺少必修课不应毕业")
	}
	want := []string{"MA101", "SE101", "SE201"}
	if len(resp.MissingMandatory) != len(want) {
		t.Fatalf("期望缺少 %v，实际=%v", want, resp.MissingMandatory)
	}
	for i, code := range want {
		if resp.MissingMandatory[i] != code {
			t.Errorf("期望缺少 %v，实际=%v", want, resp.MissingMandatory)
			break
		}
	}
	// 选修课计入均分：(7×4 + 10×2) / 6 = 8
	if resp.WeightedAverage != 8 {
		t.Errorf("期望加权均分 8，实际=%v", resp.WeightedAverage)
	}
	if resp.CompletedCredits != 6 || resp.RequiredCredits != 14 {
		t.Errorf("学分不符: completed=%v required=%v", resp.CompletedCredits, resp.RequiredCredits)
	}
	if len(f.audits.audits) != 1 || f.audits.audits[0].Eligible {
		t.Error("不满足条件的持久化审核也应留痕")
	}
}

func TestGraduationService_Evaluate_NoCurriculum(t *testing.T) {
	f := newRoadmapFixture(t)

	resp, err := f.graduation.EvaluateGraduation(context.Background(), testStudentID, true, testCaller)
	if err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if resp.Eligible || resp.Reason == "" {
		t.Errorf("未分配培养方案应给出原因: %+v", resp)
	}
	if len(f.audits.audits) != 0 {
		t.Error("未分配培养方案不应记录审核")
	}
}

func TestGraduationService_Evaluate_StudentNotFound(t *testing.T) {
	f := newAssignedFixture(t)

	_, err := f.graduation.EvaluateGraduation(context.Background(), "stu-unknown", false, testCaller)
	if !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
}

// ── Sweep 测试 ──

func TestGraduationService_Sweep(t *testing.T) {
	f := newAssignedFixture(t)
	f.completeAllMandatory(t)
	ctx := context.Background()

	// 第二名学生刚入学，第三名未分配培养方案
	_ = f.students.Create(ctx, &model.Student{StudentNo: "2025002", Name: "李四"})
	_ = f.students.Create(ctx, &model.Student{StudentNo: "2025003", Name: "王五"})
	if _, err := f.roadmap.AssignCurriculum(ctx, "stu-2025002", testCurriculumID, testCaller); err != nil {
		t.Fatalf("AssignCurriculum 应成功: %v", err)
	}

	resp, err := f.graduation.Sweep(ctx, &dto.GraduationSweepRequest{Persist: true}, testCaller)
	if err != nil {
		t.Fatalf("Sweep 应成功: %v", err)
	}
	if resp.Evaluated != 2 || resp.Eligible != 1 || resp.Graduated != 1 || resp.Failed != 0 {
		t.Errorf("汇总不符: %+v", resp)
	}

	// 已毕业学生不再进入下一轮
	resp, err = f.graduation.Sweep(ctx, &dto.GraduationSweepRequest{CurriculumID: testCurriculumID}, testCaller)
	if err != nil {
		t.Fatalf("Sweep 应成功: %v", err)
	}
	if resp.Evaluated != 1 || resp.Verdicts[0].StudentID != "stu-2025002" {
		t.Errorf("第二轮应只审核未毕业学生: %+v", resp)
	}
}

func TestGraduationService_Sweep_UnknownCurriculum(t *testing.T) {
	f := newAssignedFixture(t)

	_, err := f.graduation.Sweep(context.Background(), &dto.GraduationSweepRequest{CurriculumID: "cur-unknown"}, testCaller)
	if !errors.Is(err, ErrCurriculumNotFound) {
		t.Errorf("期望 ErrCurriculumNotFound，实际: %v", err)
	}
}

// ── ListAudits 测试 ──

func TestGraduationService_ListAudits(t *testing.T) {
	f := newAssignedFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = f.graduation.EvaluateGraduation(ctx, testStudentID, true, testCaller)
	}

	audits, err := f.graduation.ListAudits(ctx, testStudentID, 2)
	if err != nil {
		t.Fatalf("ListAudits 应成功: %v", err)
	}
	if len(audits) != 2 {
		t.Errorf("期望 2 条，实际=%d", len(audits))
	}
	if _, err := f.graduation.ListAudits(ctx, "stu-unknown", 10); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
}

// ── 培养方案版本 ──

// se2024WithSE301 SE-2024 新增必修课 SE301
func se2024WithSE301() roadmap.Definition {
	def := se2024()
	def.Subjects = append(def.Subjects, roadmap.DefinitionSubject{
		Code: "SE301", Name: "软件项目管理", Credits: 3, Semester: 4, Prerequisite: "SE201",
	})
	return def
}

func TestGraduationService_ReimportKeepsAssignedVersion(t *testing.T) {
	f := newAssignedFixture(t)
	f.completeAllMandatory(t)
	ctx := context.Background()

	v2, err := f.curriculum.Import(ctx, se2024WithSE301(), testCaller)
	if err != nil {
		t.Fatalf("重新导入应成功: %v", err)
	}
	if v2.ID == testCurriculumID || v2.Version != 2 || v2.MandatoryCredits != 17 {
		t.Fatalf("期望新版本，实际=%+v", v2)
	}

	// 已分配的学生仍按 v1 判定
	verdict, err := f.graduation.EvaluateGraduation(ctx, testStudentID, false, testCaller)
	if err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if !verdict.Eligible || len(verdict.MissingMandatory) != 0 || verdict.RequiredCredits != 14 {
		t.Errorf("应按原版本判定毕业，实际=%+v", verdict)
	}

	q, err := f.roadmap.CheckEligibility(ctx, testStudentID, eligibility("sub-SE301", "sem-3"))
	if err != nil {
		t.Fatalf("CheckEligibility 应成功: %v", err)
	}
	if q.Eligible || len(q.Reasons) == 0 || q.Reasons[0] != roadmap.ReasonNotInCurriculum {
		t.Errorf("SE301 不在学生所属版本中，实际: %+v", q)
	}

	// 新学生分配到 v2 时包含 SE301
	_ = f.students.Create(ctx, &model.Student{StudentNo: "2025002", Name: "李四"})
	resp, err := f.roadmap.AssignCurriculum(ctx, "stu-2025002", v2.ID, testCaller)
	if err != nil {
		t.Fatalf("分配新版本应成功: %v", err)
	}
	count := 0
	for _, g := range resp.Semesters {
		count += len(g.Entries)
	}
	if count != 6 || resp.RequiredCredits != 17 {
		t.Errorf("新版本路线不符: entries=%d required=%v", count, resp.RequiredCredits)
	}
}

func TestGraduationService_LoadsMissingGraph(t *testing.T) {
	f := newAssignedFixture(t)
	f.completeAllMandatory(t)

	// 依赖图不在本进程内存中（如重启前由命令行导入）
	fresh := roadmap.NewCatalog()
	svc := NewGraduationService(f.repo, fresh, f.policy, f.cache, 1, f.locks, zap.NewNop())

	verdict, err := svc.EvaluateGraduation(context.Background(), testStudentID, false, testCaller)
	if err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if !verdict.Eligible || verdict.RequiredCredits != 14 {
		t.Errorf("应从数据库加载依赖图后判定，实际=%+v", verdict)
	}
	if _, ok := fresh.Graph(testCurriculumID); !ok {
		t.Error("加载后应注册到内存")
	}
}

func TestGraduationService_Persist_InvalidatesOpenSubjects(t *testing.T) {
	f := newAssignedFixture(t)
	f.completeAllMandatory(t)
	ctx := context.Background()

	if _, err := f.roadmap.GetOpenSubjects(ctx, testStudentID); err != nil {
		t.Fatalf("GetOpenSubjects 应成功: %v", err)
	}
	if _, ok := f.cache.open[testStudentID+"|sem-1"]; !ok {
		t.Fatal("可选课程应已写入缓存")
	}

	if _, err := f.graduation.EvaluateGraduation(ctx, testStudentID, true, testCaller); err != nil {
		t.Fatalf("EvaluateGraduation 应成功: %v", err)
	}
	if _, ok := f.cache.open[testStudentID+"|sem-1"]; ok {
		t.Error("写入毕业标记后应清除可选课程缓存")
	}

	resp, err := f.roadmap.GetOpenSubjects(ctx, testStudentID)
	if err != nil {
		t.Fatalf("GetOpenSubjects 应成功: %v", err)
	}
	if len(resp.Subjects) != 0 {
		t.Errorf("已毕业学生不应有可选课程，实际=%d", len(resp.Subjects))
	}
}
