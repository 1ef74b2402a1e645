package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edu-records/internal/dto"
	"edu-records/internal/model"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
)

// ── 培养路线模块业务错误 ──

var (
	ErrStudentNotFound           = errors.New("学生不存在")
	ErrSubjectNotFound           = errors.New("课程不存在")
	ErrCurriculumNotFound        = errors.New("培养方案不存在")
	ErrCurriculumAlreadyAssigned = errors.New("学生已分配培养方案")
	ErrNoActiveSemester          = errors.New("当前没有激活的学期")
)

// RoadmapService 培养路线读接口与培养方案分配
type RoadmapService interface {
	AssignCurriculum(ctx context.Context, studentID, curriculumID, callerID string) (*dto.RoadmapResponse, error)
	CheckEligibility(ctx context.Context, studentID string, q *dto.EligibilityQuery) (*dto.EligibilityResponse, error)
	GetRoadmap(ctx context.Context, studentID string) (*dto.RoadmapResponse, error)
	GetCurrentSemester(ctx context.Context, studentID string) (*dto.CurrentSemesterResponse, error)
	GetOpenSubjects(ctx context.Context, studentID string) (*dto.OpenSubjectsResponse, error)
}

type roadmapService struct {
	repo      *repository.Repository
	catalog   *roadmap.Catalog
	evaluator *roadmap.EligibilityEvaluator
	cache     RoadmapCache
	cacheTTL  time.Duration
	locks     *studentLocks
	logger    *zap.Logger
	now       func() time.Time
}

// NewRoadmapService 创建 RoadmapService 实例
func NewRoadmapService(
	repo *repository.Repository,
	catalog *roadmap.Catalog,
	policy roadmap.Policy,
	cache RoadmapCache,
	cacheTTL time.Duration,
	locks *studentLocks,
	logger *zap.Logger,
) RoadmapService {
	if locks == nil {
		locks = newStudentLocks()
	}
	return &roadmapService{
		repo:      repo,
		catalog:   catalog,
		evaluator: roadmap.NewEligibilityEvaluator(catalog, policy),
		cache:     cache,
		cacheTTL:  cacheTTL,
		locks:     locks,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── AssignCurriculum ──────────────────────

func (s *roadmapService) AssignCurriculum(ctx context.Context, studentID, curriculumID, callerID string) (*dto.RoadmapResponse, error) {
	graph, err := graphFor(ctx, s.repo, s.catalog, curriculumID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.CurriculumID != nil {
		return nil, ErrCurriculumAlreadyAssigned
	}

	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}
	anchor := anchorSemester(semesters, s.now())

	entries := make([]model.RoadmapEntry, 0, len(graph.SubjectIDs()))
	for _, subjectID := range graph.SubjectIDs() {
		number, _ := graph.SemesterOf(subjectID)
		entry := model.RoadmapEntry{
			StudentID:  studentID,
			SubjectID:  subjectID,
			SemesterID: placeholderSemester(semesters, anchor, number),
			Status:     roadmap.StatusPlanned,
		}
		entry.CreatedBy = model.Operator(callerID)
		entry.UpdatedBy = model.Operator(callerID)
		entries = append(entries, entry)
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Roadmap.BatchCreate(ctx, entries); err != nil {
			return err
		}
		student.CurriculumID = &curriculumID
		student.UpdatedBy = model.Operator(callerID)
		return txRepo.Student.Update(ctx, student)
	})
	if err != nil {
		s.logger.Error("分配培养方案失败",
			zap.String("student_id", studentID),
			zap.String("curriculum_id", curriculumID),
			zap.Error(err),
		)
		return nil, err
	}
	s.invalidate(ctx, studentID)

	s.logger.Info("已分配培养方案",
		zap.String("student_id", studentID),
		zap.String("curriculum", graph.Code()),
		zap.Int("entries", len(entries)),
	)
	return s.GetRoadmap(ctx, studentID)
}

// anchorSemester 返回当前激活学期的下标；没有激活学期时取第一个未归档且尚未结束的学期，均无则 -1
func anchorSemester(semesters []model.Semester, now time.Time) int {
	for i := range semesters {
		if semesters[i].IsActive {
			return i
		}
	}
	for i := range semesters {
		if semesters[i].Status != model.SemesterStatusArchived && !semesters[i].Ended(now) {
			return i
		}
	}
	return -1
}

// placeholderSemester 第 n 学期的课程放到锚点之后第 n-1 个学期，超出时取最后一个
func placeholderSemester(semesters []model.Semester, anchor, number int) *string {
	if anchor < 0 || len(semesters) == 0 {
		return nil
	}
	idx := anchor + number - 1
	if idx >= len(semesters) {
		idx = len(semesters) - 1
	}
	if idx < 0 {
		idx = 0
	}
	id := semesters[idx].SemesterID
	return &id
}

// ────────────────────── CheckEligibility ──────────────────────

func (s *roadmapService) CheckEligibility(ctx context.Context, studentID string, q *dto.EligibilityQuery) (*dto.EligibilityResponse, error) {
	if _, err := s.repo.Subject.GetByID(ctx, q.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询课程失败", zap.String("subject_id", q.SubjectID), zap.Error(err))
		return nil, err
	}
	if _, err := s.repo.Semester.GetByID(ctx, q.SemesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("semester_id", q.SemesterID), zap.Error(err))
		return nil, err
	}

	_, _, snap, err := loadSnapshot(ctx, s.repo, s.catalog, studentID, s.logger)
	if err != nil {
		return nil, err
	}

	result := s.evaluator.Evaluate(snap, roadmap.Request{
		SubjectID:      q.SubjectID,
		SemesterID:     q.SemesterID,
		ClassSectionID: q.ClassSectionID,
	})
	return &dto.EligibilityResponse{
		StudentID:  studentID,
		SubjectID:  q.SubjectID,
		SemesterID: q.SemesterID,
		Eligible:   result.Eligible,
		Reasons:    result.Reasons,
	}, nil
}

// ────────────────────── GetRoadmap ──────────────────────

func (s *roadmapService) GetRoadmap(ctx context.Context, studentID string) (*dto.RoadmapResponse, error) {
	student, entries, _, err := loadSnapshot(ctx, s.repo, s.catalog, studentID, s.logger)
	if err != nil {
		return nil, err
	}

	resp := &dto.RoadmapResponse{StudentID: studentID, Semesters: []dto.RoadmapSemesterGroup{}}
	if student.CurriculumID == nil {
		return resp, nil
	}
	resp.CurriculumID = *student.CurriculumID

	graph, _ := s.catalog.Graph(*student.CurriculumID)
	if graph != nil {
		resp.CurriculumCode = graph.Code()
		resp.RequiredCredits = graph.MandatoryCredits()
	}

	groups := make(map[int][]dto.RoadmapEntryResponse)
	for i := range entries {
		item := toEntryResponse(&entries[i], graph)
		if entries[i].Status == roadmap.StatusCompleted {
			resp.CompletedCredits += item.Credits
		}
		groups[item.SemesterNumber] = append(groups[item.SemesterNumber], item)
	}

	numbers := make([]int, 0, len(groups))
	for n := range groups {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		items := groups[n]
		sortEntries(items)
		resp.Semesters = append(resp.Semesters, dto.RoadmapSemesterGroup{SemesterNumber: n, Entries: items})
	}
	return resp, nil
}

// ────────────────────── GetCurrentSemester ──────────────────────

func (s *roadmapService) GetCurrentSemester(ctx context.Context, studentID string) (*dto.CurrentSemesterResponse, error) {
	student, entries, _, err := loadSnapshot(ctx, s.repo, s.catalog, studentID, s.logger)
	if err != nil {
		return nil, err
	}
	current, err := s.currentSemester(ctx)
	if err != nil {
		return nil, err
	}

	var graph *roadmap.CurriculumGraph
	if student.CurriculumID != nil {
		graph, _ = s.catalog.Graph(*student.CurriculumID)
	}

	resp := &dto.CurrentSemesterResponse{
		StudentID: studentID,
		Semester:  toSemesterResponse(current),
		Entries:   []dto.RoadmapEntryResponse{},
	}
	for i := range entries {
		if entries[i].SemesterID == nil || *entries[i].SemesterID != current.SemesterID {
			continue
		}
		resp.Entries = append(resp.Entries, toEntryResponse(&entries[i], graph))
	}
	sortEntries(resp.Entries)
	return resp, nil
}

// ────────────────────── GetOpenSubjects ──────────────────────

// GetOpenSubjects 在学生锁内计算并回写缓存，与路线变更及其缓存失效串行
func (s *roadmapService) GetOpenSubjects(ctx context.Context, studentID string) (*dto.OpenSubjectsResponse, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	student, entries, snap, err := loadSnapshot(ctx, s.repo, s.catalog, studentID, s.logger)
	if err != nil {
		return nil, err
	}
	current, err := s.currentSemester(ctx)
	if err != nil {
		return nil, err
	}

	open, hit := s.cachedOpen(ctx, studentID, current.SemesterID)
	if !hit {
		open = s.evaluator.OpenSubjects(snap, current.SemesterID)
		if s.cache != nil {
			if err := s.cache.SetOpenSubjects(ctx, studentID, current.SemesterID, open, s.cacheTTL); err != nil {
				s.logger.Warn("写入可选课程缓存失败", zap.String("student_id", studentID), zap.Error(err))
			}
		}
	}

	var graph *roadmap.CurriculumGraph
	if student.CurriculumID != nil {
		graph, _ = s.catalog.Graph(*student.CurriculumID)
	}
	byID := make(map[string]*model.RoadmapEntry, len(entries))
	for i := range entries {
		byID[entries[i].SubjectID] = &entries[i]
	}

	resp := &dto.OpenSubjectsResponse{
		StudentID:  studentID,
		SemesterID: current.SemesterID,
		Subjects:   make([]dto.RoadmapEntryResponse, 0, len(open)),
	}
	for _, id := range open {
		entry, ok := byID[id]
		if !ok {
			continue
		}
		item := toEntryResponse(entry, graph)
		item.Status = string(roadmap.StatusOpen)
		resp.Subjects = append(resp.Subjects, item)
	}
	return resp, nil
}

func (s *roadmapService) cachedOpen(ctx context.Context, studentID, semesterID string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	ids, ok, err := s.cache.GetOpenSubjects(ctx, studentID, semesterID)
	if err != nil {
		s.logger.Warn("读取可选课程缓存失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, false
	}
	return ids, ok
}

// ── 内部辅助方法 ──

func (s *roadmapService) getStudent(ctx context.Context, studentID string) (*model.Student, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		}
		return nil, translateStudentErr(err)
	}
	return student, nil
}

func translateStudentErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStudentNotFound
	}
	return err
}

func (s *roadmapService) currentSemester(ctx context.Context) (*model.Semester, error) {
	current, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSemester
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}
	return current, nil
}

func (s *roadmapService) invalidate(ctx context.Context, studentID string) {
	invalidateOpenSubjects(ctx, s.cache, studentID, s.logger)
}

func invalidateOpenSubjects(ctx context.Context, cache RoadmapCache, studentID string, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateStudent(ctx, studentID); err != nil {
		logger.Warn("清除可选课程缓存失败", zap.String("student_id", studentID), zap.Error(err))
	}
}

// loadSnapshot 读取学生、路线条目与有效选课记录，组装判定快照
//
// 学生所属版本的依赖图不在内存中时先从数据库加载。
func loadSnapshot(ctx context.Context, repo *repository.Repository, catalog *roadmap.Catalog, studentID string, logger *zap.Logger) (*model.Student, []model.RoadmapEntry, *roadmap.Snapshot, error) {
	student, err := repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrStudentNotFound
		}
		logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, nil, nil, err
	}
	if student.CurriculumID != nil {
		if _, err := graphFor(ctx, repo, catalog, *student.CurriculumID); err != nil && !errors.Is(err, ErrCurriculumNotFound) {
			logger.Error("加载培养方案依赖图失败",
				zap.String("student_id", studentID),
				zap.String("curriculum_id", *student.CurriculumID),
				zap.Error(err),
			)
			return nil, nil, nil, err
		}
	}

	entries, err := repo.Roadmap.ListByStudent(ctx, studentID)
	if err != nil {
		logger.Error("查询培养路线失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, nil, nil, err
	}

	enrollments, err := repo.Enrollment.ListActiveByStudent(ctx, studentID)
	if err != nil {
		logger.Error("查询选课记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, nil, nil, err
	}

	snap := &roadmap.Snapshot{
		StudentID: studentID,
		Graduated: student.IsGraduated,
		Entries:   make(map[string]roadmap.EntryState, len(entries)),
		Holds:     make([]roadmap.Hold, 0, len(enrollments)),
	}
	if student.CurriculumID != nil {
		snap.CurriculumID = *student.CurriculumID
	}
	for i := range entries {
		snap.Entries[entries[i].SubjectID] = entries[i].State()
	}
	for _, e := range enrollments {
		snap.Holds = append(snap.Holds, roadmap.Hold{
			SubjectID:      e.SubjectID,
			SemesterID:     e.SemesterID,
			ClassSectionID: e.ClassSectionID,
		})
	}
	return student, entries, snap, nil
}

func toEntryResponse(entry *model.RoadmapEntry, graph *roadmap.CurriculumGraph) dto.RoadmapEntryResponse {
	item := dto.RoadmapEntryResponse{
		ID:          entry.EntryID,
		SubjectID:   entry.SubjectID,
		SemesterID:  entry.SemesterID,
		Status:      entry.Status.String(),
		FinalScore:  entry.FinalScore,
		LetterGrade: entry.LetterGrade,
		Notes:       entry.Notes,
		Version:     entry.Version,
	}
	if entry.Subject != nil {
		item.SubjectCode = entry.Subject.Code
		item.SubjectName = entry.Subject.Name
		item.Credits = entry.Subject.Credits
		item.Mandatory = entry.Subject.Mandatory
	}
	if graph != nil {
		if subject, ok := graph.Subject(entry.SubjectID); ok {
			item.SubjectCode = subject.Code
			item.Credits = subject.Credits
			item.Mandatory = subject.Mandatory
			if item.SubjectName == "" {
				item.SubjectName = subject.Name
			}
		}
		item.SemesterNumber, _ = graph.SemesterOf(entry.SubjectID)
	}
	if entry.Semester != nil {
		item.SemesterName = entry.Semester.Name
	}
	if entry.StartedAt != nil {
		item.StartedAt = entry.StartedAt.Format(time.RFC3339)
	}
	if entry.CompletedAt != nil {
		item.CompletedAt = entry.CompletedAt.Format(time.RFC3339)
	}
	return item
}

func sortEntries(items []dto.RoadmapEntryResponse) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].SemesterNumber != items[j].SemesterNumber {
			return items[i].SemesterNumber < items[j].SemesterNumber
		}
		return items[i].SubjectCode < items[j].SubjectCode
	})
}
