package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"edu-records/internal/model"
	pkgerrors "edu-records/pkg/errors"
)

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	mu       sync.Mutex
	subjects map[string]*model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) CreateIfAbsent(_ context.Context, subject *model.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.Code == subject.Code {
			*subject = *s
			return nil
		}
	}
	if subject.SubjectID == "" {
		subject.SubjectID = "sub-" + subject.Code
	}
	cp := *subject
	m.subjects[subject.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByCode(_ context.Context, code string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) ListByIDs(_ context.Context, ids []string) ([]model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Subject
	for _, id := range ids {
		if s, ok := m.subjects[id]; ok {
			result = append(result, *s)
		}
	}
	return result, nil
}

// ── Mock CurriculumRepository ──

type mockCurriculumRepo struct {
	curricula map[string]*model.Curriculum
	links     map[string][]model.CurriculumSubjectLink
	subjects  *mockSubjectRepo
}

func newMockCurriculumRepo(subjects *mockSubjectRepo) *mockCurriculumRepo {
	return &mockCurriculumRepo{
		curricula: make(map[string]*model.Curriculum),
		links:     make(map[string][]model.CurriculumSubjectLink),
		subjects:  subjects,
	}
}

func (m *mockCurriculumRepo) Create(_ context.Context, c *model.Curriculum) error {
	if c.Version == 0 {
		c.Version = 1
	}
	for _, stored := range m.curricula {
		if stored.Code == c.Code && stored.Version == c.Version {
			return gorm.ErrDuplicatedKey
		}
	}
	if c.CurriculumID == "" {
		c.CurriculumID = "cur-" + c.Code
		if c.Version > 1 {
			c.CurriculumID += fmt.Sprintf("-v%d", c.Version)
		}
	}
	cp := *c
	m.curricula[c.CurriculumID] = &cp
	return nil
}

func (m *mockCurriculumRepo) GetByID(_ context.Context, id string) (*model.Curriculum, error) {
	if c, ok := m.curricula[id]; ok {
		cp := *c
		cp.Links = m.withSubjects(id)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCurriculumRepo) GetLatestByCode(ctx context.Context, code string) (*model.Curriculum, error) {
	var latest *model.Curriculum
	for _, c := range m.curricula {
		if c.Code == code && (latest == nil || c.Version > latest.Version) {
			latest = c
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.GetByID(ctx, latest.CurriculumID)
}

func (m *mockCurriculumRepo) List(_ context.Context) ([]model.Curriculum, error) {
	var result []model.Curriculum
	for _, c := range m.curricula {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Code != result[j].Code {
			return result[i].Code < result[j].Code
		}
		return result[i].Version > result[j].Version
	})
	return result, nil
}

func (m *mockCurriculumRepo) CreateLinks(_ context.Context, links []model.CurriculumSubjectLink) error {
	for _, l := range links {
		m.links[l.CurriculumID] = append(m.links[l.CurriculumID], l)
	}
	return nil
}

func (m *mockCurriculumRepo) ListLinks(_ context.Context, curriculumID string) ([]model.CurriculumSubjectLink, error) {
	return m.withSubjects(curriculumID), nil
}

func (m *mockCurriculumRepo) ListWithLinks(ctx context.Context) ([]model.Curriculum, error) {
	list, _ := m.List(ctx)
	for i := range list {
		list[i].Links = m.withSubjects(list[i].CurriculumID)
	}
	return list, nil
}

func (m *mockCurriculumRepo) withSubjects(curriculumID string) []model.CurriculumSubjectLink {
	links := append([]model.CurriculumSubjectLink(nil), m.links[curriculumID]...)
	for i := range links {
		if s, err := m.subjects.GetByID(context.Background(), links[i].SubjectID); err == nil {
			links[i].Subject = s
		}
	}
	return links
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	mu       sync.Mutex
	students map[string]*model.Student
	updates  int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if student.StudentID == "" {
		student.StudentID = "stu-" + student.StudentNo
	}
	if student.Version == 0 {
		student.Version = 1
	}
	cp := *student
	m.students[student.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.students[student.StudentID]
	if !ok || stored.Version != student.Version {
		return pkgerrors.ErrOptimisticLock
	}
	student.Version++
	cp := *student
	m.students[student.StudentID] = &cp
	m.updates++
	return nil
}

func (m *mockStudentRepo) ListGraduationCandidates(_ context.Context, curriculumID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.students {
		if s.CurriculumID == nil || s.IsGraduated {
			continue
		}
		if curriculumID != "" && *s.CurriculumID != curriculumID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if semester.SemesterID == "" {
		semester.SemesterID = "sem-" + semester.Name
	}
	if semester.Version == 0 {
		semester.Version = 1
	}
	cp := *semester
	m.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetCurrent(_ context.Context) (*model.Semester, error) {
	for _, s := range m.semesters {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

func (m *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	stored, ok := m.semesters[semester.SemesterID]
	if !ok || stored.Version != semester.Version {
		return pkgerrors.ErrOptimisticLock
	}
	semester.Version++
	cp := *semester
	m.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) ClearActive(_ context.Context) error {
	for _, s := range m.semesters {
		s.IsActive = false
	}
	return nil
}

func (m *mockSemesterRepo) HasOverlap(_ context.Context, excludeID string, start, end time.Time) (bool, error) {
	for id, s := range m.semesters {
		if id != excludeID && !s.StartDate.After(end) && !s.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock RoadmapRepository ──

type mockRoadmapRepo struct {
	mu        sync.Mutex
	entries   map[string]*model.RoadmapEntry // studentID|subjectID → entry
	subjects  *mockSubjectRepo
	semesters *mockSemesterRepo
	seq       int
	updates   int
}

func newMockRoadmapRepo(subjects *mockSubjectRepo, semesters *mockSemesterRepo) *mockRoadmapRepo {
	return &mockRoadmapRepo{
		entries:   make(map[string]*model.RoadmapEntry),
		subjects:  subjects,
		semesters: semesters,
	}
}

func entryKey(studentID, subjectID string) string { return studentID + "|" + subjectID }

func (m *mockRoadmapRepo) BatchCreate(_ context.Context, entries []model.RoadmapEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range entries {
		m.seq++
		e := entries[i]
		if e.EntryID == "" {
			e.EntryID = "entry-" + e.SubjectID
		}
		if e.Version == 0 {
			e.Version = 1
		}
		entries[i] = e
		m.entries[entryKey(e.StudentID, e.SubjectID)] = &e
	}
	return nil
}

func (m *mockRoadmapRepo) GetByStudentAndSubject(_ context.Context, studentID, subjectID string) (*model.RoadmapEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entryKey(studentID, subjectID)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoadmapRepo) ListByStudent(_ context.Context, studentID string) ([]model.RoadmapEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RoadmapEntry
	for _, e := range m.entries {
		if e.StudentID != studentID {
			continue
		}
		cp := *e
		if s, err := m.subjects.GetByID(context.Background(), e.SubjectID); err == nil {
			cp.Subject = s
		}
		if e.SemesterID != nil {
			if sem, ok := m.semesters.semesters[*e.SemesterID]; ok {
				cp.Semester = sem
			}
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubjectID < result[j].SubjectID })
	return result, nil
}

func (m *mockRoadmapRepo) Update(_ context.Context, entry *model.RoadmapEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entryKey(entry.StudentID, entry.SubjectID)
	stored, ok := m.entries[key]
	if !ok || stored.Version != entry.Version {
		return pkgerrors.ErrOptimisticLock
	}
	entry.Version++
	cp := *entry
	cp.Subject, cp.Semester = nil, nil
	m.entries[key] = &cp
	m.updates++
	return nil
}

func (m *mockRoadmapRepo) get(studentID, subjectID string) model.RoadmapEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.entries[entryKey(studentID, subjectID)]
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments []model.ClassEnrollment
}

func (m *mockEnrollmentRepo) ListActiveByStudent(_ context.Context, studentID string) ([]model.ClassEnrollment, error) {
	var result []model.ClassEnrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID && slices.Contains(model.ActiveEnrollmentStatuses, e.Status) {
			result = append(result, e)
		}
	}
	return result, nil
}

// ── Mock GraduationAuditRepository ──

type mockAuditRepo struct {
	mu     sync.Mutex
	audits []model.GraduationAudit
}

func (m *mockAuditRepo) Create(_ context.Context, audit *model.GraduationAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if audit.EvaluatedAt.IsZero() {
		audit.EvaluatedAt = time.Now()
	}
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *mockAuditRepo) ListByStudent(_ context.Context, studentID string, limit int) ([]model.GraduationAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.GraduationAudit
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].StudentID == studentID {
			result = append(result, m.audits[i])
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// ── Mock RoadmapCache ──

type mockCache struct {
	mu          sync.Mutex
	open        map[string][]string // studentID|semesterID → ids
	gets        int
	hits        int
	invalidated []string
	failGet     error
}

func newMockCache() *mockCache {
	return &mockCache{open: make(map[string][]string)}
}

func (c *mockCache) GetOpenSubjects(_ context.Context, studentID, semesterID string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return nil, false, c.failGet
	}
	ids, ok := c.open[studentID+"|"+semesterID]
	if ok {
		c.hits++
	}
	return ids, ok, nil
}

func (c *mockCache) SetOpenSubjects(_ context.Context, studentID, semesterID string, ids []string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[studentID+"|"+semesterID] = ids
	return nil
}

func (c *mockCache) InvalidateStudent(_ context.Context, studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.open {
		if len(k) > len(studentID) && k[:len(studentID)+1] == studentID+"|" {
			delete(c.open, k)
		}
	}
	c.invalidated = append(c.invalidated, studentID)
	return nil
}
