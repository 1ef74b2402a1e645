package roadmap

import (
	"sort"
	"strings"
)

// Subject 课程参考数据（只读）
type Subject struct {
	ID        string
	Code      string
	Name      string
	Credits   float64
	Mandatory bool
}

// Link 培养方案中的一门课程：所在学期序号与可选的先修课程
type Link struct {
	SubjectID      string
	SemesterNumber int
	PrerequisiteID string // 为空表示无先修课
}

// GraphSpec 构建 CurriculumGraph 的输入
type GraphSpec struct {
	CurriculumID   string
	Code           string
	Version        int
	TotalSemesters int // 为 0 时不校验上限
	Subjects       []Subject
	Links          []Link
}

type graphNode struct {
	subject      Subject
	semester     int
	prerequisite string
}

// CurriculumGraph 单个培养方案版本的课程依赖图
//
// 构建后只读，可被任意数量的 goroutine 并发读取。
type CurriculumGraph struct {
	id               string
	code             string
	version          int
	totalSemesters   int
	nodes            map[string]graphNode
	bySemester       map[int][]string
	order            []string
	mandatoryCredits float64
	totalCredits     float64
}

// NewCurriculumGraph 校验并构建课程依赖图
//
// 以下情况返回 *ConfigurationError：课程重复、学期序号越界、课程缺少参考数据、
// 先修课不在本方案内、先修关系成环、先修课学期序号不严格小于本课程。
func NewCurriculumGraph(spec GraphSpec) (*CurriculumGraph, error) {
	name := spec.Code
	if name == "" {
		name = spec.CurriculumID
	}
	if spec.CurriculumID == "" {
		return nil, configErrorf(name, "培养方案 ID 不能为空")
	}

	subjects := make(map[string]Subject, len(spec.Subjects))
	for _, s := range spec.Subjects {
		subjects[s.ID] = s
	}

	g := &CurriculumGraph{
		id:             spec.CurriculumID,
		code:           spec.Code,
		version:        spec.Version,
		totalSemesters: spec.TotalSemesters,
		nodes:          make(map[string]graphNode, len(spec.Links)),
		bySemester:     make(map[int][]string),
	}

	for _, l := range spec.Links {
		if _, dup := g.nodes[l.SubjectID]; dup {
			return nil, configErrorf(name, "课程 %s 重复出现", l.SubjectID)
		}
		subject, ok := subjects[l.SubjectID]
		if !ok {
			return nil, configErrorf(name, "课程 %s 缺少参考数据", l.SubjectID)
		}
		if l.SemesterNumber < 1 {
			return nil, configErrorf(name, "课程 %s 的学期序号 %d 无效", subject.Code, l.SemesterNumber)
		}
		if spec.TotalSemesters > 0 && l.SemesterNumber > spec.TotalSemesters {
			return nil, configErrorf(name, "课程 %s 的学期序号 %d 超出总学期数 %d", subject.Code, l.SemesterNumber, spec.TotalSemesters)
		}
		g.nodes[l.SubjectID] = graphNode{subject: subject, semester: l.SemesterNumber, prerequisite: l.PrerequisiteID}
	}

	for id, n := range g.nodes {
		if n.prerequisite == "" {
			continue
		}
		if _, ok := g.nodes[n.prerequisite]; !ok {
			return nil, configErrorf(name, "课程 %s 的先修课 %s 不在本培养方案中", n.subject.Code, n.prerequisite)
		}
		if n.prerequisite == id {
			return nil, configErrorf(name, "课程 %s 不能以自身为先修课", n.subject.Code)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, configErrorf(name, "先修关系成环: %s", strings.Join(cycle, " → "))
	}

	for _, n := range g.nodes {
		if n.prerequisite == "" {
			continue
		}
		pre := g.nodes[n.prerequisite]
		if pre.semester >= n.semester {
			return nil, configErrorf(name, "先修课 %s（第%d学期）必须早于课程 %s（第%d学期）",
				pre.subject.Code, pre.semester, n.subject.Code, n.semester)
		}
	}

	for id, n := range g.nodes {
		g.order = append(g.order, id)
		g.bySemester[n.semester] = append(g.bySemester[n.semester], id)
		g.totalCredits += n.subject.Credits
		if n.subject.Mandatory {
			g.mandatoryCredits += n.subject.Credits
		}
	}
	sort.Slice(g.order, g.less(g.order))
	for sem, ids := range g.bySemester {
		sort.Slice(ids, g.less(ids))
		g.bySemester[sem] = ids
	}

	return g, nil
}

// findCycle 沿先修边检测环；每个节点至多一条出边，按链遍历即可
func (g *CurriculumGraph) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, start := range ids {
		if state[start] != unvisited {
			continue
		}
		var path []string
		cur := start
		for cur != "" && state[cur] == unvisited {
			state[cur] = visiting
			path = append(path, cur)
			cur = g.nodes[cur].prerequisite
		}
		if cur != "" && state[cur] == visiting {
			// 从 cur 首次出现处截取环
			var cycle []string
			for i, id := range path {
				if id == cur {
					for _, c := range path[i:] {
						cycle = append(cycle, g.nodes[c].subject.Code)
					}
					break
				}
			}
			return append(cycle, g.nodes[cur].subject.Code)
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return nil
}

func (g *CurriculumGraph) less(ids []string) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := g.nodes[ids[i]], g.nodes[ids[j]]
		if a.semester != b.semester {
			return a.semester < b.semester
		}
		return a.subject.Code < b.subject.Code
	}
}

// ID 培养方案 ID
func (g *CurriculumGraph) ID() string { return g.id }

// Code 培养方案代码
func (g *CurriculumGraph) Code() string { return g.code }

// Version 培养方案版本
func (g *CurriculumGraph) Version() int { return g.version }

// TotalSemesters 总学期数；未配置时取最大学期序号
func (g *CurriculumGraph) TotalSemesters() int {
	if g.totalSemesters > 0 {
		return g.totalSemesters
	}
	last := 0
	for sem := range g.bySemester {
		if sem > last {
			last = sem
		}
	}
	return last
}

// Contains 课程是否属于本培养方案
func (g *CurriculumGraph) Contains(subjectID string) bool {
	_, ok := g.nodes[subjectID]
	return ok
}

// Subject 返回课程参考数据
func (g *CurriculumGraph) Subject(subjectID string) (Subject, bool) {
	n, ok := g.nodes[subjectID]
	return n.subject, ok
}

// SemesterOf 返回课程所在学期序号
func (g *CurriculumGraph) SemesterOf(subjectID string) (int, bool) {
	n, ok := g.nodes[subjectID]
	return n.semester, ok
}

// PrerequisiteOf 返回课程的直接先修课
func (g *CurriculumGraph) PrerequisiteOf(subjectID string) (string, bool) {
	n, ok := g.nodes[subjectID]
	if !ok || n.prerequisite == "" {
		return "", false
	}
	return n.prerequisite, true
}

// SubjectsInSemester 返回某学期序号下的课程（按课程代码排序）
func (g *CurriculumGraph) SubjectsInSemester(semesterNumber int) []string {
	ids := g.bySemester[semesterNumber]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// SubjectIDs 全部课程，按学期序号、课程代码排序
func (g *CurriculumGraph) SubjectIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// MandatorySubjects 全部必修课
func (g *CurriculumGraph) MandatorySubjects() []string {
	out := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if g.nodes[id].subject.Mandatory {
			out = append(out, id)
		}
	}
	return out
}

// MandatoryCredits 必修学分合计
func (g *CurriculumGraph) MandatoryCredits() float64 { return g.mandatoryCredits }

// TotalCredits 全部学分合计
func (g *CurriculumGraph) TotalCredits() float64 { return g.totalCredits }
