package roadmap

import (
	"fmt"
	"sync"
)

// GraphSource 按培养方案 ID 查找依赖图
type GraphSource interface {
	Graph(curriculumID string) (*CurriculumGraph, bool)
}

// SubjectSet 培养方案全部课程及学分汇总
type SubjectSet struct {
	SubjectIDs       []string
	MandatoryCredits float64
	TotalCredits     float64
}

// Catalog 全部培养方案依赖图的注册表
//
// 每个图构建后不可变；重新导入培养方案时整体替换指针，读者只持有读锁。
type Catalog struct {
	mu     sync.RWMutex
	graphs map[string]*CurriculumGraph
}

// NewCatalog 创建注册表
func NewCatalog(graphs ...*CurriculumGraph) *Catalog {
	c := &Catalog{graphs: make(map[string]*CurriculumGraph, len(graphs))}
	for _, g := range graphs {
		c.graphs[g.ID()] = g
	}
	return c
}

// Replace 注册或替换某培养方案的依赖图
func (c *Catalog) Replace(g *CurriculumGraph) {
	c.mu.Lock()
	c.graphs[g.ID()] = g
	c.mu.Unlock()
}

// Graph 实现 GraphSource
func (c *Catalog) Graph(curriculumID string) (*CurriculumGraph, bool) {
	c.mu.RLock()
	g, ok := c.graphs[curriculumID]
	c.mu.RUnlock()
	return g, ok
}

// Len 已注册的培养方案数量
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.graphs)
}

func (c *Catalog) mustGraph(curriculumID string) (*CurriculumGraph, error) {
	g, ok := c.Graph(curriculumID)
	if !ok {
		return nil, fmt.Errorf("培养方案 %s: %w", curriculumID, ErrNotFound)
	}
	return g, nil
}

// SubjectsInSemester 某培养方案某学期序号下的课程
func (c *Catalog) SubjectsInSemester(curriculumID string, semesterNumber int) ([]string, error) {
	g, err := c.mustGraph(curriculumID)
	if err != nil {
		return nil, err
	}
	return g.SubjectsInSemester(semesterNumber), nil
}

// PrerequisiteOf 某培养方案中课程的直接先修课
func (c *Catalog) PrerequisiteOf(curriculumID, subjectID string) (string, bool, error) {
	g, err := c.mustGraph(curriculumID)
	if err != nil {
		return "", false, err
	}
	pre, ok := g.PrerequisiteOf(subjectID)
	return pre, ok, nil
}

// AllSubjects 某培养方案的全部课程及必修学分合计
func (c *Catalog) AllSubjects(curriculumID string) (SubjectSet, error) {
	g, err := c.mustGraph(curriculumID)
	if err != nil {
		return SubjectSet{}, err
	}
	return SubjectSet{
		SubjectIDs:       g.SubjectIDs(),
		MandatoryCredits: g.MandatoryCredits(),
		TotalCredits:     g.TotalCredits(),
	}, nil
}
