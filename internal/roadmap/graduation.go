package roadmap

import "math"

// Tier 毕业等级阈值
type Tier struct {
	Name       string
	MinAverage float64
}

// Policy 及格线与毕业等级配置
type Policy struct {
	PassingThreshold float64
	Tiers            []Tier // 按 MinAverage 降序
}

// DefaultPassingThreshold 默认及格线（10 分制）
const DefaultPassingThreshold = 5.0

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		PassingThreshold: DefaultPassingThreshold,
		Tiers: []Tier{
			{Name: "Excellent", MinAverage: 8.5},
			{Name: "Good", MinAverage: 7.0},
			{Name: "Average", MinAverage: 5.5},
			{Name: "Pass", MinAverage: 0},
		},
	}
}

// Passed 成绩是否达到及格线
func (p Policy) Passed(score float64) bool {
	return score >= p.PassingThreshold
}

// Classify 按加权平均分取第一个满足的等级；低于全部阈值时取最低等级
func (p Policy) Classify(average float64) string {
	for _, t := range p.Tiers {
		if average >= t.MinAverage {
			return t.Name
		}
	}
	if len(p.Tiers) == 0 {
		return ""
	}
	return p.Tiers[len(p.Tiers)-1].Name
}

// GraduationVerdict 毕业审核结论
type GraduationVerdict struct {
	Eligible         bool
	Classification   string
	MissingMandatory []string // 未完成的必修课（课程 ID）
	WeightedAverage  float64
	CompletedCredits float64
	RequiredCredits  float64
	Reason           string // 无法审核时的说明，如未分配培养方案
}

// GraduationEvaluator 毕业资格审核（纯函数）
type GraduationEvaluator struct {
	graphs GraphSource
	policy Policy
}

// NewGraduationEvaluator 创建审核器
func NewGraduationEvaluator(graphs GraphSource, policy Policy) *GraduationEvaluator {
	return &GraduationEvaluator{graphs: graphs, policy: policy}
}

// Evaluate 全部必修课均为 Completed 即满足毕业条件；选修课只计入学分与均分
func (e *GraduationEvaluator) Evaluate(snap *Snapshot) GraduationVerdict {
	verdict := GraduationVerdict{MissingMandatory: make([]string, 0)}
	if snap == nil || snap.CurriculumID == "" {
		verdict.Reason = ReasonNoCurriculum
		return verdict
	}
	graph, ok := e.graphs.Graph(snap.CurriculumID)
	if !ok {
		verdict.Reason = ReasonNoCurriculum
		return verdict
	}
	verdict.RequiredCredits = graph.MandatoryCredits()

	var weighted, scoredCredits float64
	for _, id := range graph.SubjectIDs() {
		subject, _ := graph.Subject(id)
		entry, ok := snap.Entries[id]
		completed := ok && entry.Status == StatusCompleted

		if subject.Mandatory && !completed {
			verdict.MissingMandatory = append(verdict.MissingMandatory, id)
		}
		if !completed {
			continue
		}
		verdict.CompletedCredits += subject.Credits
		if entry.FinalScore != nil && subject.Credits > 0 {
			weighted += *entry.FinalScore * subject.Credits
			scoredCredits += subject.Credits
		}
	}

	if scoredCredits > 0 {
		verdict.WeightedAverage = math.Round(weighted/scoredCredits*100) / 100
		verdict.Classification = e.policy.Classify(verdict.WeightedAverage)
	}
	verdict.Eligible = len(verdict.MissingMandatory) == 0
	return verdict
}
