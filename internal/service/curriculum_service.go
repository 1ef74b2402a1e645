package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edu-records/internal/dto"
	"edu-records/internal/model"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
)

// CurriculumService 培养方案导入与查询
//
// 依赖图在写库前完成校验；不合法的定义不会留下任何记录。
// 内容有变化的重新导入生成新版本，已分配的学生仍按原版本判定。
type CurriculumService interface {
	Import(ctx context.Context, def roadmap.Definition, callerID string) (*dto.CurriculumResponse, error)
	ImportFile(ctx context.Context, path string, callerID string) ([]dto.CurriculumResponse, error)
	// LoadCatalog 启动时从数据库构建全部依赖图；任一方案不合法即返回 ConfigurationError
	LoadCatalog(ctx context.Context) error
	List(ctx context.Context) ([]dto.CurriculumResponse, error)
	Get(ctx context.Context, id string) (*dto.CurriculumDetailResponse, error)
}

type curriculumService struct {
	repo    *repository.Repository
	catalog *roadmap.Catalog
	logger  *zap.Logger
}

// NewCurriculumService 创建 CurriculumService 实例
func NewCurriculumService(repo *repository.Repository, catalog *roadmap.Catalog, logger *zap.Logger) CurriculumService {
	return &curriculumService{repo: repo, catalog: catalog, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Import — 校验 → 写库（单事务）→ 注册内存依赖图
// ═══════════════════════════════════════════════════════════

func (s *curriculumService) Import(ctx context.Context, def roadmap.Definition, callerID string) (*dto.CurriculumResponse, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	var (
		graph     *roadmap.CurriculumGraph
		name      string
		unchanged bool
	)
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		subjects, err := resolveSubjects(ctx, txRepo, def, callerID)
		if err != nil {
			return err
		}
		idOf := func(code string) string {
			if subject, ok := subjects[code]; ok {
				return subject.SubjectID
			}
			return code
		}

		version := 1
		latest, err := txRepo.Curriculum.GetLatestByCode(ctx, def.Code)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		case sameContent(latest, def, idOf):
			graph, err = roadmap.NewCurriculumGraph(graphSpecFromModel(latest))
			name, unchanged = latest.Name, true
			return err
		default:
			version = latest.Version + 1
		}

		curriculum := &model.Curriculum{Code: def.Code, Name: def.Name, TotalSemesters: def.TotalSemesters}
		curriculum.Version = version
		curriculum.CreatedBy = model.Operator(callerID)
		curriculum.UpdatedBy = model.Operator(callerID)
		if err := txRepo.Curriculum.Create(ctx, curriculum); err != nil {
			return err
		}

		spec := def.GraphSpec(curriculum.CurriculumID, curriculum.Version, idOf)
		for i := range spec.Subjects {
			spec.Subjects[i].Name = subjects[spec.Subjects[i].Code].Name
		}
		graph, err = roadmap.NewCurriculumGraph(spec)
		if err != nil {
			return err
		}
		name = def.Name

		links := make([]model.CurriculumSubjectLink, 0, len(spec.Links))
		for _, l := range spec.Links {
			link := model.CurriculumSubjectLink{
				CurriculumID:   curriculum.CurriculumID,
				SubjectID:      l.SubjectID,
				SemesterNumber: l.SemesterNumber,
			}
			if l.PrerequisiteID != "" {
				pre := l.PrerequisiteID
				link.PrerequisiteID = &pre
			}
			links = append(links, link)
		}
		return txRepo.Curriculum.CreateLinks(ctx, links)
	})
	if err != nil {
		s.logger.Error("导入培养方案失败", zap.String("code", def.Code), zap.Error(err))
		return nil, err
	}

	s.catalog.Replace(graph)
	if unchanged {
		s.logger.Info("培养方案内容未变化，沿用现有版本",
			zap.String("code", def.Code),
			zap.Int("version", graph.Version()),
		)
	} else {
		s.logger.Info("培养方案已导入",
			zap.String("code", def.Code),
			zap.Int("version", graph.Version()),
			zap.Int("subjects", len(def.Subjects)),
		)
	}
	return toCurriculumResponse(name, graph), nil
}

// resolveSubjects 按课程代码取得或创建课程
//
// 课程在各培养方案间共享且不可变：已存在的课程学分或必修属性与定义不一致时
// 返回 ConfigurationError，此时尚未写入任何记录。名称以库中记录为准。
func resolveSubjects(ctx context.Context, repo *repository.Repository, def roadmap.Definition, callerID string) (map[string]*model.Subject, error) {
	subjects := make(map[string]*model.Subject, len(def.Subjects))
	var missing []roadmap.DefinitionSubject
	for _, ds := range def.Subjects {
		existing, err := repo.Subject.GetByCode(ctx, ds.Code)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			missing = append(missing, ds)
		case err != nil:
			return nil, fmt.Errorf("查询课程 %s 失败: %w", ds.Code, err)
		case existing.Credits != ds.Credits || existing.Mandatory != ds.IsMandatory():
			return nil, &roadmap.ConfigurationError{
				Curriculum: def.Code,
				Reason: fmt.Sprintf("课程 %s 已存在（学分 %v，必修 %v），与定义（学分 %v，必修 %v）不一致",
					ds.Code, existing.Credits, existing.Mandatory, ds.Credits, ds.IsMandatory()),
			}
		default:
			subjects[ds.Code] = existing
		}
	}

	for _, ds := range missing {
		subject := &model.Subject{
			Code:      ds.Code,
			Name:      ds.Name,
			Credits:   ds.Credits,
			Mandatory: ds.IsMandatory(),
		}
		subject.CreatedBy = model.Operator(callerID)
		subject.UpdatedBy = model.Operator(callerID)
		if err := repo.Subject.CreateIfAbsent(ctx, subject); err != nil {
			return nil, fmt.Errorf("写入课程 %s 失败: %w", ds.Code, err)
		}
		subjects[ds.Code] = subject
	}
	return subjects, nil
}

// sameContent 最新版本与定义的名称、学期数、课程及先修关系完全一致
func sameContent(latest *model.Curriculum, def roadmap.Definition, idOf func(code string) string) bool {
	if latest.Name != def.Name || latest.TotalSemesters != def.TotalSemesters || len(latest.Links) != len(def.Subjects) {
		return false
	}
	stored := make(map[string]model.CurriculumSubjectLink, len(latest.Links))
	for _, l := range latest.Links {
		stored[l.SubjectID] = l
	}
	for _, ds := range def.Subjects {
		l, ok := stored[idOf(ds.Code)]
		if !ok || l.SemesterNumber != ds.Semester {
			return false
		}
		pre := ""
		if l.PrerequisiteID != nil {
			pre = *l.PrerequisiteID
		}
		want := ""
		if ds.Prerequisite != "" {
			want = idOf(ds.Prerequisite)
		}
		if pre != want {
			return false
		}
	}
	return true
}

// graphFor 返回培养方案依赖图；内存中没有时（如由另一进程导入）从数据库加载并注册
func graphFor(ctx context.Context, repo *repository.Repository, catalog *roadmap.Catalog, curriculumID string) (*roadmap.CurriculumGraph, error) {
	if graph, ok := catalog.Graph(curriculumID); ok {
		return graph, nil
	}
	curriculum, err := repo.Curriculum.GetByID(ctx, curriculumID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurriculumNotFound
		}
		return nil, err
	}
	graph, err := roadmap.NewCurriculumGraph(graphSpecFromModel(curriculum))
	if err != nil {
		return nil, err
	}
	catalog.Replace(graph)
	return graph, nil
}

// ────────────────────── ImportFile ──────────────────────

func (s *curriculumService) ImportFile(ctx context.Context, path string, callerID string) ([]dto.CurriculumResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开培养方案文件失败: %w", err)
	}
	defer f.Close()

	defs, err := roadmap.ParseDefinitions(f)
	if err != nil {
		return nil, err
	}

	result := make([]dto.CurriculumResponse, 0, len(defs))
	for _, def := range defs {
		resp, err := s.Import(ctx, def, callerID)
		if err != nil {
			return nil, err
		}
		result = append(result, *resp)
	}
	return result, nil
}

// ────────────────────── LoadCatalog ──────────────────────

func (s *curriculumService) LoadCatalog(ctx context.Context) error {
	curricula, err := s.repo.Curriculum.ListWithLinks(ctx)
	if err != nil {
		return fmt.Errorf("加载培养方案失败: %w", err)
	}

	graphs := make([]*roadmap.CurriculumGraph, 0, len(curricula))
	for i := range curricula {
		graph, err := roadmap.NewCurriculumGraph(graphSpecFromModel(&curricula[i]))
		if err != nil {
			return err
		}
		graphs = append(graphs, graph)
	}
	for _, g := range graphs {
		s.catalog.Replace(g)
	}

	s.logger.Info("培养方案依赖图已加载", zap.Int("curricula", len(graphs)))
	return nil
}

// graphSpecFromModel 由持久化的培养方案及其课程关联构建 GraphSpec
func graphSpecFromModel(c *model.Curriculum) roadmap.GraphSpec {
	spec := roadmap.GraphSpec{
		CurriculumID:   c.CurriculumID,
		Code:           c.Code,
		Version:        c.Version,
		TotalSemesters: c.TotalSemesters,
		Subjects:       make([]roadmap.Subject, 0, len(c.Links)),
		Links:          make([]roadmap.Link, 0, len(c.Links)),
	}
	for _, l := range c.Links {
		if l.Subject != nil {
			spec.Subjects = append(spec.Subjects, roadmap.Subject{
				ID:        l.Subject.SubjectID,
				Code:      l.Subject.Code,
				Name:      l.Subject.Name,
				Credits:   l.Subject.Credits,
				Mandatory: l.Subject.Mandatory,
			})
		}
		link := roadmap.Link{SubjectID: l.SubjectID, SemesterNumber: l.SemesterNumber}
		if l.PrerequisiteID != nil {
			link.PrerequisiteID = *l.PrerequisiteID
		}
		spec.Links = append(spec.Links, link)
	}
	return spec
}

// ────────────────────── List / Get ──────────────────────

func (s *curriculumService) List(ctx context.Context) ([]dto.CurriculumResponse, error) {
	curricula, err := s.repo.Curriculum.List(ctx)
	if err != nil {
		s.logger.Error("列出培养方案失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CurriculumResponse, 0, len(curricula))
	for i := range curricula {
		c := &curricula[i]
		if graph, ok := s.catalog.Graph(c.CurriculumID); ok {
			result = append(result, *toCurriculumResponse(c.Name, graph))
			continue
		}
		result = append(result, dto.CurriculumResponse{
			ID:             c.CurriculumID,
			Code:           c.Code,
			Name:           c.Name,
			Version:        c.Version,
			TotalSemesters: c.TotalSemesters,
		})
	}
	return result, nil
}

func (s *curriculumService) Get(ctx context.Context, id string) (*dto.CurriculumDetailResponse, error) {
	curriculum, err := s.repo.Curriculum.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurriculumNotFound
		}
		s.logger.Error("查询培养方案失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	graph, err := graphFor(ctx, s.repo, s.catalog, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.CurriculumDetailResponse{
		CurriculumResponse: *toCurriculumResponse(curriculum.Name, graph),
		Subjects:           make([]dto.CurriculumSubjectResponse, 0, len(graph.SubjectIDs())),
	}
	for _, sid := range graph.SubjectIDs() {
		subject, _ := graph.Subject(sid)
		number, _ := graph.SemesterOf(sid)
		item := dto.CurriculumSubjectResponse{
			SubjectID:      sid,
			Code:           subject.Code,
			Name:           subject.Name,
			Credits:        subject.Credits,
			Mandatory:      subject.Mandatory,
			SemesterNumber: number,
		}
		if pre, ok := graph.PrerequisiteOf(sid); ok {
			item.PrerequisiteID = pre
			if ps, ok := graph.Subject(pre); ok {
				item.PrerequisiteCode = ps.Code
			}
		}
		resp.Subjects = append(resp.Subjects, item)
	}
	return resp, nil
}

func toCurriculumResponse(name string, graph *roadmap.CurriculumGraph) *dto.CurriculumResponse {
	return &dto.CurriculumResponse{
		ID:               graph.ID(),
		Code:             graph.Code(),
		Name:             name,
		Version:          graph.Version(),
		TotalSemesters:   graph.TotalSemesters(),
		SubjectCount:     len(graph.SubjectIDs()),
		MandatoryCredits: graph.MandatoryCredits(),
		TotalCredits:     graph.TotalCredits(),
	}
}
