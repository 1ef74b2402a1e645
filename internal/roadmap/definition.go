package roadmap

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Definition 培养方案配置文件中的一个方案
//
//	curricula:
//	  - code: SE-2024
//	    name: 软件工程 2024 版
//	    total_semesters: 8
//	    subjects:
//	      - {code: CS101, name: 程序设计基础, credits: 4, semester: 1}
//	      - {code: SE101, name: 软件工程导论, credits: 3, semester: 2, prerequisite: CS101}
type Definition struct {
	Code           string              `yaml:"code"`
	Name           string              `yaml:"name"`
	TotalSemesters int                 `yaml:"total_semesters"`
	Subjects       []DefinitionSubject `yaml:"subjects"`
}

// DefinitionSubject 方案中的课程；先修课以课程代码引用
type DefinitionSubject struct {
	Code         string  `yaml:"code"`
	Name         string  `yaml:"name"`
	Credits      float64 `yaml:"credits"`
	Mandatory    *bool   `yaml:"mandatory"` // 缺省为必修
	Semester     int     `yaml:"semester"`
	Prerequisite string  `yaml:"prerequisite"`
}

// IsMandatory 未显式声明时视为必修
func (s DefinitionSubject) IsMandatory() bool {
	return s.Mandatory == nil || *s.Mandatory
}

type definitionFile struct {
	Curricula []Definition `yaml:"curricula"`
}

// ParseDefinitions 解析并校验培养方案 YAML
func ParseDefinitions(r io.Reader) ([]Definition, error) {
	var file definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("解析培养方案文件失败: %w", err)
	}

	seen := make(map[string]bool, len(file.Curricula))
	for _, def := range file.Curricula {
		if seen[def.Code] {
			return nil, configErrorf(def.Code, "培养方案代码重复")
		}
		seen[def.Code] = true
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Curricula, nil
}

// Validate 以课程代码作为 ID 试构建依赖图
func (d Definition) Validate() error {
	if d.Code == "" {
		return configErrorf("<unnamed>", "培养方案代码不能为空")
	}
	_, err := NewCurriculumGraph(d.GraphSpec(d.Code, 0, func(code string) string { return code }))
	return err
}

// GraphSpec 转换为 GraphSpec；idOf 把课程代码映射为持久化后的课程 ID
func (d Definition) GraphSpec(curriculumID string, version int, idOf func(code string) string) GraphSpec {
	spec := GraphSpec{
		CurriculumID:   curriculumID,
		Code:           d.Code,
		Version:        version,
		TotalSemesters: d.TotalSemesters,
		Subjects:       make([]Subject, 0, len(d.Subjects)),
		Links:          make([]Link, 0, len(d.Subjects)),
	}
	for _, s := range d.Subjects {
		id := idOf(s.Code)
		spec.Subjects = append(spec.Subjects, Subject{
			ID:        id,
			Code:      s.Code,
			Name:      s.Name,
			Credits:   s.Credits,
			Mandatory: s.IsMandatory(),
		})
		link := Link{SubjectID: id, SemesterNumber: s.Semester}
		if s.Prerequisite != "" {
			link.PrerequisiteID = idOf(s.Prerequisite)
		}
		spec.Links = append(spec.Links, link)
	}
	return spec
}
