package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRoadmap    = errors.New("学生尚未分配培养方案")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportRoadmap 导出学生培养路线与毕业审核结论
	ExportRoadmap(ctx context.Context, studentID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	roadmap    RoadmapService
	graduation GraduationService
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(roadmapSvc RoadmapService, graduationSvc GraduationService, logger *zap.Logger) ExportService {
	return &exportService{roadmap: roadmapSvc, graduation: graduationSvc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRoadmap — 导出培养路线为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "培养路线"：学期序号 | 课程代码 | 课程名称 | 学分 | 必修 | 学期 | 状态 | 成绩 | 等级
//   - Sheet "毕业审核"：审核结论（不落库）
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportRoadmap(ctx context.Context, studentID string) (*bytes.Buffer, string, error) {
	rm, err := s.roadmap.GetRoadmap(ctx, studentID)
	if err != nil {
		return nil, "", err
	}
	if rm.CurriculumID == "" {
		return nil, "", ErrExportNoRoadmap
	}
	verdict, err := s.graduation.EvaluateGraduation(ctx, studentID, false, "")
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 1. 培养路线
	sheet := "培养路线"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 12)
	f.SetColWidth(sheet, "C", "C", 28)
	f.SetColWidth(sheet, "D", "I", 12)

	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s — 培养路线", rm.CurriculumCode))
	f.MergeCell(sheet, "A1", "I1")
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	headers := []string{"学期序号", "课程代码", "课程名称", "学分", "必修", "学期", "状态", "成绩", "等级"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", "I2", headerStyle)

	row := 3
	for _, group := range rm.Semesters {
		for _, e := range group.Entries {
			f.SetCellValue(sheet, cell("A", row), group.SemesterNumber)
			f.SetCellValue(sheet, cell("B", row), e.SubjectCode)
			f.SetCellValue(sheet, cell("C", row), e.SubjectName)
			f.SetCellValue(sheet, cell("D", row), e.Credits)
			f.SetCellValue(sheet, cell("E", row), yesNo(e.Mandatory))
			f.SetCellValue(sheet, cell("F", row), orDash(e.SemesterName))
			f.SetCellValue(sheet, cell("G", row), e.Status)
			if e.FinalScore != nil {
				f.SetCellValue(sheet, cell("H", row), *e.FinalScore)
			} else {
				f.SetCellValue(sheet, cell("H", row), "-")
			}
			if e.LetterGrade != nil {
				f.SetCellValue(sheet, cell("I", row), *e.LetterGrade)
			} else {
				f.SetCellValue(sheet, cell("I", row), "-")
			}
			row++
		}
	}

	// 2. 毕业审核
	audit := "毕业审核"
	f.NewSheet(audit)
	f.SetColWidth(audit, "A", "A", 16)
	f.SetColWidth(audit, "B", "B", 40)
	summary := [][2]interface{}{
		{"满足毕业条件", yesNo(verdict.Eligible)},
		{"已毕业", yesNo(verdict.Graduated)},
		{"毕业等级", orDash(verdict.Classification)},
		{"加权平均分", verdict.WeightedAverage},
		{"已修学分", verdict.CompletedCredits},
		{"必修学分", verdict.RequiredCredits},
		{"未完成必修课", joinOrDash(verdict.MissingMandatory)},
	}
	for i, kv := range summary {
		f.SetCellValue(audit, cell("A", i+1), kv[0])
		f.SetCellValue(audit, cell("B", i+1), kv[1])
	}
	f.SetCellStyle(audit, "A1", cell("A", len(summary)), headerStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("培养路线_%s.xlsx", studentID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
