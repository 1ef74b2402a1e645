package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"edu-records/internal/dto"
	"edu-records/internal/service"
)

// cliOperator 命令行操作不记录操作人
const cliOperator = ""

var errHelp = errors.New("help provided")

type commandLine struct {
	curricula  service.CurriculumService
	graduation service.GraduationService
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  sweep    [-curriculum ID] [-persist]  - 批量毕业审核（默认只审核不写库）")
	fmt.Fprintln(cli.out, "  evaluate -student ID [-persist]       - 审核单个学生")
	fmt.Fprintln(cli.out, "  import   -file PATH                   - 导入培养方案 YAML")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sweepCmd := flag.NewFlagSet("sweep", flag.ContinueOnError)
	sweepCurriculum := sweepCmd.String("curriculum", "", "只审核该培养方案的学生")
	sweepPersist := sweepCmd.Bool("persist", false, "写入毕业标记与审核记录")

	evalCmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	evalStudent := evalCmd.String("student", "", "学生 ID")
	evalPersist := evalCmd.Bool("persist", false, "写入毕业标记与审核记录")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "培养方案 YAML 路径")

	for _, fs := range []*flag.FlagSet{sweepCmd, evalCmd, importCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.sweep(ctx, *sweepCurriculum, *sweepPersist)
	case "evaluate":
		if err := evalCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *evalStudent == "" {
			evalCmd.Usage()
			return errHelp
		}
		return cli.evaluate(ctx, *evalStudent, *evalPersist)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importFile(ctx, *importFile)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) sweep(ctx context.Context, curriculumID string, persist bool) error {
	resp, err := cli.graduation.Sweep(ctx, &dto.GraduationSweepRequest{
		CurriculumID: curriculumID,
		Persist:      persist,
	}, cliOperator)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tELIGIBLE\tCLASSIFICATION\tAVERAGE\tMISSING")
	for _, v := range resp.Verdicts {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%.2f\t%v\n", v.StudentID, v.Eligible, v.Classification, v.WeightedAverage, v.MissingMandatory)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "\nevaluated=%d eligible=%d graduated=%d failed=%d\n",
		resp.Evaluated, resp.Eligible, resp.Graduated, resp.Failed)
	if resp.Failed > 0 {
		return fmt.Errorf("%d 名学生审核失败，详见日志", resp.Failed)
	}
	return nil
}

func (cli *commandLine) evaluate(ctx context.Context, studentID string, persist bool) error {
	v, err := cli.graduation.EvaluateGraduation(ctx, studentID, persist, cliOperator)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "student=%s eligible=%t classification=%s average=%.2f credits=%.1f/%.1f graduated=%t\n",
		v.StudentID, v.Eligible, v.Classification, v.WeightedAverage, v.CompletedCredits, v.RequiredCredits, v.Graduated)
	if len(v.MissingMandatory) > 0 {
		fmt.Fprintf(cli.out, "missing: %v\n", v.MissingMandatory)
	}
	if v.Reason != "" {
		fmt.Fprintf(cli.out, "reason: %s\n", v.Reason)
	}
	return nil
}

func (cli *commandLine) importFile(ctx context.Context, path string) error {
	imported, err := cli.curricula.ImportFile(ctx, path, cliOperator)
	if err != nil {
		return err
	}
	for _, c := range imported {
		fmt.Fprintf(cli.out, "%s v%d: %d subjects, mandatory %.1f credits\n", c.Code, c.Version, c.SubjectCount, c.MandatoryCredits)
	}
	return nil
}
