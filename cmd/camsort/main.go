package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/camsort/internal/app/run"
	"github.com/John-Robertt/camsort/internal/classify"
	"github.com/John-Robertt/camsort/internal/config"
	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/infra/fsx"
	"github.com/John-Robertt/camsort/internal/logging"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// realMain 返回进程退出码：0 成功（或用户拒绝），1 run 出错/取消/失败，2 用法错误。
func realMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(stdout)
		return 0
	}

	var mode domain.Mode
	switch args[0] {
	case "analyze":
		mode = domain.ModeAnalyze
	case "move":
		mode = domain.ModeRelocate
	default:
		fmt.Fprintf(stderr, "未知命令：%q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	for _, a := range args[1:] {
		if isHelp(a) {
			printCmdUsage(stdout, args[0])
			return 0
		}
	}

	ca, err := parseCmdArgs(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printCmdUsage(stderr, args[0])
		return 2
	}
	if ca.Yes && mode != domain.ModeRelocate {
		fmt.Fprintf(stderr, "参数错误：--yes 只能用于 move\n\n")
		printCmdUsage(stderr, args[0])
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	out := outputs{stdin: stdin, stdout: stdout, stderr: stderr}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Source:   ca.Source,
		Target:   ca.Target,
		Camera:   ca.Camera,
		UI:       ca.UI,
		LogFile:  ca.LogFile,
		LogLevel: ca.LogLevel,
	})
	if err != nil {
		rep := reportForStartError(mode, ca, config.Code(err), err)
		out.emitReport(rep, ca.Report)
		return 1
	}

	useTUI := pickUI(eff.UI, stdin, stderr)

	logOpts := logging.Options{File: eff.LogFile, Level: eff.LogLevel}
	if !useTUI {
		logOpts.Stderr = stderr
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer logger.Close()

	eng := run.New(run.Options{
		Logger:      logger.Logger,
		ExcludeDirs: eff.ExcludeDirs,
	})
	req := run.Request{Mode: mode, Source: eff.Source, Target: eff.Target, Filter: eff.Camera}

	var (
		rep      domain.RunReport
		startErr error
	)
	if useTUI {
		rep, startErr = runTUI(context.Background(), eng, req, ca.Yes, stderr)
	} else {
		rep, startErr = runPlain(context.Background(), eng, req, ca.Yes, stdin, stderr)
	}
	if startErr != nil {
		var tuiErr *tuiError
		if errors.As(startErr, &tuiErr) {
			fmt.Fprintf(stderr, "界面运行失败：%v\n", tuiErr.Err)
			if rep.RunID == "" {
				return 1
			}
		} else {
			rep = reportForStartError(mode, ca, startErrorCode(startErr), startErr)
			rep.Source, rep.Target, rep.Filter = eff.Source, eff.Target, eff.Camera
		}
	}

	out.emitReport(rep, ca.Report)
	if rep.OK() {
		return 0
	}
	return 1
}

type cmdArgs struct {
	Source   string
	Target   string
	Camera   string
	UI       string
	LogFile  string
	LogLevel string
	Report   string
	Yes      bool
}

func parseCmdArgs(args []string) (cmdArgs, error) {
	ca := cmdArgs{}

	valued := map[string]*string{
		"--target":    &ca.Target,
		"--camera":    &ca.Camera,
		"--ui":        &ca.UI,
		"--log-file":  &ca.LogFile,
		"--log-level": &ca.LogLevel,
		"--report":    &ca.Report,
	}

	for i := 0; i < len(args); i++ {
		a := args[i]

		if name, val, ok := strings.Cut(a, "="); ok && strings.HasPrefix(name, "--") {
			if dst, known := valued[name]; known {
				if strings.TrimSpace(val) == "" {
					return cmdArgs{}, fmt.Errorf("%s 不能为空", name)
				}
				*dst = val
				continue
			}
		}

		switch {
		case a == "--yes" || a == "-y":
			ca.Yes = true
		case valued[a] != nil:
			if i+1 >= len(args) {
				return cmdArgs{}, fmt.Errorf("%s 需要一个值", a)
			}
			i++
			*valued[a] = args[i]
		case strings.HasPrefix(a, "-"):
			return cmdArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ca.Source != "" {
				return cmdArgs{}, fmt.Errorf("重复的源目录：%q 与 %q", ca.Source, a)
			}
			ca.Source = a
		}
	}

	if ca.UI != "" {
		switch strings.ToLower(ca.UI) {
		case "auto", "tui", "plain":
		default:
			return cmdArgs{}, fmt.Errorf("--ui 只能是 auto、tui 或 plain，实际是 %q", ca.UI)
		}
	}

	return ca, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  camsort analyze [source] --target DIR --camera NAME [选项]
  camsort move    [source] --target DIR --camera NAME [--yes] [选项]

命令：
  analyze  读取照片的相机型号并列出匹配项（只读）
  move     把匹配的照片移动到 <target>/<camera>/ 下，保持相对路径

使用 "camsort analyze --help" 或 "camsort move --help" 查看详细说明。
`)
}

func printCmdUsage(w io.Writer, cmd string) {
	fmt.Fprintf(w, `用法：
  camsort %s [source] --target DIR --camera NAME [选项]

参数：
  source        源目录（未指定则读 %s / camsort.json）
  --target      目标目录（必须已存在）
  --camera      相机型号过滤词（大小写不敏感的子串匹配）
  --yes, -y     跳过移动前的确认（仅 move）
  --ui          auto|tui|plain（默认 auto：终端下使用 TUI）
  --report      额外把 RunReport JSON 原子写入该文件
  --log-file    诊断日志文件（追加写）
  --log-level   debug|info|warn|error（默认 info）
  -h, --help    显示帮助

支持的扩展名（大小写不敏感）：
  %s
`, cmd, config.EnvSource, wrapWords(classify.SupportedExtensions(), 72, "\n  "))
}

// wrapWords 用空格连接 words，行宽超过 width 时用 sep 换行。
func wrapWords(words []string, width int, sep string) string {
	var (
		b       strings.Builder
		lineLen int
	)
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				b.WriteString(sep)
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}

// pickUI 决定是否启用 TUI。TUI 画在 stderr 上，stdout 留给 JSON 报告。
func pickUI(ui string, stdin io.Reader, stderr io.Writer) bool {
	switch ui {
	case "tui":
		return true
	case "plain":
		return false
	default:
		return isTTY(stdin) && isTTY(stderr)
	}
}

func isTTY(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type outputs struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (o outputs) emitReport(rep domain.RunReport, reportFile string) {
	if reportFile != "" {
		if err := writeReportFile(reportFile, rep); err != nil {
			fmt.Fprintf(o.stderr, "写入报告失败：%v\n", err)
		}
	}

	summary := fmt.Sprintf("完成：outcome=%s scanned=%d matched=%d moved=%d errors=%d models=%d\n",
		rep.Outcome, rep.Summary.Scanned, rep.Summary.Matched, rep.Summary.Moved, rep.Summary.Errors, len(rep.Models),
	)

	if isTTY(o.stdout) {
		fmt.Fprint(o.stdout, summary)
		if rep.DestinationRoot != "" && rep.Summary.Moved > 0 {
			fmt.Fprintf(o.stdout, "目标：%s\n", rep.DestinationRoot)
		}
		for _, f := range rep.Failures {
			fmt.Fprintf(o.stderr, "%s %s: %s\n", f.Path, f.ErrorCode, f.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（摘要走 stderr）。
	enc := json.NewEncoder(o.stdout)
	_ = enc.Encode(rep)
	fmt.Fprint(o.stderr, summary)
}

func writeReportFile(path string, rep domain.RunReport) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(afero.NewOsFs(), filepath.Dir(abs), filepath.Base(abs), b)
}

// reportForStartError 为“run 还没开始就失败”的情况合成一个报告，保持 stdout 契约。
func reportForStartError(mode domain.Mode, ca cmdArgs, code string, err error) domain.RunReport {
	now := time.Now().UTC()
	rep := domain.RunReport{
		Mode:       mode,
		Source:     ca.Source,
		Target:     ca.Target,
		Filter:     ca.Camera,
		Outcome:    domain.OutcomeFailed,
		StartedAt:  now,
		FinishedAt: now,
		Failures: []domain.FileFailure{{
			Path:      ".",
			Stage:     domain.StageConfig,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rep.Finalize()
	return rep
}

func startErrorCode(err error) string {
	var planErr *domain.PlanConflictError
	switch {
	case domain.IsInvalidPath(err):
		return domain.ErrCodeInvalidPath
	case domain.IsBusy(err):
		return domain.ErrCodeBusy
	case errors.Is(err, domain.ErrEmptyFilter):
		return domain.ErrCodeEmptyFilter
	case errors.As(err, &planErr):
		return domain.ErrCodeTargetConflict
	default:
		return domain.ErrCodeIOFailed
	}
}
