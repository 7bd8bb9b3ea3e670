package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options 描述诊断日志的去向。
type Options struct {
	// File 非空时以追加方式写入该文件。
	File string
	// Level：debug|info|warn|error；空表示 info。
	Level string
	// Stderr 为 nil 时不向终端输出（TUI 模式下终端由界面独占）。
	Stderr io.Writer
}

// Logger 包装 *log.Logger，并持有需要关闭的日志文件。
type Logger struct {
	*log.Logger
	file *os.File
}

// New 创建诊断 logger：
// - 配置了 File：写文件
// - 否则写 Stderr
// - 两者都没有：丢弃
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		w    io.Writer = io.Discard
		file *os.File
	)
	switch {
	case strings.TrimSpace(opts.File) != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败：%w", err)
		}
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败：%w", err)
		}
		w = file
	case opts.Stderr != nil:
		w = opts.Stderr
	}

	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Prefix:          "camsort",
	})
	return &Logger{Logger: l, file: file}, nil
}

// Discard 返回一个什么也不输出的 logger（测试与库默认值）。
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Close 关闭日志文件（若有）。
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel 解析日志级别；空字符串表示 info。
func ParseLevel(s string) (log.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return log.InfoLevel, nil
	}
	switch s {
	case "debug", "info", "warn", "error":
	default:
		return log.InfoLevel, fmt.Errorf("未知日志级别：%q（可选 debug|info|warn|error）", s)
	}
	return log.ParseLevel(s)
}
