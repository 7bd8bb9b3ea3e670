package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ErrCodeInvalid 表示配置文件/.env 无法读取或解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示所有层都没有给出 source 或 target。
	ErrCodeMissingPath = "config_missing_path"
	// ErrCodeMissingCamera 表示所有层都没有给出相机过滤词。
	ErrCodeMissingCamera = "config_missing_camera"
)

const (
	// FileName 是 cwd 下可选的配置文件名。
	FileName = "camsort.json"
	// DotEnvName 是 cwd 下可选的 .env 文件名。
	DotEnvName = ".env"

	// DefaultUI 表示根据 stdout 是否为终端自动选择界面。
	DefaultUI = "auto"
)

// 环境变量名（.env 中使用相同的键）。
const (
	EnvSource   = "CAMSORT_SOURCE"
	EnvTarget   = "CAMSORT_TARGET"
	EnvCamera   = "CAMSORT_CAMERA"
	EnvUI       = "CAMSORT_UI"
	EnvLogFile  = "CAMSORT_LOG_FILE"
	EnvLogLevel = "CAMSORT_LOG_LEVEL"
)

// 通过可替换的函数指针读取进程环境，测试可以注入固定环境。
var lookupEnv = os.LookupEnv

// CLIArgs 是 CLI 暴露的参数；空字符串表示未指定（交给下一层）。
type CLIArgs struct {
	Source string
	Target string
	Camera string
	UI     string

	LogFile  string
	LogLevel string
}

// FileConfig 对应 camsort.json 的解析结构。
type FileConfig struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Camera      string   `json:"camera"`
	ExcludeDirs []string `json:"exclude_dirs"`
	UI          string   `json:"ui"`
	LogFile     string   `json:"log_file"`
	LogLevel    string   `json:"log_level"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Source string
	Target string
	Camera string

	ExcludeDirs []string

	UI       string
	LogFile  string
	LogLevel string

	// ConfigFile 是实际读取到的 camsort.json（不存在时为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingPath:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s：缺少源目录或目标目录", e.Code)
	case ErrCodeMissingCamera:
		return fmt.Sprintf("%s：缺少相机过滤词（--camera 或 %s）", e.Code, EnvCamera)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 cwd 下的配置来源，并与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定，逐字段）：
// CLI > 进程环境变量 > <cwd>/.env > <cwd>/camsort.json > 默认值
//
// - .env 只读取，不写回进程环境
// - exclude_dirs 只由 camsort.json 控制
// - 相对路径以 cwd 为基准变为 clean + absolute；目录是否存在由引擎校验
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	envPath := filepath.Join(cwdAbs, DotEnvName)
	dotenv, err := readDotEnv(envPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}

	pick := func(cliVal, envKey, fileVal string) string {
		if v := strings.TrimSpace(cliVal); v != "" {
			return v
		}
		if v, ok := lookupEnv(envKey); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v := strings.TrimSpace(dotenv[envKey]); v != "" {
			return v
		}
		return strings.TrimSpace(fileVal)
	}

	eff := EffectiveConfig{
		Source:      pick(cli.Source, EnvSource, fc.Source),
		Target:      pick(cli.Target, EnvTarget, fc.Target),
		Camera:      pick(cli.Camera, EnvCamera, fc.Camera),
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
		UI:          strings.ToLower(pick(cli.UI, EnvUI, fc.UI)),
		LogFile:     pick(cli.LogFile, EnvLogFile, fc.LogFile),
		LogLevel:    strings.ToLower(pick(cli.LogLevel, EnvLogLevel, fc.LogLevel)),
	}
	if exists {
		eff.ConfigFile = cfgPath
	}

	if eff.Source == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath, Err: fmt.Errorf("缺少源目录（位置参数、%s 或 source）", EnvSource)}
	}
	if eff.Target == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath, Err: fmt.Errorf("缺少目标目录（--target、%s 或 target）", EnvTarget)}
	}
	if eff.Camera == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingCamera, Path: cfgPath}
	}

	if eff.UI == "" {
		eff.UI = DefaultUI
	}
	if err := validateUI(eff.UI); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if err := validateLogLevel(eff.LogLevel); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff.Source = absCleanFrom(cwdAbs, eff.Source)
	eff.Target = absCleanFrom(cwdAbs, eff.Target)
	if eff.LogFile != "" {
		eff.LogFile = absCleanFrom(cwdAbs, eff.LogFile)
	}
	return eff, nil
}

func validateUI(ui string) error {
	switch ui {
	case "auto", "tui", "plain":
		return nil
	default:
		return fmt.Errorf("ui 只能是 auto、tui 或 plain，实际是 %q", ui)
	}
}

func validateLogLevel(level string) error {
	switch level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", level)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// readDotEnv 读取 .env；不存在时返回空表。
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return godotenv.Read(path)
}
