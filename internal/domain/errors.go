package domain

import (
	"errors"
	"fmt"
)

const (
	ErrCodeTargetConflict  = "target_conflict"
	ErrCodeMoveFailed      = "move_failed"
	ErrCodeCrossDeviceCopy = "cross_device_copy_failed"
	ErrCodeIOFailed        = "io_failed"

	// 以下用于 run 开始前就失败的情况（只出现在 CLI 合成的报告里）。
	ErrCodeInvalidPath = "invalid_path"
	ErrCodeEmptyFilter = "empty_filter"
	ErrCodeBusy        = "busy"
)

// ErrEmptyFilter 表示相机过滤词为空（每次 run 开始前校验一次，而不是逐文件校验）。
var ErrEmptyFilter = errors.New("相机过滤词不能为空")

// InvalidPathError 表示源目录或目标目录不存在（或不是目录）。在任何遍历之前报出。
type InvalidPathError struct {
	Role string // "source" | "target"
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	name := "目标目录"
	if e.Role == "source" {
		name = "源目录"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s无效：%q：%v", name, e.Path, e.Err)
	}
	return fmt.Sprintf("%s不存在：%q", name, e.Path)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

// BusyError 表示已有 run 在执行；新请求被直接拒绝，不排队。
type BusyError struct {
	RunID string
}

func (e *BusyError) Error() string {
	if e.RunID == "" {
		return "已有任务在运行"
	}
	return fmt.Sprintf("已有任务在运行：run_id=%s", e.RunID)
}

// MetadataReadError 表示单个文件的元数据读取失败（非“没有型号”，而是意外的 I/O 错误）。
// 上层统一当作“型号未确定”处理，只用于诊断日志。
type MetadataReadError struct {
	Path string
	Err  error
}

func (e *MetadataReadError) Error() string {
	return fmt.Sprintf("读取元数据失败：%q：%v", e.Path, e.Err)
}

func (e *MetadataReadError) Unwrap() error { return e.Err }

// MoveError 表示单个文件移动失败；计入 errors，遍历继续。
type MoveError struct {
	RelPath string
	Dst     string
	Code    string
	Err     error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("移动失败 %s：%v", e.RelPath, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// PlanConflictError 表示目标根目录在“确认”与“预留”之间被外部创建。
// 此时还没有任何文件被移动，整次 run 失败。
type PlanConflictError struct {
	Path string
}

func (e *PlanConflictError) Error() string {
	return fmt.Sprintf("目标目录在确认后被占用：%q", e.Path)
}

func IsInvalidPath(err error) bool {
	var e *InvalidPathError
	return errors.As(err, &e)
}

func IsBusy(err error) bool {
	var e *BusyError
	return errors.As(err, &e)
}
