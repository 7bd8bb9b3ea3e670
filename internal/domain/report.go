package domain

import (
	"time"
)

const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeDeclined  = "declined"
	OutcomeFailed    = "failed"
)

const (
	StageWalk = "walk"
	StageMove = "move"
	StagePlan = "plan"

	// StageConfig 只出现在配置/启动失败时合成的报告里。
	StageConfig = "config"
)

// RunReport 是对外稳定输出（--report 文件 / stdout JSON）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	Mode   Mode   `json:"mode"`
	Source string `json:"source"`
	Target string `json:"target"`
	Filter string `json:"filter"`

	// DestinationRoot 仅 relocate 时非空。
	DestinationRoot string `json:"destination_root,omitempty"`

	Outcome string `json:"outcome"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary  Counters      `json:"summary"`
	Models   []string      `json:"models"`
	Failures []FileFailure `json:"failures"`
}

// FileFailure 记录单个文件（或目录项）的失败；路径一律相对源目录。
type FileFailure struct {
	Path      string `json:"path"`
	Stage     string `json:"stage"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) nil 切片归一为空切片（JSON 输出 [] 而不是 null）
//
// failures 保持遍历顺序，不排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Models == nil {
		r.Models = []string{}
	}
	if r.Failures == nil {
		r.Failures = []FileFailure{}
	}
}

// OK 表示这次 run 无需用户关注（完成且无错误，或用户主动拒绝）。
func (r RunReport) OK() bool {
	switch r.Outcome {
	case OutcomeCompleted:
		return r.Summary.Errors == 0
	case OutcomeDeclined:
		return true
	default:
		return false
	}
}
