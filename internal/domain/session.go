package domain

import "time"

// Mode 是一次 run 的入口类型。
type Mode string

const (
	ModeAnalyze  Mode = "analyze"
	ModeRelocate Mode = "relocate"
)

// RunState 是 run 的控制状态。
//
// 合法迁移：running -> paused -> running；running|paused -> cancelled（终态）；running -> completed（终态）。
type RunState string

const (
	StateRunning   RunState = "running"
	StatePaused    RunState = "paused"
	StateCancelled RunState = "cancelled"
	StateCompleted RunState = "completed"
)

// Terminal 表示该状态之后不再有任何迁移。
func (s RunState) Terminal() bool {
	return s == StateCancelled || s == StateCompleted
}

// Counters 在单次 run 内单调不减。
type Counters struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Moved   int `json:"moved"`
	Errors  int `json:"errors"`
}

// RunSession 是一次 analyze/relocate 的完整状态。
// 只有 run goroutine 会修改它；其他方只能拿到快照副本。
type RunSession struct {
	ID   string
	Mode Mode

	SourceDir    string
	TargetDir    string
	CameraFilter string

	// Plan 仅 relocate 时非空。
	Plan *DestinationPlan

	Counters Counters
	State    RunState

	StartedAt time.Time
}
