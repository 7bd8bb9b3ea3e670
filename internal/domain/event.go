package domain

// Tag 是事件的展示分类（与日志面板的着色一一对应）。
type Tag string

const (
	TagHeader  Tag = "header"
	TagNormal  Tag = "normal"
	TagMatch   Tag = "match"
	TagModel   Tag = "model"
	TagSuccess Tag = "success"
	TagWarning Tag = "warning"
	TagError   Tag = "error"
)

// EventKind 描述事件的语义类型。
type EventKind string

const (
	EventRunStarted      EventKind = "run_started"
	EventModelDiscovered EventKind = "model_discovered"
	EventFileClassified  EventKind = "file_classified"
	EventFileMoved       EventKind = "file_moved"
	EventFileError       EventKind = "file_error"
	EventPaused          EventKind = "paused"
	EventResumed         EventKind = "resumed"
	EventSummary         EventKind = "summary"
	EventAborted         EventKind = "aborted"
)

// Event 是 run 层发往 Progress Sink 的唯一消息类型。
//
// 约束：事件内不含墙钟时间与 run id，保证同一棵未变化的源目录树上两次 analyze 得到完全相同的事件序列。
type Event struct {
	Seq  int
	Kind EventKind
	Tag  Tag

	RelPath string
	Model   string
	Match   bool
	Dst     string

	Message string
	Err     string

	// Counters 是事件发出时刻的计数快照。
	Counters Counters
}
