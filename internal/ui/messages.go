// Package ui 是 camsort 的 Bubble Tea 进度界面。
//
// 界面不持有引擎状态：事件通过消息到达，控制通过 Controller 发出。
package ui

import "github.com/John-Robertt/camsort/internal/domain"

// AttachMsg 把正在执行的 run 交给界面，之后按键才能控制它。
type AttachMsg struct {
	Ctrl Controller
}

// StartedMsg 在 run goroutine 开始时发送。
type StartedMsg struct {
	Session domain.RunSession
}

// EventMsg 携带一个引擎事件。
type EventMsg struct {
	Event domain.Event
}

// FinishedMsg 在 run 结束时发送。
type FinishedMsg struct {
	Report domain.RunReport
}

// ConfirmRequestMsg 请求操作者确认移动；Reply 必须是带缓冲的通道。
type ConfirmRequestMsg struct {
	Source string
	Plan   domain.DestinationPlan
	Reply  chan<- bool
}
