package ui

import (
	"context"

	"github.com/John-Robertt/camsort/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

// Sender 是 *tea.Program 的最小子集，方便测试替换。
type Sender interface {
	Send(msg tea.Msg)
}

// Observer 把引擎回调转成 Bubble Tea 消息。
type Observer struct {
	s Sender
}

func NewObserver(s Sender) *Observer { return &Observer{s: s} }

func (o *Observer) OnStart(session domain.RunSession) { o.s.Send(StartedMsg{Session: session}) }

func (o *Observer) OnEvent(ev domain.Event) { o.s.Send(EventMsg{Event: ev}) }

func (o *Observer) OnFinish(rep domain.RunReport) { o.s.Send(FinishedMsg{Report: rep}) }

// Confirmer 在界面里弹出确认框，并阻塞到操作者回答或 ctx 结束。
type Confirmer struct {
	s Sender
}

func NewConfirmer(s Sender) *Confirmer { return &Confirmer{s: s} }

func (c *Confirmer) ConfirmMove(ctx context.Context, source string, plan domain.DestinationPlan) (bool, error) {
	reply := make(chan bool, 1)
	c.s.Send(ConfirmRequestMsg{Source: source, Plan: plan, Reply: reply})

	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
