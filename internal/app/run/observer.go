package run

import (
	"context"
	"errors"

	"github.com/John-Robertt/camsort/internal/domain"
)

// Observer 用于把“运行进度/事件/结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 所有回调都在 run goroutine 上同步调用，事件顺序即遍历顺序；实现不应长时间阻塞。
type Observer interface {
	// OnStart 在 run goroutine 开始时调用（遍历之前）。
	OnStart(s domain.RunSession)
	// OnEvent 每个事件调用一次，Seq 从 1 开始连续递增。
	OnEvent(ev domain.Event)
	// OnFinish 在 run 结束时调用（无论完成、取消、拒绝还是失败）。
	OnFinish(rep domain.RunReport)
}

// Confirmer 在 relocate 真正移动任何文件之前，向操作者展示源目录与目标根目录并请求确认。
type Confirmer interface {
	ConfirmMove(ctx context.Context, source string, plan domain.DestinationPlan) (bool, error)
}

// ConfirmFunc 让普通函数实现 Confirmer。
type ConfirmFunc func(ctx context.Context, source string, plan domain.DestinationPlan) (bool, error)

func (f ConfirmFunc) ConfirmMove(ctx context.Context, source string, plan domain.DestinationPlan) (bool, error) {
	return f(ctx, source, plan)
}

// AutoConfirm 总是确认（对应 CLI 的 --yes）。
type AutoConfirm struct{}

func (AutoConfirm) ConfirmMove(context.Context, string, domain.DestinationPlan) (bool, error) {
	return true, nil
}

var errNoConfirmer = errors.New("relocate 需要 Confirmer（或显式使用 AutoConfirm）")

type nopObserver struct{}

func (nopObserver) OnStart(domain.RunSession) {}
func (nopObserver) OnEvent(domain.Event)      {}
func (nopObserver) OnFinish(domain.RunReport) {}
