package run

import (
	"context"
	"errors"
	"sync"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/registry"
	"github.com/charmbracelet/log"
)

// errCancelled 在取消被观察到时终止遍历（不对外暴露）。
var errCancelled = errors.New("run cancelled")

// Run 是一次正在执行（或已结束）的 analyze/relocate。
//
// 控制状态机：running -> paused -> running；running|paused -> cancelled；running -> completed。
// Pause/Resume/Cancel 可以从任意 goroutine 调用，只在文件边界生效。
type Run struct {
	eng  *Engine
	id   string
	obs  Observer
	conf Confirmer
	log  *log.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	session domain.RunSession
	// wake 在进入 paused 时创建，在 resume/cancel 时关闭。
	wake chan struct{}

	// 以下字段只由 run goroutine 访问。
	models   *registry.Registry
	seq      int
	failures []domain.FileFailure
	reserved bool
	report   domain.RunReport

	done chan struct{}
}

func (r *Run) ID() string { return r.id }

// Plan 返回 relocate 的目标根目录规划（analyze 返回 false）。
func (r *Run) Plan() (domain.DestinationPlan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Plan == nil {
		return domain.DestinationPlan{}, false
	}
	return *r.session.Plan, true
}

// Snapshot 返回 RunSession 的副本。
func (r *Run) Snapshot() domain.RunSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s.Plan != nil {
		p := *s.Plan
		s.Plan = &p
	}
	return s
}

// Pause 请求在下一个文件边界暂停；只有 running 状态可以暂停。
func (r *Run) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.State != domain.StateRunning {
		return false
	}
	r.session.State = domain.StatePaused
	r.wake = make(chan struct{})
	return true
}

// Resume 恢复一个已暂停的 run。
func (r *Run) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.State != domain.StatePaused {
		return false
	}
	r.session.State = domain.StateRunning
	close(r.wake)
	r.wake = nil
	return true
}

// TogglePause 在 running 与 paused 之间切换，返回切换后的状态。
func (r *Run) TogglePause() domain.RunState {
	if r.Pause() {
		return domain.StatePaused
	}
	if r.Resume() {
		return domain.StateRunning
	}
	return r.Snapshot().State
}

// Cancel 请求取消；已处理的文件不会回滚，正在移动的文件会完成。
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.State.Terminal() {
		return false
	}
	r.session.State = domain.StateCancelled
	if r.wake != nil {
		close(r.wake)
		r.wake = nil
	}
	r.stop()
	return true
}

// Done 在 run 结束（OnFinish 调用之后）时关闭。
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait 阻塞直到 run 结束，并返回最终报告。
func (r *Run) Wait() domain.RunReport {
	<-r.done
	return r.report
}

// checkpoint 在每个文件之前调用：先检查取消，再在暂停时阻塞（不轮询），
// 直到 resume、cancel 或 ctx 取消。
func (r *Run) checkpoint() error {
	paused := false
	for {
		if r.ctx.Err() != nil {
			r.Cancel()
		}

		r.mu.Lock()
		st := r.session.State
		wake := r.wake
		r.mu.Unlock()

		switch st {
		case domain.StateCancelled:
			return errCancelled
		case domain.StatePaused:
			if !paused {
				paused = true
				r.log.Info("run paused")
				r.emit(domain.Event{Kind: domain.EventPaused, Tag: domain.TagWarning, Message: "已暂停"})
			}
			select {
			case <-wake:
			case <-r.ctx.Done():
			}
		default:
			if paused {
				r.log.Info("run resumed")
				r.emit(domain.Event{Kind: domain.EventResumed, Tag: domain.TagWarning, Message: "已继续"})
			}
			return nil
		}
	}
}

func (r *Run) counters() domain.Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Counters
}

// bump 修改计数（只由 run goroutine 调用）。
func (r *Run) bump(fn func(c *domain.Counters)) {
	r.mu.Lock()
	fn(&r.session.Counters)
	r.mu.Unlock()
}

func (r *Run) setState(st domain.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.session.State.Terminal() {
		r.session.State = st
	}
}

func (r *Run) emit(ev domain.Event) {
	r.seq++
	ev.Seq = r.seq
	ev.Counters = r.counters()
	r.obs.OnEvent(ev)
}
