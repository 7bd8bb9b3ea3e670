package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/John-Robertt/camsort/internal/app/run"
	"github.com/John-Robertt/camsort/internal/domain"
	"golang.org/x/time/rate"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是非 TUI 模式下的逐行进度输出。
//
// - 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间没有新事件时定期输出一行计数
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time
	counters    domain.Counters
	paused      bool

	// counts 节流“进度”行：每隔 interval 最多输出一次。
	counts rate.Sometimes

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		counts:             rate.Sometimes{Interval: 2 * time.Second},
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(s domain.RunSession) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()

	mode := "analyze"
	if s.Mode == domain.ModeRelocate {
		mode = "move"
	}
	fmt.Fprintf(p.w, "[%s] camsort %s\n", p.startedAt.Format("15:04:05"), mode)
	fmt.Fprintf(p.w, "  source: %s\n", s.SourceDir)
	fmt.Fprintf(p.w, "  target: %s\n", s.TargetDir)
	fmt.Fprintf(p.w, "  camera: %s\n", s.CameraFilter)
	if s.Plan != nil {
		fmt.Fprintf(p.w, "  destination: %s\n", s.Plan.ResolvedTargetRoot)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnEvent(ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counters = ev.Counters
	switch ev.Kind {
	case domain.EventPaused:
		p.paused = true
	case domain.EventResumed:
		p.paused = false
	}

	fmt.Fprintln(p.w, formatEvent(ev))

	if ev.Kind == domain.EventFileClassified {
		p.counts.Do(func() {
			fmt.Fprintln(p.w, formatProgress(p.counters, time.Since(p.startedAt)))
		})
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFinish(rep domain.RunReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counters = rep.Summary
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
	fmt.Fprintf(p.w, "\n%s (%s)\n", formatProgress(p.counters, rep.FinishedAt.Sub(rep.StartedAt)), rep.Outcome)
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if !p.paused && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintln(p.w, formatProgress(p.counters, time.Since(p.startedAt)))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// formatEvent 把事件渲染成一行；错误与警告带上标记，便于 grep。
func formatEvent(ev domain.Event) string {
	switch ev.Tag {
	case domain.TagError:
		return "[ERR] " + ev.Message
	case domain.TagWarning:
		return "[WARN] " + ev.Message
	case domain.TagMatch:
		return "[MATCH] " + ev.Message
	case domain.TagSuccess:
		return "[OK] " + ev.Message
	case domain.TagModel:
		return "[MODEL] " + ev.Message
	default:
		return ev.Message
	}
}

func formatProgress(c domain.Counters, elapsed time.Duration) string {
	return fmt.Sprintf("进度: scanned=%d matched=%d moved=%d errors=%d elapsed=%s",
		c.Scanned, c.Matched, c.Moved, c.Errors, formatElapsed(elapsed),
	)
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
