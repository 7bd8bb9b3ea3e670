package run

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/metadata"
)

func startGated(t *testing.T, ctx context.Context, mode domain.Mode, files map[string][]byte) (*Run, *gateExtractor, *recorder, *Engine) {
	t.Helper()
	fs := newFS(t, files)
	gate := newGate(metadata.NewExtractor(fs))
	e := New(Options{Fs: fs, Extractor: gate})
	rec := newRecorder()

	var conf Confirmer
	if mode == domain.ModeRelocate {
		conf = AutoConfirm{}
	}
	r, err := e.Start(ctx, Request{Mode: mode, Source: "/src", Target: "/T", Filter: "sony"}, rec, conf)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return r, gate, rec, e
}

var threeSony = map[string][]byte{
	"/src/a.jpg": photo("Sony A7"),
	"/src/b.jpg": photo("Sony A7"),
	"/src/c.jpg": photo("Sony A7"),
}

func TestRun_PauseBlocksAtFileBoundary(t *testing.T) {
	r, gate, rec, _ := startGated(t, context.Background(), domain.ModeAnalyze, threeSony)

	gate.next(t) // a.jpg 正在提取
	if !r.Pause() {
		t.Fatalf("running 状态应可暂停")
	}
	if r.Pause() {
		t.Fatalf("重复暂停应返回 false")
	}
	gate.step()

	rec.waitKind(t, domain.EventPaused)
	s := r.Snapshot()
	if s.State != domain.StatePaused || s.Counters.Scanned != 1 {
		t.Fatalf("暂停后快照不符合预期：%+v", s)
	}

	select {
	case p := <-gate.entered:
		t.Fatalf("暂停期间不应继续处理：%s", p)
	case <-time.After(50 * time.Millisecond):
	}

	if !r.Resume() {
		t.Fatalf("paused 状态应可恢复")
	}
	gate.next(t)
	gate.step()
	gate.next(t)
	gate.step()

	rep := waitDone(t, r)
	if rep.Outcome != domain.OutcomeCompleted || rep.Summary.Scanned != 3 {
		t.Fatalf("恢复后应正常完成：%+v", rep)
	}
	if r.Snapshot().State != domain.StateCompleted {
		t.Fatalf("完成后状态应为 completed")
	}

	want := []domain.EventKind{
		domain.EventRunStarted,
		domain.EventModelDiscovered,
		domain.EventFileClassified,
		domain.EventPaused,
		domain.EventResumed,
		domain.EventFileClassified,
		domain.EventFileClassified,
		domain.EventSummary,
	}
	if got := rec.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("事件序列不符合预期：\n got=%v\nwant=%v", got, want)
	}
	for _, ev := range rec.Events() {
		if (ev.Kind == domain.EventPaused || ev.Kind == domain.EventResumed) && ev.Tag != domain.TagWarning {
			t.Fatalf("暂停/恢复事件应为 warning：%+v", ev)
		}
	}
}

func TestRun_CancelStopsAtNextBoundaryWithoutRollback(t *testing.T) {
	r, gate, rec, e := startGated(t, context.Background(), domain.ModeRelocate, threeSony)

	gate.next(t) // a.jpg 正在处理
	if !r.Cancel() {
		t.Fatalf("running 状态应可取消")
	}
	gate.step()

	rep := waitDone(t, r)
	if rep.Outcome != domain.OutcomeCancelled || rep.OK() {
		t.Fatalf("期望 cancelled，实际 %+v", rep)
	}
	// 正在处理的文件照常完成，不回滚；后续文件不再处理。
	if rep.Summary != (domain.Counters{Scanned: 1, Matched: 1, Moved: 1}) {
		t.Fatalf("计数不符合预期：%+v", rep.Summary)
	}
	if gate.calls.Load() != 1 {
		t.Fatalf("取消后不应再提取：calls=%d", gate.calls.Load())
	}
	if !exists(e.fs, "/T/sony/a.jpg") || !exists(e.fs, "/src/b.jpg") || !exists(e.fs, "/src/c.jpg") {
		t.Fatalf("文件状态不符合预期")
	}

	kinds := rec.kinds()
	if kinds[len(kinds)-2] != domain.EventAborted || kinds[len(kinds)-1] != domain.EventSummary {
		t.Fatalf("取消后应以 aborted + summary 结束：%v", kinds)
	}
	if r.Snapshot().State != domain.StateCancelled {
		t.Fatalf("取消后状态应为 cancelled")
	}
	if r.Cancel() || r.Pause() || r.Resume() {
		t.Fatalf("终态之后的控制操作应返回 false")
	}
}

func TestRun_CancelWhilePaused(t *testing.T) {
	r, gate, rec, _ := startGated(t, context.Background(), domain.ModeAnalyze, threeSony)

	gate.next(t)
	r.Pause()
	gate.step()
	rec.waitKind(t, domain.EventPaused)

	r.Cancel()
	rep := waitDone(t, r)
	if rep.Outcome != domain.OutcomeCancelled || rep.Summary.Scanned != 1 {
		t.Fatalf("期望在暂停处取消：%+v", rep)
	}
}

func TestRun_ContextCancelWhilePaused(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, gate, rec, _ := startGated(t, ctx, domain.ModeAnalyze, threeSony)

	gate.next(t)
	r.Pause()
	gate.step()
	rec.waitKind(t, domain.EventPaused)

	cancel()
	rep := waitDone(t, r)
	if rep.Outcome != domain.OutcomeCancelled {
		t.Fatalf("ctx 取消应终止 run：%+v", rep)
	}
	if r.Snapshot().State != domain.StateCancelled {
		t.Fatalf("ctx 取消后状态应为 cancelled")
	}
}

func TestRun_TogglePause(t *testing.T) {
	r, gate, rec, _ := startGated(t, context.Background(), domain.ModeAnalyze, threeSony)

	gate.next(t)
	if st := r.TogglePause(); st != domain.StatePaused {
		t.Fatalf("第一次切换应暂停，实际 %s", st)
	}
	gate.step()
	rec.waitKind(t, domain.EventPaused)

	gate.open.Store(true)
	if st := r.TogglePause(); st != domain.StateRunning {
		t.Fatalf("第二次切换应恢复，实际 %s", st)
	}
	rep := waitDone(t, r)
	if rep.Outcome != domain.OutcomeCompleted {
		t.Fatalf("期望 completed：%+v", rep)
	}
}

func TestRelocate_CancelDuringConfirm(t *testing.T) {
	fs := newFS(t, threeSony)
	e := New(Options{Fs: fs})

	asked := make(chan struct{})
	conf := ConfirmFunc(func(ctx context.Context, _ string, _ domain.DestinationPlan) (bool, error) {
		close(asked)
		<-ctx.Done()
		return false, ctx.Err()
	})
	r, err := e.Start(context.Background(), Request{Mode: domain.ModeRelocate, Source: "/src", Target: "/T", Filter: "sony"}, nil, conf)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	<-asked
	r.Cancel()
	rep := waitDone(t, r)
	if rep.Outcome != domain.OutcomeCancelled || rep.Summary != (domain.Counters{}) {
		t.Fatalf("确认期间取消不应移动任何文件：%+v", rep)
	}
	if exists(fs, "/T/sony") {
		t.Fatalf("未确认时不应创建目标根目录")
	}
}
