package run

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/metadata"
	"github.com/John-Robertt/camsort/internal/metadata/metadatatest"
	"github.com/spf13/afero"
)

type recorder struct {
	mu sync.Mutex

	starts   int
	finishes int
	session  domain.RunSession
	events   []domain.Event
	report   domain.RunReport

	ch chan domain.Event

	// onEvent 在 run goroutine 上同步调用（可用于在移动前制造冲突等）。
	onEvent func(ev domain.Event)
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan domain.Event, 1024)}
}

func (r *recorder) OnStart(s domain.RunSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	r.session = s
}

func (r *recorder) OnEvent(ev domain.Event) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.ch <- ev:
	default:
	}
}

func (r *recorder) OnFinish(rep domain.RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishes++
	r.report = rep
}

func (r *recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) kinds() []domain.EventKind {
	var out []domain.EventKind
	for _, ev := range r.Events() {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) waitKind(t *testing.T, kind domain.EventKind) domain.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("等待事件 %s 超时", kind)
		}
	}
}

// gateExtractor 让测试逐个放行文件，从而在确定的文件边界上暂停/取消。
type gateExtractor struct {
	inner   Extractor
	entered chan string
	release chan struct{}
	open    atomic.Bool
	calls   atomic.Int32
}

func newGate(inner Extractor) *gateExtractor {
	return &gateExtractor{inner: inner, entered: make(chan string), release: make(chan struct{})}
}

func (g *gateExtractor) Extract(p string) metadata.Result {
	g.calls.Add(1)
	if !g.open.Load() {
		g.entered <- p
		<-g.release
	}
	return g.inner.Extract(p)
}

func (g *gateExtractor) next(t *testing.T) string {
	t.Helper()
	select {
	case p := <-g.entered:
		return p
	case <-time.After(5 * time.Second):
		t.Fatalf("等待提取超时")
		return ""
	}
}

func (g *gateExtractor) step() { g.release <- struct{}{} }

// newFS 创建内存文件系统：源目录 /src、目标目录 /T，以及给定的文件。
func newFS(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, d := range []string{"/src", "/T"} {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
	}
	for p, data := range files {
		if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
		if err := afero.WriteFile(fs, p, data, 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}
	return fs
}

func photo(model string) []byte { return metadatatest.JPEG(model) }

func exists(fs afero.Fs, p string) bool {
	ok, _ := afero.Exists(fs, p)
	return ok
}

func waitDone(t *testing.T, r *Run) domain.RunReport {
	t.Helper()
	select {
	case <-r.Done():
		return r.Wait()
	case <-time.After(5 * time.Second):
		t.Fatalf("等待 run 结束超时")
		return domain.RunReport{}
	}
}
