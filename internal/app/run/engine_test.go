package run

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/metadata"
	"github.com/John-Robertt/camsort/internal/metadata/metadatatest"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

func TestAnalyze_SonyCanonScenario(t *testing.T) {
	fs := newFS(t, map[string][]byte{
		"/src/a.jpg":     photo("Sony A7"),
		"/src/b.jpg":     photo("Canon EOS"),
		"/src/notes.txt": []byte("hello"),
	})
	e := New(Options{Fs: fs})
	rec := newRecorder()

	rep, err := e.Analyze(context.Background(), "/src", "/T", "sony", rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	want := domain.Counters{Scanned: 2, Matched: 1}
	if rep.Summary != want {
		t.Fatalf("计数不符合预期：%+v", rep.Summary)
	}
	if !reflect.DeepEqual(rep.Models, []string{"Sony A7", "Canon EOS"}) {
		t.Fatalf("型号列表不符合预期：%v", rep.Models)
	}
	if rep.Outcome != domain.OutcomeCompleted || !rep.OK() {
		t.Fatalf("期望 completed，实际 %q", rep.Outcome)
	}

	wantKinds := []domain.EventKind{
		domain.EventRunStarted,
		domain.EventModelDiscovered,
		domain.EventFileClassified,
		domain.EventModelDiscovered,
		domain.EventFileClassified,
		domain.EventSummary,
	}
	if got := rec.kinds(); !reflect.DeepEqual(got, wantKinds) {
		t.Fatalf("事件序列不符合预期：\n got=%v\nwant=%v", got, wantKinds)
	}

	evs := rec.Events()
	if evs[2].Tag != domain.TagMatch || evs[2].RelPath != "a.jpg" || !evs[2].Match {
		t.Fatalf("a.jpg 应为 match：%+v", evs[2])
	}
	if evs[4].Tag != domain.TagNormal || evs[4].RelPath != "b.jpg" || evs[4].Match {
		t.Fatalf("b.jpg 应为 normal：%+v", evs[4])
	}
	for i, ev := range evs {
		if ev.Seq != i+1 {
			t.Fatalf("Seq 应连续递增：第 %d 个事件 Seq=%d", i, ev.Seq)
		}
	}

	// analyze 只读。
	if !exists(fs, "/src/a.jpg") || !exists(fs, "/src/b.jpg") {
		t.Fatalf("analyze 不应移动任何文件")
	}
	if exists(fs, "/T/sony") {
		t.Fatalf("analyze 不应创建目标目录")
	}
	if rec.starts != 1 || rec.finishes != 1 {
		t.Fatalf("OnStart/OnFinish 应各调用一次：%d/%d", rec.starts, rec.finishes)
	}
}

func TestAnalyze_CountersMonotonic(t *testing.T) {
	fs := newFS(t, map[string][]byte{
		"/src/1.jpg":   photo("Sony A7"),
		"/src/2.jpg":   photo("Kodak"),
		"/src/3.jpg":   photo("Sony A7"),
		"/src/4.jpg":   metadatatest.JPEGNoExif(),
		"/src/x/5.nef": metadatatest.TIFF("NIKON D750"),
	})
	rec := newRecorder()
	rep, err := New(Options{Fs: fs}).Analyze(context.Background(), "/src", "/T", "SONY", rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	var prev domain.Counters
	for _, ev := range rec.Events() {
		c := ev.Counters
		if c.Scanned < prev.Scanned || c.Matched < prev.Matched || c.Moved < prev.Moved || c.Errors < prev.Errors {
			t.Fatalf("计数不应回退：%+v -> %+v", prev, c)
		}
		prev = c
	}
	if rep.Summary.Scanned != 5 || rep.Summary.Matched != 2 {
		t.Fatalf("计数不符合预期：%+v", rep.Summary)
	}
	if !reflect.DeepEqual(rep.Models, []string{"Sony A7", "Kodak", "NIKON D750"}) {
		t.Fatalf("型号应去重并保持首次出现顺序：%v", rep.Models)
	}
}

func TestAnalyze_UndeterminedModelIsNormal(t *testing.T) {
	fs := newFS(t, map[string][]byte{
		"/src/blank.jpg": metadatatest.JPEGNoExif(),
	})
	rec := newRecorder()
	rep, err := New(Options{Fs: fs}).Analyze(context.Background(), "/src", "/T", "sony", rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rep.Summary != (domain.Counters{Scanned: 1}) {
		t.Fatalf("计数不符合预期：%+v", rep.Summary)
	}
	if len(rep.Failures) != 0 {
		t.Fatalf("型号未确定不是错误：%+v", rep.Failures)
	}

	var found bool
	for _, ev := range rec.Events() {
		if ev.Kind == domain.EventFileClassified {
			found = true
			if ev.Tag != domain.TagNormal || ev.Model != "" || !strings.Contains(ev.Message, "型号未确定") {
				t.Fatalf("未确定型号的事件不符合预期：%+v", ev)
			}
		}
	}
	if !found {
		t.Fatalf("缺少分类事件")
	}
}

type countingExtractor struct {
	paths []string
	model string
}

func (c *countingExtractor) Extract(p string) metadata.Result {
	c.paths = append(c.paths, p)
	return metadata.Result{Model: c.model, Found: true, Source: "stub"}
}

func TestRelocate_UnsupportedExtensionsNeverTouched(t *testing.T) {
	fs := newFS(t, map[string][]byte{
		"/src/a.jpg":     []byte("x"),
		"/src/clip.mp4":  []byte("x"),
		"/src/notes.txt": []byte("x"),
		"/src/a.xmp":     []byte("x"),
	})
	ex := &countingExtractor{model: "Sony A7"}
	e := New(Options{Fs: fs, Extractor: ex})

	rep, err := e.Relocate(context.Background(), "/src", "/T", "sony", nil, AutoConfirm{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(ex.paths, []string{filepath.Join("/src", "a.jpg")}) {
		t.Fatalf("只应提取受支持的文件：%v", ex.paths)
	}
	for _, p := range []string{"/src/clip.mp4", "/src/notes.txt", "/src/a.xmp"} {
		if !exists(fs, p) {
			t.Fatalf("不受支持的文件不应被移动：%s", p)
		}
	}
	if rep.Summary != (domain.Counters{Scanned: 1, Matched: 1, Moved: 1}) {
		t.Fatalf("计数不符合预期：%+v", rep.Summary)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	fs := newFS(t, map[string][]byte{
		"/src/a.jpg":      photo("Sony A7"),
		"/src/2023/b.jpg": photo("Canon EOS"),
		"/src/2023/c.png": []byte("png without exif"),
	})
	e := New(Options{Fs: fs})

	rec1, rec2 := newRecorder(), newRecorder()
	rep1, err := e.Analyze(context.Background(), "/src", "/T", "canon", rec1)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	rep2, err := e.Analyze(context.Background(), "/src", "/T", "canon", rec2)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if !reflect.DeepEqual(rec1.Events(), rec2.Events()) {
		t.Fatalf("两次 analyze 的事件序列应完全相同")
	}
	if rep1.Summary != rep2.Summary || !reflect.DeepEqual(rep1.Models, rep2.Models) {
		t.Fatalf("两次 analyze 的结果应相同：%+v vs %+v", rep1, rep2)
	}
	if rep1.RunID == rep2.RunID || rep1.RunID == "" {
		t.Fatalf("每次 run 应有独立的 run id")
	}
}

func TestStart_Validation(t *testing.T) {
	fs := newFS(t, nil)
	_ = afero.WriteFile(fs, "/file.jpg", []byte("x"), 0o644)
	e := New(Options{Fs: fs})
	ctx := context.Background()

	if _, err := e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: "/src", Target: "/T", Filter: "  "}, nil, nil); !errors.Is(err, domain.ErrEmptyFilter) {
		t.Fatalf("期望 ErrEmptyFilter，实际 %v", err)
	}

	cases := []struct {
		source, target, role string
	}{
		{"/missing", "/T", "source"},
		{"/src", "/missing", "target"},
		{"/file.jpg", "/T", "source"},
	}
	for _, c := range cases {
		rec := newRecorder()
		_, err := e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: c.source, Target: c.target, Filter: "sony"}, rec, nil)
		var ip *domain.InvalidPathError
		if !errors.As(err, &ip) || ip.Role != c.role {
			t.Fatalf("(%s,%s)：期望 InvalidPathError(%s)，实际 %v", c.source, c.target, c.role, err)
		}
		if rec.starts != 0 || len(rec.Events()) != 0 {
			t.Fatalf("校验失败时不应开始遍历")
		}
	}
	if e.busy() {
		t.Fatalf("校验失败后引擎应保持空闲")
	}

	if _, err := e.Start(ctx, Request{Mode: domain.ModeRelocate, Source: "/src", Target: "/T", Filter: "sony"}, nil, nil); !errors.Is(err, errNoConfirmer) {
		t.Fatalf("relocate 缺少 Confirmer 时应报错，实际 %v", err)
	}
}

func TestStart_BusyRejectsSecondRun(t *testing.T) {
	fs := newFS(t, map[string][]byte{"/src/a.jpg": photo("Sony A7")})
	gate := newGate(metadata.NewExtractor(fs))
	e := New(Options{Fs: fs, Extractor: gate})
	ctx := context.Background()

	first, err := e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: "/src", Target: "/T", Filter: "sony"}, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	gate.next(t)

	_, err = e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: "/src", Target: "/T", Filter: "sony"}, nil, nil)
	var be *domain.BusyError
	if !errors.As(err, &be) || be.RunID != first.ID() {
		t.Fatalf("期望 BusyError(%s)，实际 %v", first.ID(), err)
	}

	// 校验顺序：过滤词先于忙碌，忙碌先于路径。
	if _, err := e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: "/src", Target: "/T", Filter: ""}, nil, nil); !errors.Is(err, domain.ErrEmptyFilter) {
		t.Fatalf("期望 ErrEmptyFilter，实际 %v", err)
	}
	if _, err := e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: "/missing", Target: "/T", Filter: "sony"}, nil, nil); !domain.IsBusy(err) {
		t.Fatalf("期望 BusyError，实际 %v", err)
	}

	gate.step()
	waitDone(t, first)
	if e.busy() {
		t.Fatalf("run 结束后引擎应空闲")
	}

	gate.open.Store(true)
	if _, err := e.Analyze(ctx, "/src", "/T", "sony", nil); err != nil {
		t.Fatalf("空闲后应可再次启动：%v", err)
	}
}

type lockedDirFs struct {
	afero.Fs
	locked string
}

func (f *lockedDirFs) Open(name string) (afero.File, error) {
	if name == f.locked {
		return nil, &lockedErr{name}
	}
	return f.Fs.Open(name)
}

type lockedErr struct{ path string }

func (e *lockedErr) Error() string { return "permission denied: " + e.path }

func TestAnalyze_WalkErrorsDoNotAbort(t *testing.T) {
	base := newFS(t, map[string][]byte{
		"/src/a.jpg":        photo("Sony A7"),
		"/src/locked/b.jpg": photo("Sony A7"),
		"/src/z.jpg":        photo("Sony A7"),
	})
	fs := &lockedDirFs{Fs: base, locked: filepath.Join("/src", "locked")}

	rec := newRecorder()
	rep, err := New(Options{Fs: fs}).Analyze(context.Background(), "/src", "/T", "sony", rec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if rep.Summary != (domain.Counters{Scanned: 2, Matched: 2, Errors: 1}) {
		t.Fatalf("计数不符合预期：%+v", rep.Summary)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].Path != "locked" || rep.Failures[0].Stage != domain.StageWalk {
		t.Fatalf("failures 不符合预期：%+v", rep.Failures)
	}
	if rep.Outcome != domain.OutcomeCompleted || rep.OK() {
		t.Fatalf("有错误的完成 run 不应 OK：%+v", rep)
	}

	var sawError bool
	for _, ev := range rec.Events() {
		if ev.Kind == domain.EventFileError && ev.RelPath == "locked" && ev.Tag == domain.TagError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("缺少带相对路径的 error 事件")
	}
}

func TestAnalyze_SymlinkedSource(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	target := filepath.Join(base, "T")
	for _, d := range []string{filepath.Join(real, "2023"), target} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(real, "2023", "a.jpg"), photo("Sony A7"), 0o644); err != nil {
		t.Fatalf("写入照片失败：%v", err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("当前平台无法创建符号链接：%v", err)
	}

	eng := New(Options{Fs: afero.NewOsFs()})
	direct, err := eng.Analyze(context.Background(), real, target, "sony", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	viaLink, err := eng.Analyze(context.Background(), link, target, "sony", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if viaLink.Summary != direct.Summary || viaLink.Summary.Matched != 1 {
		t.Fatalf("经由符号链接的源目录应与真实目录结果一致：link=%+v real=%+v", viaLink.Summary, direct.Summary)
	}
}

func TestAnalyze_LogsExtractionAttempts(t *testing.T) {
	fs := newFS(t, map[string][]byte{
		"/src/a.jpg": metadatatest.JPEGNoExif(),
	})
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	if _, err := New(Options{Fs: fs, Logger: logger}).Analyze(context.Background(), "/src", "/T", "sony", nil); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "model undetermined") || !strings.Contains(out, "attempts=") {
		t.Fatalf("诊断日志应包含提取尝试链路：%s", out)
	}
	if !strings.Contains(out, "exif: ") || !strings.Contains(out, "xmp: ") {
		t.Fatalf("尝试链路应列出每个来源：%s", out)
	}
}
