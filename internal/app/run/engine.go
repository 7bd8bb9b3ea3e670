package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/camsort/internal/destination"
	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/logging"
	"github.com/John-Robertt/camsort/internal/metadata"
	"github.com/John-Robertt/camsort/internal/registry"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Extractor 是引擎对元数据提取的唯一依赖。
type Extractor interface {
	Extract(path string) metadata.Result
}

// Options 配置一个 Engine；零值字段使用默认值。
type Options struct {
	// Fs 默认是真实文件系统（afero.NewOsFs）。
	Fs afero.Fs
	// Extractor 默认按 exif -> xmp 顺序提取。
	Extractor Extractor
	// Logger 默认丢弃所有日志。
	Logger *log.Logger
	// ExcludeDirs 相对源目录（或绝对路径），遍历时跳过。
	ExcludeDirs []string
}

// Engine 是分类与搬迁引擎。同一时刻最多只有一个 run 在执行。
type Engine struct {
	fs          afero.Fs
	extractor   Extractor
	log         *log.Logger
	excludeDirs []string

	mu     sync.Mutex
	active *Run
}

func New(opts Options) *Engine {
	e := &Engine{
		fs:          opts.Fs,
		extractor:   opts.Extractor,
		log:         opts.Logger,
		excludeDirs: append([]string(nil), opts.ExcludeDirs...),
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.extractor == nil {
		e.extractor = metadata.NewExtractor(e.fs)
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	return e
}

// Request 描述一次 run 的输入。
type Request struct {
	Mode   domain.Mode
	Source string
	Target string
	Filter string
}

// Start 校验输入并在后台 goroutine 启动一次 run。
//
// 校验顺序：过滤词非空 -> 引擎空闲 -> 源/目标目录存在；任何一步失败都不会开始遍历。
// relocate 的 DestinationPlan 在这里同步算出（Run.Plan 可立即读取），但确认与移动发生在后台。
func (e *Engine) Start(ctx context.Context, req Request, obs Observer, conf Confirmer) (*Run, error) {
	filter := strings.TrimSpace(req.Filter)
	if filter == "" {
		return nil, domain.ErrEmptyFilter
	}
	switch req.Mode {
	case domain.ModeAnalyze:
	case domain.ModeRelocate:
		if conf == nil {
			return nil, errNoConfirmer
		}
	default:
		return nil, fmt.Errorf("未知模式：%q", req.Mode)
	}
	if obs == nil {
		obs = nopObserver{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return nil, &domain.BusyError{RunID: e.active.id}
	}

	source := filepath.Clean(req.Source)
	target := filepath.Clean(req.Target)
	if err := e.checkDir("source", source); err != nil {
		return nil, err
	}
	if err := e.checkDir("target", target); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	sess := domain.RunSession{
		ID:           id,
		Mode:         req.Mode,
		SourceDir:    source,
		TargetDir:    target,
		CameraFilter: filter,
		State:        domain.StateRunning,
		StartedAt:    time.Now().UTC(),
	}
	if req.Mode == domain.ModeRelocate {
		plan, err := destination.Plan(e.fs, target, filter)
		if err != nil {
			return nil, fmt.Errorf("解析目标目录失败：%w", err)
		}
		sess.Plan = &plan
	}

	runCtx, stop := context.WithCancel(ctx)
	r := &Run{
		eng:     e,
		id:      id,
		obs:     obs,
		conf:    conf,
		log:     e.log.With("run_id", id),
		ctx:     runCtx,
		stop:    stop,
		session: sess,
		models:  registry.New(),
		done:    make(chan struct{}),
	}
	e.active = r

	go r.execute()
	return r, nil
}

// Analyze 启动一次只读分析并等待结束。
func (e *Engine) Analyze(ctx context.Context, source, target, filter string, obs Observer) (domain.RunReport, error) {
	r, err := e.Start(ctx, Request{Mode: domain.ModeAnalyze, Source: source, Target: target, Filter: filter}, obs, nil)
	if err != nil {
		return domain.RunReport{}, err
	}
	return r.Wait(), nil
}

// Relocate 启动一次搬迁并等待结束。
func (e *Engine) Relocate(ctx context.Context, source, target, filter string, obs Observer, conf Confirmer) (domain.RunReport, error) {
	r, err := e.Start(ctx, Request{Mode: domain.ModeRelocate, Source: source, Target: target, Filter: filter}, obs, conf)
	if err != nil {
		return domain.RunReport{}, err
	}
	return r.Wait(), nil
}

// busy 表示当前是否有 run 在执行。
func (e *Engine) busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

func (e *Engine) checkDir(role, path string) error {
	fi, err := e.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.InvalidPathError{Role: role, Path: path}
		}
		return &domain.InvalidPathError{Role: role, Path: path, Err: err}
	}
	if !fi.IsDir() {
		return &domain.InvalidPathError{Role: role, Path: path, Err: errors.New("不是目录")}
	}
	return nil
}

func (e *Engine) release(r *Run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == r {
		e.active = nil
	}
}
