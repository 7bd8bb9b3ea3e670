package run

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/camsort/internal/classify"
	"github.com/John-Robertt/camsort/internal/destination"
	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/infra/fsx"
	"github.com/John-Robertt/camsort/internal/scan"
)

// execute 是 run goroutine 的主体：唯一修改计数与文件系统的地方。
func (r *Run) execute() {
	defer r.stop()

	sess := r.Snapshot()
	r.obs.OnStart(sess)
	r.log.Info("run started", "mode", sess.Mode, "source", sess.SourceDir, "target", sess.TargetDir, "filter", sess.CameraFilter)

	outcome := r.prepare(sess)
	if outcome == "" {
		outcome = r.walk(sess)
	}
	r.finish(sess, outcome)
}

// prepare 发出 header；relocate 还要确认并预留目标根目录。返回非空 outcome 表示不再遍历。
func (r *Run) prepare(sess domain.RunSession) string {
	filter := strings.ToUpper(sess.CameraFilter)
	if sess.Mode == domain.ModeAnalyze {
		r.emit(domain.Event{Kind: domain.EventRunStarted, Tag: domain.TagHeader, Message: fmt.Sprintf("=== 查找相机照片：%s ===", filter)})
		return ""
	}

	plan := *sess.Plan
	r.emit(domain.Event{
		Kind:    domain.EventRunStarted,
		Tag:     domain.TagHeader,
		Dst:     plan.ResolvedTargetRoot,
		Message: fmt.Sprintf("=== 移动相机照片：%s -> %s ===", filter, plan.ResolvedTargetRoot),
	})

	ok, err := r.conf.ConfirmMove(r.ctx, sess.SourceDir, plan)
	if err != nil {
		if r.ctx.Err() != nil {
			r.Cancel()
			r.emit(domain.Event{Kind: domain.EventAborted, Tag: domain.TagWarning, Message: "确认前已取消，未移动任何文件"})
			return domain.OutcomeCancelled
		}
		return r.fatal(domain.StagePlan, domain.ErrCodeIOFailed, fmt.Errorf("确认失败：%w", err))
	}
	if !ok {
		r.log.Info("relocation declined")
		r.emit(domain.Event{Kind: domain.EventAborted, Tag: domain.TagWarning, Message: "操作者未确认，未移动任何文件"})
		return domain.OutcomeDeclined
	}

	if err := destination.Reserve(r.eng.fs, plan); err != nil {
		code := domain.ErrCodeIOFailed
		var pc *domain.PlanConflictError
		if errors.As(err, &pc) {
			code = domain.ErrCodeTargetConflict
		}
		return r.fatal(domain.StagePlan, code, err)
	}
	r.reserved = true
	return ""
}

// walk 遍历源目录并逐个处理文件；返回 outcome。
func (r *Run) walk(sess domain.RunSession) string {
	excludes := append([]string(nil), r.eng.excludeDirs...)
	if sess.Plan != nil {
		// 目标根目录若位于源目录之下，不能被再次遍历。
		excludes = append(excludes, sess.Plan.ResolvedTargetRoot)
	}

	err := scan.Walk(r.eng.fs, sess.SourceDir, excludes, func(f scan.File) error {
		if err := r.checkpoint(); err != nil {
			return err
		}
		r.processFile(sess, f)
		return nil
	}, func(rel string, err error) {
		r.fileError(rel, domain.StageWalk, domain.ErrCodeIOFailed, err, "错误："+rel+" - "+err.Error())
	})
	if err == nil {
		// 最后一个文件之后也是一个边界。
		err = r.checkpoint()
	}

	switch {
	case err == nil:
		return domain.OutcomeCompleted
	case errors.Is(err, errCancelled):
		c := r.counters()
		r.log.Warn("run cancelled", "scanned", c.Scanned, "moved", c.Moved)
		r.emit(domain.Event{
			Kind:    domain.EventAborted,
			Tag:     domain.TagWarning,
			Message: fmt.Sprintf("已取消：已扫描 %d，已移动 %d（不回滚）", c.Scanned, c.Moved),
		})
		return domain.OutcomeCancelled
	default:
		return r.fatal(domain.StageWalk, domain.ErrCodeIOFailed, fmt.Errorf("遍历失败：%w", err))
	}
}

func (r *Run) processFile(sess domain.RunSession, f scan.File) {
	if !classify.IsSupportedExtension(f.RelPath) {
		return
	}

	rec := domain.PhotoRecord{AbsPath: f.AbsPath, RelPath: f.RelPath}
	r.bump(func(c *domain.Counters) { c.Scanned++ })

	res := r.eng.extractor.Extract(f.AbsPath)
	if res.Found {
		rec.Model = res.Model
		rec.HasModel = true
		if len(res.Attempts) > 1 {
			r.log.Debug("model from fallback source", "path", rec.RelPath, "source", res.Source, "attempts", res.Trace())
		}
		if r.models.Record(rec.Model) {
			r.emit(domain.Event{Kind: domain.EventModelDiscovered, Tag: domain.TagModel, RelPath: rec.RelPath, Model: rec.Model, Message: "发现型号：" + rec.Model})
		}
	} else if res.IsUnexpected() {
		r.log.Warn("metadata read failed", "path", rec.RelPath, "err", res.Cause, "attempts", res.Trace())
	} else {
		r.log.Debug("model undetermined", "path", rec.RelPath, "cause", res.Cause, "attempts", res.Trace())
	}

	match := rec.HasModel && classify.Matches(rec.Model, sess.CameraFilter)
	ev := domain.Event{Kind: domain.EventFileClassified, Tag: domain.TagNormal, RelPath: rec.RelPath, Model: rec.Model, Match: match}
	switch {
	case match:
		r.bump(func(c *domain.Counters) { c.Matched++ })
		ev.Tag = domain.TagMatch
		ev.Message = rec.RelPath + " - " + rec.Model
	case rec.HasModel:
		ev.Message = rec.RelPath + " - " + rec.Model
	default:
		ev.Message = rec.RelPath + " - 型号未确定"
	}
	r.emit(ev)

	if match && sess.Mode == domain.ModeRelocate {
		r.move(sess, rec)
	}
}

func (r *Run) move(sess domain.RunSession, rec domain.PhotoRecord) {
	dst := filepath.Join(sess.Plan.ResolvedTargetRoot, rec.RelPath)

	if err := fsx.Move(r.eng.fs, rec.AbsPath, dst); err != nil {
		me := &domain.MoveError{RelPath: rec.RelPath, Dst: dst, Code: moveErrorCode(err), Err: err}
		r.log.Error("move failed", "path", me.RelPath, "dst", me.Dst, "code", me.Code, "err", me.Err)
		r.fileError(rec.RelPath, domain.StageMove, me.Code, err, "移动失败："+rec.RelPath+" - "+err.Error())
		return
	}

	r.bump(func(c *domain.Counters) { c.Moved++ })
	r.emit(domain.Event{Kind: domain.EventFileMoved, Tag: domain.TagSuccess, RelPath: rec.RelPath, Model: rec.Model, Match: true, Dst: dst, Message: "已移动：" + rec.RelPath})
}

func moveErrorCode(err error) string {
	switch {
	case fsx.IsTargetConflict(err):
		return domain.ErrCodeTargetConflict
	case fsx.IsCrossDevice(err):
		return domain.ErrCodeCrossDeviceCopy
	default:
		return domain.ErrCodeMoveFailed
	}
}

// fileError 记录单个条目的失败：计入 errors、写入 failures、发出 error 事件；遍历继续。
func (r *Run) fileError(rel, stage, code string, err error, msg string) {
	r.bump(func(c *domain.Counters) { c.Errors++ })
	r.failures = append(r.failures, domain.FileFailure{Path: rel, Stage: stage, ErrorCode: code, ErrorMsg: err.Error()})
	r.emit(domain.Event{Kind: domain.EventFileError, Tag: domain.TagError, RelPath: rel, Message: msg, Err: code})
}

// fatal 记录整次 run 的失败（不是单个文件）。
func (r *Run) fatal(stage, code string, err error) string {
	r.log.Error("run failed", "stage", stage, "err", err)
	r.bump(func(c *domain.Counters) { c.Errors++ })
	r.failures = append(r.failures, domain.FileFailure{Path: ".", Stage: stage, ErrorCode: code, ErrorMsg: err.Error()})
	r.emit(domain.Event{Kind: domain.EventFileError, Tag: domain.TagError, Message: "错误：" + err.Error(), Err: code})
	return domain.OutcomeFailed
}

func (r *Run) finish(sess domain.RunSession, outcome string) {
	if outcome == domain.OutcomeCompleted || outcome == domain.OutcomeFailed {
		r.setState(domain.StateCompleted)
	}
	if outcome == domain.OutcomeDeclined {
		r.setState(domain.StateCancelled)
	}

	c := r.counters()
	if outcome != domain.OutcomeDeclined {
		r.emit(domain.Event{Kind: domain.EventSummary, Tag: summaryTag(c), Message: summaryMessage(sess.Mode, c)})
	}

	// 本次一个文件都没移动：删除预留的空目标根目录。
	if r.reserved && c.Moved == 0 {
		if err := destination.ReleaseIfEmpty(r.eng.fs, *sess.Plan); err != nil {
			r.log.Warn("remove empty destination failed", "path", sess.Plan.ResolvedTargetRoot, "err", err)
		}
	}

	rep := domain.RunReport{
		RunID:      r.id,
		Mode:       sess.Mode,
		Source:     sess.SourceDir,
		Target:     sess.TargetDir,
		Filter:     sess.CameraFilter,
		Outcome:    outcome,
		StartedAt:  sess.StartedAt,
		FinishedAt: time.Now().UTC(),
		Summary:    c,
		Models:     r.models.List(),
		Failures:   r.failures,
	}
	if sess.Plan != nil {
		rep.DestinationRoot = sess.Plan.ResolvedTargetRoot
	}
	rep.Finalize()
	r.report = rep

	r.log.Info("run finished", "outcome", outcome, "scanned", c.Scanned, "matched", c.Matched, "moved", c.Moved, "errors", c.Errors, "models", r.models.Len())

	r.eng.release(r)
	r.obs.OnFinish(rep)
	close(r.done)
}

func summaryTag(c domain.Counters) domain.Tag {
	if c.Errors > 0 {
		return domain.TagError
	}
	return domain.TagHeader
}

func summaryMessage(mode domain.Mode, c domain.Counters) string {
	if mode == domain.ModeRelocate {
		return fmt.Sprintf("=== 移动结果 === 已移动：%d 错误：%d", c.Moved, c.Errors)
	}
	return fmt.Sprintf("=== 结果 === 照片总数：%d 匹配：%d", c.Scanned, c.Matched)
}
