package main

import (
	"context"
	"io"

	"github.com/John-Robertt/camsort/internal/app/run"
	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/John-Robertt/camsort/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// tuiError 表示界面本身失败（run 可能已经开始，报告仍然有效）。
type tuiError struct {
	Err error
}

func (e *tuiError) Error() string { return "tui: " + e.Err.Error() }

func (e *tuiError) Unwrap() error { return e.Err }

// runTUI 在 Bubble Tea 界面里执行一次 run。界面画在 stderr 上；run 结束后按 q 退出。
func runTUI(ctx context.Context, eng *run.Engine, req run.Request, yes bool, stderr io.Writer) (domain.RunReport, error) {
	m := ui.New(ui.Options{
		Mode:   req.Mode,
		Source: req.Source,
		Target: req.Target,
		Filter: req.Filter,
	})
	p := tea.NewProgram(m, tea.WithOutput(stderr), tea.WithContext(ctx))

	var conf run.Confirmer
	if req.Mode == domain.ModeRelocate {
		conf = run.AutoConfirm{}
		if !yes {
			conf = ui.NewConfirmer(p)
		}
	}

	r, err := eng.Start(ctx, req, ui.NewObserver(p), conf)
	if err != nil {
		return domain.RunReport{}, err
	}

	var (
		g   errgroup.Group
		rep domain.RunReport
	)
	g.Go(func() error {
		_, err := p.Run()
		// 界面退出（或启动失败）后 run 不能继续无人看管地执行。
		r.Cancel()
		if err != nil {
			return &tuiError{Err: err}
		}
		return nil
	})
	g.Go(func() error {
		p.Send(ui.AttachMsg{Ctrl: r})
		rep = r.Wait()
		return nil
	})

	err = g.Wait()
	return rep, err
}
