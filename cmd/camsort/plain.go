package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/John-Robertt/camsort/internal/app/run"
	"github.com/John-Robertt/camsort/internal/domain"
)

// runPlain 以逐行输出执行一次 run；SIGINT/SIGTERM 在下一个文件边界取消（已移动的文件不回滚）。
func runPlain(ctx context.Context, eng *run.Engine, req run.Request, yes bool, stdin io.Reader, stderr io.Writer) (domain.RunReport, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var conf run.Confirmer
	if req.Mode == domain.ModeRelocate {
		conf = run.AutoConfirm{}
		if !yes {
			conf = &promptConfirmer{in: stdin, out: stderr}
		}
	}

	r, err := eng.Start(ctx, req, newProgressUI(stderr), conf)
	if err != nil {
		return domain.RunReport{}, err
	}
	return r.Wait(), nil
}

// promptConfirmer 在终端上询问是否执行移动；读到 EOF 视为拒绝。
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (c *promptConfirmer) ConfirmMove(ctx context.Context, source string, plan domain.DestinationPlan) (bool, error) {
	fmt.Fprintf(c.out, "将把相机 %q 的照片\n  从：%s\n  移动到：%s\n确认？[y/N] ", plan.CameraName, source, plan.ResolvedTargetRoot)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.in).ReadString('\n')
		answer <- line
	}()

	select {
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return false, ctx.Err()
	}
}
