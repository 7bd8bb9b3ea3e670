package destination

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/spf13/afero"
)

// 后缀探测上限：超过后认为目标目录异常，直接报错而不是无限循环。
const maxSuffix = 10000

// Resolve 计算本次 relocate 的目标根目录：targetRoot/cameraName，若已存在则依次尝试 _1、_2 ……
//
// 返回的路径在解析时刻一定不存在。只做 Stat，不创建任何目录。
func Resolve(fs afero.Fs, targetRoot, cameraName string) (string, error) {
	base := filepath.Join(filepath.Clean(targetRoot), cameraName)

	for n := 0; n <= maxSuffix; n++ {
		cand := base
		if n > 0 {
			cand = fmt.Sprintf("%s_%d", base, n)
		}
		_, err := fs.Stat(cand)
		if err == nil {
			continue
		}
		if os.IsNotExist(err) {
			return cand, nil
		}
		return "", err
	}
	return "", fmt.Errorf("无法为 %q 找到可用的目标目录（已尝试 %d 个后缀）", base, maxSuffix)
}

// Plan 用过滤词生成 DestinationPlan（过滤词先经过 SanitizeName）。
func Plan(fs afero.Fs, targetRoot, filter string) (domain.DestinationPlan, error) {
	name := SanitizeName(filter)
	root, err := Resolve(fs, targetRoot, name)
	if err != nil {
		return domain.DestinationPlan{}, err
	}
	return domain.DestinationPlan{CameraName: name, ResolvedTargetRoot: root}, nil
}

// Reserve 在确认后立即创建目标根目录（非递归 Mkdir）。
//
// 若目录在 Resolve 与 Reserve 之间被外部创建，返回 *domain.PlanConflictError。
func Reserve(fs afero.Fs, plan domain.DestinationPlan) error {
	err := fs.Mkdir(plan.ResolvedTargetRoot, 0o755)
	if err == nil {
		return nil
	}
	if os.IsExist(err) || errors.Is(err, os.ErrExist) {
		return &domain.PlanConflictError{Path: plan.ResolvedTargetRoot}
	}
	return err
}

// ReleaseIfEmpty 删除空的目标根目录（本次 run 一个文件都没移动时调用）。
// 目录非空或已不存在时什么也不做。
func ReleaseIfEmpty(fs afero.Fs, plan domain.DestinationPlan) error {
	ok, err := afero.DirExists(fs, plan.ResolvedTargetRoot)
	if err != nil || !ok {
		return err
	}
	empty, err := afero.IsEmpty(fs, plan.ResolvedTargetRoot)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	return fs.Remove(plan.ResolvedTargetRoot)
}

// SanitizeName 把过滤词变成安全的单级目录名：
// 路径分隔符与保留字符替换为 '_'，去掉首尾空白与 '.'，结果为空时使用 "unknown"。
func SanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .\t")
	if out == "" {
		return "unknown"
	}
	return out
}
