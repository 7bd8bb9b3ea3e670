//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// crossDevice 判断 rename 是否因为跨文件系统而失败（*os.LinkError 会被 errors.Is 展开）。
func crossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
