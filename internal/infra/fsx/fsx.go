package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// 通过可替换的函数指针，让测试能稳定模拟 EXDEV 等错误。
var renameFunc = func(fs afero.Fs, oldpath, newpath string) error {
	return fs.Rename(oldpath, newpath)
}

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
// 上层可把它映射为 error_code=target_conflict。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// TargetExistsError 表示目标文件已存在；移动永不覆盖已有文件。
type TargetExistsError struct {
	Path string
}

func (e *TargetExistsError) Error() string {
	return fmt.Sprintf("目标文件已存在：%q（不会覆盖）", e.Path)
}

func (e *TargetExistsError) Unwrap() error { return os.ErrExist }

// IsTargetConflict 判断 err 是否为目标已存在或类型冲突。
func IsTargetConflict(err error) bool {
	var e *TargetExistsError
	return errors.As(err, &e) || IsPathTypeConflict(err)
}

// CrossDeviceError 表示跨盘（EXDEV）rename 失败后，copy + remove 回退也失败。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘移动失败（EXDEV，copy 回退失败）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice 判断 err 是否为跨盘回退失败。
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Move 把 src 移动到 dst，不覆盖已存在的 dst。
//
// - dst 的父目录不存在时自动创建（MkdirAll）
// - 同盘：rename
// - 跨盘（EXDEV）：copy + fsync + 保留 mtime + 删除 src；失败时清理半成品 dst，src 保持不变
func Move(fs afero.Fs, src, dst string) error {
	if fi, err := fs.Stat(dst); err == nil {
		if fi.IsDir() {
			return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
		}
		return &TargetExistsError{Path: dst}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := renameFunc(fs, src, dst)
	if err == nil {
		return nil
	}
	if !crossDevice(err) {
		return err
	}
	if cerr := copyThenRemove(fs, src, dst); cerr != nil {
		return &CrossDeviceError{Src: src, Dst: dst, Err: cerr}
	}
	return nil
}

func copyThenRemove(fs afero.Fs, src, dst string) (err error) {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		if os.IsExist(err) {
			return &TargetExistsError{Path: dst}
		}
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = fs.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	_ = fs.Chtimes(dst, fi.ModTime(), fi.ModTime())

	// src 删除失败：返回错误，defer 会删掉 dst，文件只留在 src 一处。
	if rerr := fs.Remove(src); rerr != nil {
		return fmt.Errorf("复制完成但删除源文件失败：%w", rerr)
	}
	return nil
}

// WriteFileAtomic 在 dir 下原子写入 name（临时文件 + rename），若目标已存在则覆盖。
//
// 用于 report 等可覆盖的输出文件。
func WriteFileAtomic(fs afero.Fs, dir, name string, data []byte) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	// 创建同目录临时文件（前缀带 '.'），保证 rename 在同一文件系统内。
	tmp, err := afero.TempFile(fs, dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	if err := renameFunc(fs, tmpName, dst); err != nil {
		return err
	}

	// 目录 fsync：best-effort（不同平台/文件系统的语义差异很大）。
	_ = syncDirBestEffort(fs, dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(fs afero.Fs, dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := fs.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
