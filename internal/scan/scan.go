package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// File 是遍历过程中发现的一个普通文件。
type File struct {
	AbsPath string
	RelPath string
	Info    os.FileInfo
}

// VisitFunc 处理一个文件；返回非 nil 错误会立即终止遍历并原样返回。
type VisitFunc func(f File) error

// ErrorFunc 接收单个条目的遍历错误（rel 为相对 root 的路径）；遍历继续。
type ErrorFunc func(rel string, err error)

// Walk 以流式方式递归遍历 root 下的普通文件，并应用目录排除规则。
//
// 规则：
// - 目录内按字典序访问（afero.Walk 保证），因此同一棵树的访问顺序稳定
// - excludeDirs 中的相对路径相对 root；绝对路径按绝对路径处理
// - root 本身是符号链接时先解析到真实目录；root 之下的符号链接与其它非普通文件被跳过
// - root 本身无法访问时返回错误；其余条目的错误交给 onErr，不中断遍历
func Walk(fs afero.Fs, root string, excludeDirs []string, visit VisitFunc, onErr ErrorFunc) error {
	root = resolveLink(fs, filepath.Clean(root))
	excluded := buildExcluded(fs, root, excludeDirs)

	return afero.Walk(fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if onErr != nil {
				onErr(relOf(root, path), walkErr)
			}
			// 目录读取失败：afero.Walk 不会再下钻，返回 nil 继续兄弟条目。
			return nil
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		return visit(File{AbsPath: path, RelPath: relOf(root, path), Info: info})
	})
}

func relOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// resolveLink 在真实文件系统上把符号链接解析为目标路径；其它 Fs 或解析失败时原样返回。
func resolveLink(fs afero.Fs, path string) string {
	if _, ok := fs.(*afero.OsFs); !ok {
		return path
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return real
}

func buildExcluded(fs afero.Fs, root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			x = filepath.Clean(x)
			excluded = append(excluded, x)
			// 经由符号链接给出的目录（例如链接形式的目标目录）按真实路径再排除一次。
			if real := resolveLink(fs, x); real != x {
				excluded = append(excluded, real)
			}
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if IsUnder(path, base) {
			return true
		}
	}
	return false
}

// IsUnder 判断 path 是否等于 base 或位于 base 之下（两者均应为 Clean 后的路径）。
func IsUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(base, sep)+sep)
}
