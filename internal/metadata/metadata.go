package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/spf13/afero"
)

// ErrNoMetadata 表示文件里没有可用的相机型号（不是图片、没有 EXIF、没有 Model 标签、值为空……）。
// 这是“正常”的未确定结果；意外的 I/O 错误用 *domain.MetadataReadError 表示。
var ErrNoMetadata = errors.New("没有相机型号元数据")

// Source 是一个型号来源（内嵌 EXIF、XMP sidecar ……）。
//
// 约束：
// - 找不到型号时返回包装了 ErrNoMetadata 的错误
// - 意外的 I/O 错误返回 *domain.MetadataReadError
// - 打开的文件必须在返回前关闭
type Source interface {
	Name() string
	Model(fs afero.Fs, path string) (string, error)
}

// Attempt 记录一次来源尝试（用于解释回退原因）。
type Attempt struct {
	Source string
	Err    error // nil 表示该来源成功
}

// Result 是一次提取的结果。调用方只应依据 Found 分支，Cause 仅用于诊断。
type Result struct {
	Model  string
	Found  bool
	Source string
	Cause  error

	Attempts []Attempt
}

// Extractor 按固定顺序尝试各来源，第一个给出非空型号的来源胜出。
type Extractor struct {
	fs      afero.Fs
	sources []Source
}

// NewExtractor 使用给定来源；不传来源时按 exif -> xmp 顺序。
func NewExtractor(fs afero.Fs, sources ...Source) *Extractor {
	if len(sources) == 0 {
		sources = []Source{EXIF{}, XMPSidecar{}}
	}
	return &Extractor{fs: fs, sources: sources}
}

// Extract 永不返回错误：所有失败都折叠为 Found=false。
func (e *Extractor) Extract(path string) Result {
	var (
		attempts []Attempt
		ioErr    error
		lastErr  error
	)
	for _, s := range e.sources {
		model, err := s.Model(e.fs, path)
		if err == nil && model != "" {
			attempts = append(attempts, Attempt{Source: s.Name()})
			return Result{Model: model, Found: true, Source: s.Name(), Attempts: attempts}
		}
		if err == nil {
			err = fmt.Errorf("%w：%s 返回空型号", ErrNoMetadata, s.Name())
		}
		attempts = append(attempts, Attempt{Source: s.Name(), Err: err})
		lastErr = err

		var re *domain.MetadataReadError
		if ioErr == nil && errors.As(err, &re) {
			ioErr = err
		}
	}

	// 意外 I/O 错误比“没有元数据”更值得上报。
	cause := ioErr
	if cause == nil {
		cause = lastErr
	}
	if cause == nil {
		cause = ErrNoMetadata
	}
	return Result{Cause: cause, Attempts: attempts}
}

// IsUnexpected 判断提取失败的原因是否为意外的 I/O 错误（而非单纯缺少元数据）。
func (r Result) IsUnexpected() bool {
	var re *domain.MetadataReadError
	return errors.As(r.Cause, &re)
}

// Trace 把尝试记录渲染成一行，例如 "exif: 没有相机型号元数据; xmp: ok"。
func (r Result) Trace() string {
	parts := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		if a.Err == nil {
			parts = append(parts, a.Source+": ok")
			continue
		}
		parts = append(parts, a.Source+": "+a.Err.Error())
	}
	return strings.Join(parts, "; ")
}
