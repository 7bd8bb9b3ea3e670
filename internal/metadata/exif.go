package metadata

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

// EXIF 从文件内嵌的 EXIF 读取 Model 标签。
// 覆盖 JPEG、TIFF 以及基于 TIFF 的 RAW（NEF、CR2、ARW、DNG ……）。
type EXIF struct{}

func (EXIF) Name() string { return "exif" }

func (EXIF) Model(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", &domain.MetadataReadError{Path: path, Err: err}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		// 非图片/无 EXIF 在照片目录里很常见，按“没有元数据”处理。
		return "", fmt.Errorf("%w：%v", ErrNoMetadata, err)
	}

	tag, err := x.Get(exif.Model)
	if err != nil {
		return "", fmt.Errorf("%w：%v", ErrNoMetadata, err)
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", fmt.Errorf("%w：Model 标签不是字符串：%v", ErrNoMetadata, err)
	}

	model := cleanModel(s)
	if model == "" {
		return "", fmt.Errorf("%w：Model 标签为空", ErrNoMetadata)
	}
	return model, nil
}

func cleanModel(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
