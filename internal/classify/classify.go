package classify

import (
	"path/filepath"
	"sort"
	"strings"
)

// 允许的扩展名（小写，含 '.'）：常见位图格式 + 常见相机 RAW 格式。
var supportedExts = map[string]struct{}{
	// raster
	".jpg": {}, ".jpeg": {}, ".jpe": {},
	".tif": {}, ".tiff": {},
	".png":  {},
	".heic": {}, ".heif": {},
	".webp": {},

	// raw
	".nef": {}, ".nrw": {},
	".cr2": {}, ".cr3": {}, ".crw": {},
	".arw": {}, ".srf": {}, ".sr2": {},
	".raf": {},
	".orf": {},
	".rw2": {},
	".dng": {},
	".pef": {},
	".srw": {},
	".x3f": {},
	".raw": {},
}

// IsSupportedExtension 判断文件名的扩展名是否在允许列表内（大小写不敏感）。
func IsSupportedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if ext == "" {
		return false
	}
	_, ok := supportedExts[ext]
	return ok
}

// SupportedExtensions 返回排序后的允许列表副本，用于帮助信息。
func SupportedExtensions() []string {
	out := make([]string, 0, len(supportedExts))
	for ext := range supportedExts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Matches 判断 filter 是否以大小写不敏感的方式包含在 model 中。
//
// 纯函数：结果只依赖 (model, filter)。空 filter 由调用方在 run 开始前拒绝，这里不做特殊处理。
func Matches(model, filter string) bool {
	if model == "" {
		return false
	}
	return strings.Contains(strings.ToLower(model), strings.ToLower(filter))
}
