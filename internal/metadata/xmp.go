package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/afero"
)

// XMPSidecar 从照片旁的 XMP sidecar 读取 tiff:Model。
//
// 查找顺序：IMG.xmp、IMG.XMP、IMG.CR2.xmp、IMG.CR2.XMP。
// sidecar 用宽松的 HTML 解析器读取，属性形式（tiff:Model="..."）与元素形式（<tiff:Model>...</tiff:Model>）都支持。
type XMPSidecar struct{}

func (XMPSidecar) Name() string { return "xmp" }

func (XMPSidecar) Model(fs afero.Fs, path string) (string, error) {
	sidecar, err := findSidecar(fs, path)
	if err != nil {
		return "", err
	}

	f, err := fs.Open(sidecar)
	if err != nil {
		return "", &domain.MetadataReadError{Path: sidecar, Err: err}
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", &domain.MetadataReadError{Path: sidecar, Err: err}
	}

	model := findModel(doc)
	if model == "" {
		return "", fmt.Errorf("%w：sidecar %s 中没有 tiff:Model", ErrNoMetadata, filepath.Base(sidecar))
	}
	return model, nil
}

func sidecarCandidates(path string) []string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return []string{
		base + ".xmp",
		base + ".XMP",
		path + ".xmp",
		path + ".XMP",
	}
}

func findSidecar(fs afero.Fs, path string) (string, error) {
	for _, cand := range sidecarCandidates(path) {
		fi, err := fs.Stat(cand)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", &domain.MetadataReadError{Path: cand, Err: err}
		}
		if fi.Mode().IsRegular() {
			return cand, nil
		}
	}
	return "", fmt.Errorf("%w：没有 XMP sidecar", ErrNoMetadata)
}

// HTML 解析器会把标签名与属性名转为小写，因此直接比较小写形式。
func findModel(doc *goquery.Document) string {
	var model string
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("tiff:model"); ok {
			if v = cleanModel(v); v != "" {
				model = v
				return false
			}
		}
		if goquery.NodeName(s) == "tiff:model" {
			// 元素形式可能包一层 rdf:Alt/rdf:li，Text 会拼接所有后代文本。
			if v := cleanModel(s.Text()); v != "" {
				model = v
				return false
			}
		}
		return true
	})
	return model
}
