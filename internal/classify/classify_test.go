package classify

import (
	"sort"
	"testing"
)

func TestIsSupportedExtension(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"IMG_0001.jpg", true},
		{"IMG_0001.JPG", true},
		{"scan.TIFF", true},
		{"DSC_1.nef", true},
		{"raw/x.CR2", true},
		{"fuji.RAF", true},
		{"notes.txt", false},
		{"movie.mp4", false},
		{"jpg", false},
		{"archive.jpg.zip", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsSupportedExtension(c.name); got != c.want {
			t.Fatalf("IsSupportedExtension(%q)=%v，期望 %v", c.name, got, c.want)
		}
	}
}

func TestMatches_CaseInsensitiveSubstring(t *testing.T) {
	cases := []struct {
		model  string
		filter string
		want   bool
	}{
		{"Sony A7", "sony", true},
		{"SONY RX100", "Sony", true},
		{"Canon EOS 5D", "sony", false},
		{"KODAK EasyShare", "kodak", true},
		{"Kodak", "kodak easyshare", false},
		{"", "sony", false},
	}
	for _, c := range cases {
		if got := Matches(c.model, c.filter); got != c.want {
			t.Fatalf("Matches(%q, %q)=%v，期望 %v", c.model, c.filter, got, c.want)
		}
	}
}

func TestSupportedExtensions_AllAccepted(t *testing.T) {
	exts := SupportedExtensions()
	if !sort.StringsAreSorted(exts) {
		t.Fatalf("允许列表应排序：%v", exts)
	}
	if len(exts) == 0 {
		t.Fatalf("允许列表不应为空")
	}
	for _, ext := range exts {
		if !IsSupportedExtension("x" + ext) {
			t.Fatalf("列表内的扩展名 %q 应被接受", ext)
		}
	}
}
