// Package metadatatest 生成带相机型号的最小图片字节流，供测试使用。
package metadatatest

import (
	"bytes"
	"encoding/binary"
)

// TIFF 返回一个只含 IFD0 且仅有 Model(0x0110) 标签的小端 TIFF。
func TIFF(model string) []byte {
	val := append([]byte(model), 0)

	var b bytes.Buffer
	le := binary.LittleEndian

	// header
	b.WriteString("II")
	_ = binary.Write(&b, le, uint16(42))
	_ = binary.Write(&b, le, uint32(8))

	// IFD0：1 个条目
	_ = binary.Write(&b, le, uint16(1))
	_ = binary.Write(&b, le, uint16(0x0110)) // Model
	_ = binary.Write(&b, le, uint16(2))      // ASCII
	_ = binary.Write(&b, le, uint32(len(val)))
	if len(val) <= 4 {
		inline := make([]byte, 4)
		copy(inline, val)
		b.Write(inline)
	} else {
		// 8(header) + 2(count) + 12(entry) + 4(next IFD)
		_ = binary.Write(&b, le, uint32(26))
	}
	_ = binary.Write(&b, le, uint32(0)) // 没有下一个 IFD

	if len(val) > 4 {
		b.Write(val)
	}
	return b.Bytes()
}

// JPEG 返回 SOI + APP1(Exif) + EOI，APP1 内嵌 TIFF(model)。
func JPEG(model string) []byte {
	payload := append([]byte("Exif\x00\x00"), TIFF(model)...)

	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	b.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&b, binary.BigEndian, uint16(len(payload)+2))
	b.Write(payload)
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

// JPEGNoExif 返回一个没有任何 APP1 段的“图片”。
func JPEGNoExif() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}
}

// XMP 返回一个属性形式携带 tiff:Model 的 XMP sidecar。
func XMP(model string) []byte {
	return []byte(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="" xmlns:tiff="http://ns.adobe.com/tiff/1.0/" tiff:Make="Vendor" tiff:Model="` + model + `"/>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`)
}
