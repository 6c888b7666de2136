package scene

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingJPEG
	EncodingPNG
	EncodingWebP
	EncodingKTX1
	EncodingKTX2
)

func (e Encoding) String() string {
	switch e {
	case EncodingJPEG:
		return "image/jpeg"
	case EncodingPNG:
		return "image/png"
	case EncodingWebP:
		return "image/webp"
	case EncodingKTX1:
		return "image/ktx"
	case EncodingKTX2:
		return "image/ktx2"
	}
	return "unknown"
}

var (
	ktx1Identifier = []byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x31, 0x31, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}
	ktx2Identifier = []byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x32, 0x30, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}
)

// pixelWidth/pixelHeight offsets inside the KTX headers
const (
	ktx1WidthOffset  = 36
	ktx1HeightOffset = 40
	ktx2WidthOffset  = 20
	ktx2HeightOffset = 24
)

// TextureInfo is the classification of one texture. Width and Height are zero when the
// dimensions could not be read.
type TextureInfo struct {
	Encoding Encoding
	Width    int
	Height   int
}

// ClassifyTexture determines the encoding and dimensions of a texture. The declared mime type
// wins when present, then the KTX signature, then a generic image header decode.
func ClassifyTexture(mimeType string, data []byte) TextureInfo {
	info := TextureInfo{Encoding: encodingFromMimeType(mimeType)}

	if signature, ok := ktxSignature(data); ok {
		if info.Encoding == EncodingUnknown {
			info.Encoding = signature
		}
		info.Width, info.Height = ktxDimensions(signature, data)
		return info
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info
	}
	if info.Encoding == EncodingUnknown {
		info.Encoding = encodingFromImageFormat(format)
	}
	info.Width, info.Height = config.Width, config.Height

	return info
}

func encodingFromMimeType(mimeType string) Encoding {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return EncodingJPEG
	case "image/png":
		return EncodingPNG
	case "image/webp":
		return EncodingWebP
	case "image/ktx":
		return EncodingKTX1
	case "image/ktx2":
		return EncodingKTX2
	}
	return EncodingUnknown
}

func encodingFromImageFormat(format string) Encoding {
	switch format {
	case "jpeg":
		return EncodingJPEG
	case "png":
		return EncodingPNG
	case "webp":
		return EncodingWebP
	}
	return EncodingUnknown
}

func ktxSignature(data []byte) (Encoding, bool) {
	if len(data) < len(ktx2Identifier) {
		return EncodingUnknown, false
	}
	switch {
	case bytes.Equal(data[:len(ktx2Identifier)], ktx2Identifier):
		return EncodingKTX2, true
	case bytes.Equal(data[:len(ktx1Identifier)], ktx1Identifier):
		return EncodingKTX1, true
	}
	return EncodingUnknown, false
}

func ktxDimensions(signature Encoding, data []byte) (int, int) {
	widthOffset, heightOffset := ktx1WidthOffset, ktx1HeightOffset
	if signature == EncodingKTX2 {
		widthOffset, heightOffset = ktx2WidthOffset, ktx2HeightOffset
	}
	if len(data) < heightOffset+4 {
		return 0, 0
	}
	width := binary.LittleEndian.Uint32(data[widthOffset:])
	height := binary.LittleEndian.Uint32(data[heightOffset:])
	return int(width), int(height)
}
