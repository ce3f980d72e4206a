// Package imgheader reads just enough of an embedded texture to recover
// its pixel dimensions and channel count without decoding the full
// image, for sizing USD texture reader nodes and the texture
// reprocessing pipeline.
//
// Grounded on `common/types.go`'s blank imports of `image/jpeg` and
// `image/png` (registering decoders for `image.DecodeConfig`) and the
// rest of the example pack's shared dependence on `golang.org/x/image`
// for BMP, which the standard library does not decode.
package imgheader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/bmp"

	"github.com/gltf2usd/gltf2usd/internal/container"
)

// Header is the subset of an image's metadata the converter needs
// without decoding pixel data.
type Header struct {
	Width, Height int
	Kind          container.MimeKind
	HasAlpha      bool
}

// Read classifies data by its magic bytes and decodes just the header.
func Read(data []byte, declaredMime string) (Header, error) {
	kind := container.ClassifyMime(declaredMime)
	if kind == container.MimeUnknown {
		kind = sniffMime(data)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// image.DecodeConfig only recognizes formats with a registered
		// decoder; BMP needs golang.org/x/image/bmp explicitly.
		if kind == container.MimeBMP {
			bcfg, berr := bmp.DecodeConfig(bytes.NewReader(data))
			if berr != nil {
				return Header{}, fmt.Errorf("imgheader: decode bmp header: %w", berr)
			}
			return Header{Width: bcfg.Width, Height: bcfg.Height, Kind: container.MimeBMP, HasAlpha: false}, nil
		}
		return Header{}, fmt.Errorf("imgheader: decode header: %w", err)
	}

	hasAlpha := cfg.ColorModel == image.NRGBAModel || cfg.ColorModel == image.NRGBA64Model ||
		cfg.ColorModel == image.RGBAModel || cfg.ColorModel == image.RGBA64Model || format == "png"

	return Header{Width: cfg.Width, Height: cfg.Height, Kind: kind, HasAlpha: hasAlpha}, nil
}

func sniffMime(data []byte) container.MimeKind {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return container.MimeJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return container.MimePNG
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return container.MimeBMP
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return container.MimeGIF
	default:
		return container.MimeOther
	}
}
