package imgheader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gltf2usd/gltf2usd/internal/container"
)

func encodePNG(t *testing.T, w, h int, alpha bool) []byte {
	t.Helper()
	var img image.Image
	if alpha {
		rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rgba.Set(x, y, color.NRGBA{255, 0, 0, 128})
			}
		}
		img = rgba
	} else {
		img = image.NewGray(image.Rect(0, 0, w, h))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestReadPNGDimensions(t *testing.T) {
	data := encodePNG(t, 4, 2, false)
	h, err := Read(data, "image/png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h.Width != 4 || h.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 4x2", h.Width, h.Height)
	}
	if h.Kind != container.MimePNG {
		t.Errorf("Kind = %v, want MimePNG", h.Kind)
	}
}

func TestSniffMimeFromMagicBytes(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	if sniffMime(jpeg) != container.MimeJPEG {
		t.Error("JPEG magic bytes not detected")
	}
	bmp := []byte{'B', 'M', 0, 0}
	if sniffMime(bmp) != container.MimeBMP {
		t.Error("BMP magic bytes not detected")
	}
}
