package clip

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, raw []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode prepared image: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestPrepareImage(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{name: "landscape", w: 640, h: 480},
		{name: "portrait", w: 300, h: 900},
		{name: "square", w: 500, h: 500},
		{name: "smaller than target", w: 100, h: 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := PrepareImage(encodeTestPNG(t, tt.w, tt.h))
			if err != nil {
				t.Fatalf("PrepareImage: %v", err)
			}
			w, h := decodeDims(t, out)
			if w != TargetSize || h != TargetSize {
				t.Fatalf("expected %dx%d, got %dx%d", TargetSize, TargetSize, w, h)
			}
		})
	}
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	_, err := PrepareImage([]byte("not an image"))
	if !errors.Is(err, pkgerrors.ErrBadQueryImage) {
		t.Fatalf("expected ErrBadQueryImage, got %v", err)
	}
	_, err = PrepareImage(nil)
	if !errors.Is(err, pkgerrors.ErrBadQueryImage) {
		t.Fatalf("expected ErrBadQueryImage for empty input, got %v", err)
	}
}

func TestCropPercent(t *testing.T) {
	raw := encodeTestPNG(t, 400, 200)

	out, err := CropPercent(raw, 0.25, 0.25, 0.75, 0.75)
	if err != nil {
		t.Fatalf("CropPercent: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 200 || h != 100 {
		t.Fatalf("expected 200x100 crop, got %dx%d", w, h)
	}

	if _, err := CropPercent(raw, 0.8, 0.2, 0.3, 0.9); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for inverted box, got %v", err)
	}
	if _, err := CropPercent([]byte("junk"), 0, 0, 1, 1); !errors.Is(err, pkgerrors.ErrBadQueryImage) {
		t.Fatalf("expected ErrBadQueryImage, got %v", err)
	}
}
