package clip

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
)

// TargetSize is the square input size the encoder expects.
const TargetSize = 224

// PrepareImage decodes, scales the shorter side to TargetSize preserving
// aspect ratio, center-crops to TargetSize x TargetSize and re-encodes as
// JPEG. Undecodable input maps to ErrBadQueryImage.
func PrepareImage(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", pkgerrors.ErrBadQueryImage)
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrBadQueryImage, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", pkgerrors.ErrBadQueryImage)
	}

	// Scale so the shorter side lands exactly on TargetSize.
	var scaledW, scaledH int
	if w < h {
		scaledW = TargetSize
		scaledH = (h*TargetSize + w/2) / w
	} else {
		scaledH = TargetSize
		scaledW = (w*TargetSize + h/2) / h
	}
	if scaledW < TargetSize {
		scaledW = TargetSize
	}
	if scaledH < TargetSize {
		scaledH = TargetSize
	}

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, xdraw.Src, nil)

	x0 := (scaledW - TargetSize) / 2
	y0 := (scaledH - TargetSize) / 2
	cropped := image.NewRGBA(image.Rect(0, 0, TargetSize, TargetSize))
	xdraw.Draw(cropped, cropped.Bounds(), scaled, image.Pt(x0, y0), xdraw.Src)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, cropped, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode prepared image: %w", err)
	}
	return out.Bytes(), nil
}

// CropPercent cuts a region given as fractional coordinates (x0, y0, x1,
// y1 in [0,1]) out of the image and returns it re-encoded. Used to embed
// detected garment regions individually.
func CropPercent(raw []byte, x0, y0, x1, y1 float64) ([]byte, error) {
	if x1 <= x0 || y1 <= y0 || x0 < 0 || y0 < 0 || x1 > 1 || y1 > 1 {
		return nil, fmt.Errorf("%w: invalid crop box", pkgerrors.ErrInvalidArgument)
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrBadQueryImage, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rect := image.Rect(
		bounds.Min.X+int(x0*float64(w)),
		bounds.Min.Y+int(y0*float64(h)),
		bounds.Min.X+int(x1*float64(w)),
		bounds.Min.Y+int(y1*float64(h)),
	)
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return nil, fmt.Errorf("%w: crop box collapses to nothing", pkgerrors.ErrBadQueryImage)
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(cropped, cropped.Bounds(), src, rect.Min, xdraw.Src)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, cropped, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return out.Bytes(), nil
}
