package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
)

const (
	logoMargin = 24
	// logoMaxShare caps the logo at a fraction of the photo's width.
	logoMaxShare = 0.2
)

// OverlayLogo stamps the logo onto the photo's bottom-right corner and
// returns the JPEG bytes. The logo is scaled down when it would exceed a
// fifth of the photo width; alpha is respected.
func OverlayLogo(photo, logo []byte) ([]byte, error) {
	base, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode photo: %w", err)
	}
	mark, _, err := image.Decode(bytes.NewReader(logo))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode logo: %w", err)
	}

	bounds := base.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, base, bounds.Min, draw.Src)

	markBounds := mark.Bounds()
	markW := markBounds.Dx()
	markH := markBounds.Dy()
	maxW := int(float64(bounds.Dx()) * logoMaxShare)
	if markW > maxW && maxW > 0 {
		scale := float64(maxW) / float64(markW)
		markW = maxW
		markH = int(math.Max(1, float64(markH)*scale))
	}

	x := bounds.Max.X - markW - logoMargin
	y := bounds.Max.Y - markH - logoMargin
	target := image.Rect(x, y, x+markW, y+markH)
	drawScaledOver(canvas, target, mark)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encode result: %w", err)
	}
	return buf.Bytes(), nil
}

func drawScaledOver(dst *image.RGBA, target image.Rectangle, src image.Image) {
	srcBounds := src.Bounds()
	if srcBounds.Dx() == 0 || srcBounds.Dy() == 0 || target.Dx() <= 0 || target.Dy() <= 0 {
		return
	}
	scaleX := float64(srcBounds.Dx()) / float64(target.Dx())
	scaleY := float64(srcBounds.Dy()) / float64(target.Dy())

	scaled := image.NewRGBA(image.Rect(0, 0, target.Dx(), target.Dy()))
	for y := 0; y < target.Dy(); y++ {
		srcY := srcBounds.Min.Y + int(float64(y)*scaleY)
		for x := 0; x < target.Dx(); x++ {
			srcX := srcBounds.Min.X + int(float64(x)*scaleX)
			scaled.Set(x, y, src.At(srcX, srcY))
		}
	}
	draw.Draw(dst, target, scaled, image.Point{}, draw.Over)
}
