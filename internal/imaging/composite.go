// Package imaging assembles selfie composites and stamps logos onto
// generated results using pure-Go image operations.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"math"
)

const (
	compositeCell    = 512
	compositePadding = 8
	jpegQuality      = 90
)

// BuildComposite lays the given photos out on a square grid and returns the
// JPEG bytes. The grid is the smallest square that fits every photo; cells
// are letterboxed, never cropped.
func BuildComposite(photos [][]byte) ([]byte, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("imaging: no photos to composite")
	}

	decoded := make([]image.Image, 0, len(photos))
	for i, data := range photos {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("imaging: decode photo %d: %w", i, err)
		}
		decoded = append(decoded, img)
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(decoded)))))
	rows := (len(decoded) + cols - 1) / cols

	width := cols*compositeCell + (cols+1)*compositePadding
	height := rows*compositeCell + (rows+1)*compositePadding
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, img := range decoded {
		col := i % cols
		row := i / cols
		x := compositePadding + col*(compositeCell+compositePadding)
		y := compositePadding + row*(compositeCell+compositePadding)
		drawScaled(canvas, image.Rect(x, y, x+compositeCell, y+compositeCell), img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

// drawScaled draws src into cell preserving aspect ratio, centered. Nearest
// neighbor sampling keeps the dependency surface flat; the composite is model
// input, not display output.
func drawScaled(dst *image.RGBA, cell image.Rectangle, src image.Image) {
	srcBounds := src.Bounds()
	srcW := srcBounds.Dx()
	srcH := srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return
	}

	scale := math.Min(float64(cell.Dx())/float64(srcW), float64(cell.Dy())/float64(srcH))
	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	offsetX := cell.Min.X + (cell.Dx()-dstW)/2
	offsetY := cell.Min.Y + (cell.Dy()-dstH)/2

	for y := 0; y < dstH; y++ {
		srcY := srcBounds.Min.Y + int(float64(y)/scale)
		for x := 0; x < dstW; x++ {
			srcX := srcBounds.Min.X + int(float64(x)/scale)
			dst.Set(offsetX+x, offsetY+y, src.At(srcX, srcY))
		}
	}
}
