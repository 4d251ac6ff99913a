package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeJPEG(t *testing.T, w, h int, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestBuildCompositeGridSize(t *testing.T) {
	red := color.RGBA{R: 200, A: 255}
	photos := [][]byte{
		encodeJPEG(t, 300, 400, red),
		encodeJPEG(t, 400, 300, red),
		encodeJPEG(t, 512, 512, red),
	}

	data, err := BuildComposite(photos)
	if err != nil {
		t.Fatalf("build composite: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode composite: %v", err)
	}

	// Three photos fit a 2x2 grid.
	wantW := 2*compositeCell + 3*compositePadding
	wantH := 2*compositeCell + 3*compositePadding
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Fatalf("composite %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), wantW, wantH)
	}
}

func TestBuildCompositeRejectsEmptyInput(t *testing.T) {
	if _, err := BuildComposite(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestBuildCompositeRejectsBadBytes(t *testing.T) {
	if _, err := BuildComposite([][]byte{{0x00, 0x01}}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOverlayLogoKeepsPhotoSize(t *testing.T) {
	photo := encodeJPEG(t, 800, 800, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	logo := encodePNG(t, 400, 200, color.RGBA{G: 255, A: 255})

	data, err := OverlayLogo(photo, logo)
	if err != nil {
		t.Fatalf("overlay: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 800 {
		t.Fatalf("result %dx%d, want 800x800", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// The bottom-right region should now carry logo color.
	r, g, _, _ := img.At(800-logoMargin-10, 800-logoMargin-10).RGBA()
	if g>>8 < 100 || r>>8 > 120 {
		t.Fatalf("expected logo pixels in bottom-right, got r=%d g=%d", r>>8, g>>8)
	}
}

func TestBackgroundColorLookup(t *testing.T) {
	c, err := BackgroundColor("Navy")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if c.B <= c.R {
		t.Fatalf("navy should be blue-dominant, got %+v", c)
	}

	if _, err := BackgroundColor("chartreuse-dream"); err == nil {
		t.Fatal("expected error for unknown background")
	}
	if !ValidBackground("white") || ValidBackground("nope") {
		t.Fatal("ValidBackground misclassified")
	}
	if names := BackgroundNames(); len(names) != len(backgroundColors) {
		t.Fatalf("expected %d names, got %d", len(backgroundColors), len(names))
	}
}
