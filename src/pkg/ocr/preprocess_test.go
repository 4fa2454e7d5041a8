package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 10))
	for x := 0; x < 40; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(x * 6), B: uint8(x * 6), A: 255})
		}
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func TestPreprocessImageBinarizesAndUpscales(t *testing.T) {
	pngBytes, e := preprocessImage(samplePNG(t), 200)
	if e != nil {
		t.Fatal(e)
	}

	processed, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatal(err)
	}
	if processed.Bounds().Dy() != 20 || processed.Bounds().Dx() != 80 {
		t.Fatalf("processed size = %v, want 80x20", processed.Bounds())
	}

	for x := 0; x < 80; x++ {
		r, g, b, _ := processed.At(x, 10).RGBA()
		if (r != 0 && r != 0xffff) || r != g || g != b {
			t.Fatalf("pixel %d is not black or white: %d %d %d", x, r, g, b)
		}
	}
}

func TestPreprocessImageRejectsGarbage(t *testing.T) {
	if _, e := preprocessImage([]byte("not an image"), 200); e == nil {
		t.Fatal("expected decode error")
	}
}

func TestExtractTextStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, e := NewExtractor().ExtractText(ctx, samplePNG(t))
	if e == nil || text != "" {
		t.Fatalf("ExtractText with cancelled context = %q, %v", text, e)
	}
}
