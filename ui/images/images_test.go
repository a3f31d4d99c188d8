package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func TestScaleToFit_KeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))
	out := ScaleToFit(src, 200, 200)
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatalf("expected 200x100, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestScaleToFit_SmallSourceUnchanged(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 40))
	if out := ScaleToFit(src, 200, 200); out != image.Image(src) {
		t.Fatalf("expected original image returned")
	}
}

func TestLimitSide(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 1200))
	out := LimitSide(src, 600)
	if out.Bounds().Dy() != 600 || out.Bounds().Dx() != 150 {
		t.Fatalf("expected 150x600, got %v", out.Bounds())
	}
}

func TestEncodeJPEG_Decodes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	data, err := EncodeJPEG(src, 80)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestToRGBA_RebasesSubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	sub := src.SubImage(image.Rect(2, 3, 6, 9))
	out := ToRGBA(sub)
	if out.Bounds().Min != (image.Point{}) || out.Bounds().Dx() != 4 || out.Bounds().Dy() != 6 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if ToRGBA(src) != src {
		t.Fatalf("origin-anchored RGBA should not be copied")
	}
}
