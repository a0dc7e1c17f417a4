package focusmetric

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestGreyscaleUsesBT601Weights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	got := Greyscale(img)
	want := uint8(124) // 0.299*200 + 0.587*100 + 0.114*50 = 124.2, rounded to nearest
	if got[0] != want {
		t.Fatalf("got %d, want %d", got[0], want)
	}
}

func TestScoreIsZeroForUniformImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	if got := ScoreImage(img); got != 0 {
		t.Fatalf("score = %v, want 0 for a uniform image", got)
	}
}

func TestScoreIsHigherForSharperImage(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range flat.Pix {
		flat.Pix[i] = 128
	}
	checker := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			checker.SetGray(x, y, color.Gray{Y: v})
		}
	}
	if ScoreImage(checker) <= ScoreImage(flat) {
		t.Fatal("checkerboard should score higher variance than a flat image")
	}
}

func TestScoreHalfSplitImageMatchesClosedForm(t *testing.T) {
	grey := make([]uint8, 100)
	for i := range grey {
		if i < 50 {
			grey[i] = 0
		} else {
			grey[i] = 255
		}
	}
	got := Score(grey)
	want := 127.5
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 3)
	}
	a := ScoreImage(img)
	b := ScoreImage(img)
	if a != b {
		t.Fatalf("score not idempotent: %v != %v", a, b)
	}
}
