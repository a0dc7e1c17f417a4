package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeFakeCaptureScript writes a shell script that prints a fixed-size
// JPEG to stdout, standing in for the external still-capture utility so
// the test never touches a camera.
func writeFakeCaptureScript(t *testing.T, w, h int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake capture script requires a POSIX shell")
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	jpegPath := filepath.Join(dir, "frame.jpg")
	if err := os.WriteFile(jpegPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	scriptPath := filepath.Join(dir, "fake-capture.sh")
	script := "#!/bin/sh\ncat " + jpegPath + "\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return scriptPath
}

func TestCaptureDecodesUtilityOutput(t *testing.T) {
	script := writeFakeCaptureScript(t, 64, 48)
	img, err := Capture(context.Background(), Options{Command: script})
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("bounds = %v, want 64x48", b)
	}
}

func TestCaptureResizesWhenDimensionsDiffer(t *testing.T) {
	script := writeFakeCaptureScript(t, 64, 48)
	img, err := Capture(context.Background(), Options{Command: script, Width: 32, Height: 24})
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("bounds = %v, want 32x24", b)
	}
}

func TestCaptureFailsOnNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fail.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Capture(context.Background(), Options{Command: scriptPath}); err == nil {
		t.Fatal("want error for failing utility")
	}
}
