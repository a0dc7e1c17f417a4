// Package capture invokes the external still-capture utility and
// decodes its output into an in-memory image, the host side's only
// point of contact with the camera.
//
// Grounded on cmd/cli/main.go's external-process invocation style; the
// image codec itself is stdlib image/jpeg, the narrowest call that
// satisfies spec.md §1's "capture utility is out of scope" boundary.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"time"

	"golang.org/x/image/draw"
)

// Options configures a single capture.
type Options struct {
	// Command is the still-capture utility's path, e.g. "libcamera-jpeg".
	Command string
	// Args are passed verbatim, except that "-o", "-" (write JPEG to
	// stdout) is always appended so the image never touches disk.
	Args []string
	// Timeout bounds how long the external process may run.
	Timeout time.Duration
	// Width and Height, if both non-zero, resize the decoded image
	// when the utility's native output doesn't already match.
	Width, Height int
}

// Capture runs the configured utility and decodes its JPEG stdout into
// an image. The returned image is always *image.Gray-compatible input
// for focusmetric, but capture itself never greyscales: that
// conversion belongs to focusmetric per the scoring law in spec.md §8.
func Capture(ctx context.Context, opts Options) (image.Image, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, opts.Args...), "-o", "-")
	cmd := exec.CommandContext(ctx, opts.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture: running %s: %w (stderr: %s)", opts.Command, err, stderr.String())
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("capture: decoding JPEG output: %w", err)
	}

	if opts.Width == 0 || opts.Height == 0 {
		return img, nil
	}
	b := img.Bounds()
	if b.Dx() == opts.Width && b.Dy() == opts.Height {
		return img, nil
	}
	return resize(img, opts.Width, opts.Height), nil
}

func resize(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
