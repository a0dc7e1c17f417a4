// command edgedetect is a standalone CLI over the Canny pipeline: read
// an image and a smoothing kernel file, run edge detection, write the
// cropped binary result.
//
// Grounded on cmd/cli/main.go's flag-driven CLI style.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.openlabtools.dev/microscope/edge"
)

var (
	input     = flag.String("input", "", "input image path (JPEG or PNG)")
	kernel    = flag.String("kernel", "", "smoothing kernel file path")
	output    = flag.String("output", "edges.png", "output image path")
	gradient  = flag.String("gradient", "sobel", "gradient operator: sobel or central")
	highMul   = flag.Float64("high", edge.DefaultHighMultiplier, "high threshold multiplier")
	lowMul    = flag.Float64("low", edge.DefaultLowMultiplier, "low threshold multiplier")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "edgedetect:", err)
		os.Exit(1)
	}
}

func run() error {
	if *input == "" || *kernel == "" {
		return fmt.Errorf("usage: edgedetect -input=path -kernel=path [-output=path]")
	}

	img, err := decodeImage(*input)
	if err != nil {
		return err
	}

	kernelFile, err := os.Open(*kernel)
	if err != nil {
		return fmt.Errorf("opening kernel file: %w", err)
	}
	defer kernelFile.Close()
	k, err := edge.LoadKernel(kernelFile)
	if err != nil {
		return err
	}

	method, err := parseGradientMethod(*gradient)
	if err != nil {
		return err
	}

	out, err := edge.Detect(img, edge.Options{
		Kernel:         k,
		GradientMethod: method,
		HighMultiplier: *highMul,
		LowMultiplier:  *lowMul,
	})
	if err != nil {
		return err
	}

	return writePNG(*output, out)
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Decode(f)
	default:
		return jpeg.Decode(f)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

func parseGradientMethod(s string) (edge.GradientMethod, error) {
	switch strings.ToLower(s) {
	case "sobel":
		return edge.Sobel, nil
	case "central":
		return edge.CentralDifference, nil
	default:
		return 0, fmt.Errorf("unknown gradient method %q", s)
	}
}
