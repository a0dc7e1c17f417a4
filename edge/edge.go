// Package edge implements the Canny-style edge detection pipeline:
// greyscale, convolution smoothing, gradient, non-maximum suppression
// with double thresholding, two-pass hysteresis linking, and a final
// crop.
//
// Grounded end to end on edgedetection_class.h.
package edge

import (
	"fmt"
	"image"
	"math"

	"go.openlabtools.dev/microscope/focusmetric"
)

// GradientMethod selects the gradient operator. edgedetection_class.h
// offers both as equally valid ("totally arbitrary") choices; Sobel is
// the documented default/preferred one.
type GradientMethod int

const (
	Sobel GradientMethod = iota
	CentralDifference
)

// Options configures a detection run. Zero value uses spec.md §4.11's
// defaults (H=3, L=1.2, Sobel).
type Options struct {
	Kernel         Kernel
	GradientMethod GradientMethod
	HighMultiplier float64
	LowMultiplier  float64
}

const (
	DefaultHighMultiplier = 3.0
	DefaultLowMultiplier  = 1.2
)

type pixelClass uint8

const (
	classNone pixelClass = iota
	classWeak
	classStrong
)

// buffer is a W*H float64 grid addressed row-major, the working
// representation threaded through every pipeline stage.
type buffer struct {
	w, h int
	v    []float64
}

func newBuffer(w, h int) buffer {
	return buffer{w: w, h: h, v: make([]float64, w*h)}
}

func (b buffer) at(x, y int) float64  { return b.v[y*b.w+x] }
func (b buffer) set(x, y int, v float64) { b.v[y*b.w+x] = v }

// Detect runs the full pipeline and returns a cropped binary {0,255}
// image, 3 pixels smaller on each side than the input (spec.md §8).
func Detect(img image.Image, opts Options) (*image.Gray, error) {
	if opts.HighMultiplier == 0 {
		opts.HighMultiplier = DefaultHighMultiplier
	}
	if opts.LowMultiplier == 0 {
		opts.LowMultiplier = DefaultLowMultiplier
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 7 || h < 7 {
		return nil, fmt.Errorf("edge: image %dx%d too small for a 3px crop on each side", w, h)
	}

	grey := focusmetric.Greyscale(img)
	greyBuf := newBuffer(w, h)
	for i, v := range grey {
		greyBuf.v[i] = float64(v)
	}

	smoothed := smooth(greyBuf, opts.Kernel)
	gx, gy := gradient(smoothed, opts.GradientMethod)
	magnitude := newBuffer(w, h)
	for i := range magnitude.v {
		magnitude.v[i] = math.Hypot(gx.v[i], gy.v[i])
	}

	classes := classify(magnitude, gx, gy, opts.HighMultiplier, opts.LowMultiplier)
	link(classes, w, h)

	out := render(classes, w, h)
	return crop(out, 3), nil
}

// smooth convolves the interior (a KernelSize/2-pixel border is left
// untouched, per spec.md §4.11 step 2) with the supplied kernel.
func smooth(in buffer, k Kernel) buffer {
	out := newBuffer(in.w, in.h)
	copy(out.v, in.v)

	const r = KernelSize / 2
	for y := r; y < in.h-r; y++ {
		for x := r; x < in.w-r; x++ {
			var sum float64
			for ky := 0; ky < KernelSize; ky++ {
				for kx := 0; kx < KernelSize; kx++ {
					sum += in.at(x+kx-r, y+ky-r) * k.Entries[ky][kx]
				}
			}
			out.set(x, y, sum)
		}
	}
	return out
}

func gradient(in buffer, method GradientMethod) (gx, gy buffer) {
	gx, gy = newBuffer(in.w, in.h), newBuffer(in.w, in.h)
	switch method {
	case Sobel:
		sobel(in, gx, gy)
	default:
		centralDifference(in, gx, gy)
	}
	return gx, gy
}

func centralDifference(in, gx, gy buffer) {
	for y := 1; y < in.h-1; y++ {
		for x := 1; x < in.w-1; x++ {
			gx.set(x, y, 0.5*(in.at(x+1, y)-in.at(x-1, y)))
			gy.set(x, y, 0.5*(in.at(x, y+1)-in.at(x, y-1)))
		}
	}
}

var sobelX = [3][3]float64{
	{-1, 0, 1},
	{-2, 0, 2},
	{-1, 0, 1},
}

var sobelY = [3][3]float64{
	{-1, -2, -1},
	{0, 0, 0},
	{1, 2, 1},
}

func sobel(in, gx, gy buffer) {
	for y := 1; y < in.h-1; y++ {
		for x := 1; x < in.w-1; x++ {
			var sx, sy float64
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					v := in.at(x+kx-1, y+ky-1)
					sx += v * sobelX[ky][kx]
					sy += v * sobelY[ky][kx]
				}
			}
			gx.set(x, y, sx)
			gy.set(x, y, sy)
		}
	}
}

// direction buckets the gradient angle into the four Canny
// orientations using π/8-wide boundaries, per spec.md §4.11 step 3.
type direction int

const (
	dirHorizontal direction = iota // 0°:   compare (x-1,y)/(x+1,y)
	dirDiagUp                      // 45°:  compare (x+1,y-1)/(x-1,y+1)
	dirVertical                    // 90°:  compare (x,y-1)/(x,y+1)
	dirDiagDown                    // 135°: compare (x-1,y-1)/(x+1,y+1)
)

func quantizeDirection(gx, gy float64) direction {
	theta := math.Abs(math.Atan2(gy, gx))
	const piOver8 = math.Pi / 8
	switch {
	case theta < piOver8 || theta >= 7*piOver8:
		return dirHorizontal
	case theta < 3*piOver8:
		return dirDiagUp
	case theta < 5*piOver8:
		return dirVertical
	default:
		return dirDiagDown
	}
}

// classify performs non-maximum suppression and double thresholding
// over the interior, forcing a 3-pixel border to classNone (spec.md
// §4.11 step 4).
func classify(magnitude, gx, gy buffer, highMul, lowMul float64) []pixelClass {
	w, h := magnitude.w, magnitude.h
	classes := make([]pixelClass, w*h)

	var sum float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum += magnitude.at(x, y)
			count++
		}
	}
	var mean float64
	if count > 0 {
		mean = sum / float64(count)
	}
	high := highMul * mean
	low := lowMul * mean

	for y := 3; y < h-3; y++ {
		for x := 3; x < w-3; x++ {
			mag := magnitude.at(x, y)
			var n1x, n1y, n2x, n2y int
			switch quantizeDirection(gx.at(x, y), gy.at(x, y)) {
			case dirHorizontal:
				n1x, n1y, n2x, n2y = x-1, y, x+1, y
			case dirDiagUp:
				n1x, n1y, n2x, n2y = x+1, y-1, x-1, y+1
			case dirVertical:
				n1x, n1y, n2x, n2y = x, y-1, x, y+1
			default:
				n1x, n1y, n2x, n2y = x-1, y-1, x+1, y+1
			}
			if mag < magnitude.at(n1x, n1y) || mag < magnitude.at(n2x, n2y) {
				continue // not a local maximum
			}
			switch {
			case mag > high:
				classes[y*w+x] = classStrong
			case mag > low:
				classes[y*w+x] = classWeak
			}
		}
	}
	return classes
}

// link runs the two-pass hysteresis sweep described in spec.md §4.11
// step 5: promote any weak pixel to strong if a strong pixel lies
// within its 5x5 neighborhood, forward then reverse (linkage can
// propagate in either raster direction). Remaining weak pixels become
// none.
func link(classes []pixelClass, w, h int) {
	sweep := func(forward bool) {
		ys := make([]int, h)
		for i := range ys {
			ys[i] = i
		}
		xs := make([]int, w)
		for i := range xs {
			xs[i] = i
		}
		if !forward {
			reverse(ys)
			reverse(xs)
		}
		for _, y := range ys {
			for _, x := range xs {
				idx := y*w + x
				if classes[idx] != classWeak {
					continue
				}
				if hasStrongNeighbor(classes, w, h, x, y) {
					classes[idx] = classStrong
				}
			}
		}
	}
	sweep(true)
	sweep(false)

	for i, c := range classes {
		if c == classWeak {
			classes[i] = classNone
		}
	}
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func hasStrongNeighbor(classes []pixelClass, w, h, x, y int) bool {
	for dy := -2; dy <= 2; dy++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		for dx := -2; dx <= 2; dx++ {
			nx := x + dx
			if nx < 0 || nx >= w {
				continue
			}
			if classes[ny*w+nx] == classStrong {
				return true
			}
		}
	}
	return false
}

func render(classes []pixelClass, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, c := range classes {
		if c == classStrong {
			out.Pix[i] = 255
		}
	}
	return out
}

func crop(img *image.Gray, rim int) *image.Gray {
	b := img.Bounds()
	src := image.Rect(b.Min.X+rim, b.Min.Y+rim, b.Max.X-rim, b.Max.Y-rim)
	out := image.NewGray(image.Rect(0, 0, src.Dx(), src.Dy()))
	for y := 0; y < src.Dy(); y++ {
		for x := 0; x < src.Dx(); x++ {
			out.SetGray(x, y, img.GrayAt(src.Min.X+x, src.Min.Y+y))
		}
	}
	return out
}
