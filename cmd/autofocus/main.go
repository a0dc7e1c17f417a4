// command autofocus is the host-side focus engine: it wires a serial
// connection to the instrument, an external still-capture utility, and
// the focus metric into the sweep/fine-tune/focus-hold/test-run
// operations, non-interactively selected by a positional subcommand.
//
// Grounded on cmd/cli/main.go's flag-driven CLI style. The interactive
// terminal menu the original focus_everything.cpp/.h exposes
// (focus_full, focus_sweep, focus_test, focus_tune) is out of scope
// per spec.md §1; these four operations are instead selected via a
// positional subcommand argument.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"go.openlabtools.dev/microscope/autofocus"
	"go.openlabtools.dev/microscope/capture"
	"go.openlabtools.dev/microscope/focusmetric"
	"go.openlabtools.dev/microscope/hostserial"
)

var (
	device           = flag.String("device", "/dev/serial0", "serial device the firmware listens on")
	objectiveName    = flag.String("objective", "40x", "objective lens (4x, 10x, 40x, 100x)")
	outputDir        = flag.String("output", ".", "directory for focusingdata.txt")
	captureCmd       = flag.String("capture-cmd", "libcamera-jpeg", "external still-capture utility")
	width            = flag.Int("width", 1280, "capture width")
	height           = flag.Int("height", 720, "capture height")
	captureTimeout   = flag.Duration("capture-timeout", 10*time.Second, "per-frame capture timeout")
	sweepSamples     = flag.Int("n", autofocus.DefaultSweepSamples, "sweep/test-run sample count")
	improvementRatio = flag.Float64("improvement-ratio", autofocus.DefaultImprovementRatio, "fine-tune convergence threshold parameter (2-ratio)*score_max")
	maxConfirmations = flag.Int("max-confirmations", autofocus.DefaultMaxConfirmations, "fine-tune confirmation passes at minimum step")
	holdInterval     = flag.Duration("hold-interval", 120*time.Second, "focus-hold re-tune cadence")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "autofocus:", err)
		os.Exit(1)
	}
}

type hostCapturer struct {
	opts capture.Options
}

func (h *hostCapturer) Capture() (image.Image, error) {
	return capture.Capture(context.Background(), h.opts)
}

func run() error {
	sub := flag.Arg(0)
	if sub == "" {
		return fmt.Errorf("usage: autofocus [flags] sweep|tune|full|test")
	}

	objective, ok := autofocus.Objectives[*objectiveName]
	if !ok {
		return fmt.Errorf("unknown objective %q", *objectiveName)
	}

	client, err := hostserial.Open(*device)
	if err != nil {
		return err
	}
	defer client.Close()

	logPath := filepath.Join(*outputDir, "focusingdata.txt")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", logPath, err)
	}
	defer logFile.Close()

	search := &autofocus.Search{
		Serial: client,
		Capture: &hostCapturer{opts: capture.Options{
			Command: *captureCmd,
			Width:   *width,
			Height:  *height,
			Timeout: *captureTimeout,
		}},
		Score: focusmetric.ScoreImage,
		Log:   autofocus.NewLog(logFile),
	}

	calibrated, err := client.IsCalibrated()
	if err != nil {
		return err
	}
	if !calibrated {
		if err := client.Calibrate(); err != nil {
			return err
		}
		if err := client.WaitForIdle("calibrate"); err != nil {
			return err
		}
	}

	switch sub {
	case "sweep":
		return search.Sweep(*sweepSamples, objective.InitialStep)
	case "tune":
		_, err := search.FineTune(objective.InitialStep, objective.MinStep, true, *improvementRatio, *maxConfirmations)
		return err
	case "full":
		if err := search.Sweep(*sweepSamples, objective.InitialStep); err != nil {
			return err
		}
		max := search.Max()
		if err := client.ZMoveTo(max.Position); err != nil {
			return err
		}
		if err := client.WaitForIdle("z_move_to"); err != nil {
			return err
		}
		if _, err := search.FineTune(objective.InitialStep, objective.MinStep, true, *improvementRatio, *maxConfirmations); err != nil {
			return err
		}
		return search.FocusHold(context.Background(), *holdInterval, objective.MinStep, true, *improvementRatio, *maxConfirmations)
	case "test":
		return search.TestRun(*sweepSamples)
	default:
		return fmt.Errorf("unknown subcommand %q", sub)
	}
}
