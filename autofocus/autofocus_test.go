package autofocus

import (
	"image"
	"testing"
)

type fakeSerial struct {
	pos    int
	length int
}

func (f *fakeSerial) ZPosition() (int, error)      { return f.pos, nil }
func (f *fakeSerial) ZLength() (int, error)        { return f.length, nil }
func (f *fakeSerial) ZMove(steps int) error        { f.pos += steps; return nil }
func (f *fakeSerial) ZMoveTo(position int) error   { f.pos = position; return nil }
func (f *fakeSerial) WaitForIdle(string) error     { return nil }

type fakeCapturer struct{}

func (fakeCapturer) Capture() (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

// unimodalScore peaks at `peak`, reading the live stage position out
// of serial so the synthetic focus function tracks wherever the
// search moves the stage to, per scenario 6 in spec.md §8.
func unimodalScore(serial *fakeSerial, peak int) ScoreFunc {
	return func(image.Image) float64 {
		d := float64(serial.pos - peak)
		// Lorentzian shape: strictly positive everywhere, matching
		// FocusMetric's non-negative contract, and steep enough that a
		// single step toward the peak still clears fine-tune's default
		// 1% improvement threshold all the way down to ±1 of the peak.
		return 1 / (1 + d*d/100)
	}
}

func TestSweepRecordsDescendingPositions(t *testing.T) {
	serial := &fakeSerial{pos: 1000}
	s := &Search{Serial: serial, Capture: fakeCapturer{}, Score: unimodalScore(serial, 500)}
	if err := s.Sweep(DefaultSweepSamples, 100); err != nil {
		t.Fatal(err)
	}
	if serial.pos != 0 {
		t.Fatalf("final position = %d, want 0 after 10 steps of 100", serial.pos)
	}
	if s.max.Position < 0 || s.max.Position > 1000 {
		t.Fatalf("max position out of swept range: %d", s.max.Position)
	}
}

func TestFineTuneConvergesNearPeak(t *testing.T) {
	serial := &fakeSerial{pos: 0}
	s := &Search{Serial: serial, Capture: fakeCapturer{}, Score: unimodalScore(serial, 37)}
	max, err := s.FineTune(100, 1, true, DefaultImprovementRatio, DefaultMaxConfirmations)
	if err != nil {
		t.Fatal(err)
	}
	if d := max.Position - 37; d < -1 || d > 1 {
		t.Fatalf("converged position = %d, want within ±1 of peak 37", max.Position)
	}
}

func TestFineTuneConvergesFromAboveThePeak(t *testing.T) {
	serial := &fakeSerial{pos: 100}
	s := &Search{Serial: serial, Capture: fakeCapturer{}, Score: unimodalScore(serial, 37)}
	max, err := s.FineTune(50, 1, false, DefaultImprovementRatio, DefaultMaxConfirmations)
	if err != nil {
		t.Fatal(err)
	}
	if d := max.Position - 37; d < -1 || d > 1 {
		t.Fatalf("converged position = %d, want within ±1 of peak 37", max.Position)
	}
}

func TestTestRunStepsAcrossFullTravel(t *testing.T) {
	serial := &fakeSerial{pos: 1000, length: 1000}
	s := &Search{Serial: serial, Capture: fakeCapturer{}, Score: unimodalScore(serial, 500)}
	if err := s.TestRun(10); err != nil {
		t.Fatal(err)
	}
	if serial.pos != 0 {
		t.Fatalf("final position = %d, want 0 after 10 equally spaced steps across length 1000", serial.pos)
	}
}

func TestMaxIsMonotonicOnTies(t *testing.T) {
	serial := &fakeSerial{pos: 0}
	calls := 0
	s := &Search{
		Serial:  serial,
		Capture: fakeCapturer{},
		Score: func(image.Image) float64 {
			calls++
			return 5
		},
	}
	if _, err := s.captureSample(); err != nil {
		t.Fatal(err)
	}
	firstIndex := s.max.Index
	if _, err := s.captureSample(); err != nil {
		t.Fatal(err)
	}
	if s.max.Index == firstIndex {
		t.Fatal("equal score should still replace the maximum (>=, not >)")
	}
}
