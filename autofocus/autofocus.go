// Package autofocus implements the two-phase focus search (coarse
// sweep, recursive bisecting fine-tune), focus-hold, and the offline
// test-run characterization sweep.
//
// Grounded on autofocus_class.h's sweep()/fine_tune() and
// focus_everything.cpp's orchestration of the two, restructured as an
// explicit iterative loop per the design note in spec.md §9 (the
// recursion there is a tail call, and an iterative
// step/direction/confirmations tuple is equivalent and stack-safe).
package autofocus

import (
	"context"
	"image"
	"time"
)

// SerialClient is the narrow set of hostserial.Client operations
// autofocus depends on.
type SerialClient interface {
	ZPosition() (int, error)
	ZLength() (int, error)
	ZMove(steps int) error
	ZMoveTo(position int) error
	WaitForIdle(triggeringCommand string) error
}

// Capturer yields one decoded frame per call, standing in for
// capture.Capture plus whatever sequential-naming bookkeeping the
// caller wants to do between frames.
type Capturer interface {
	Capture() (image.Image, error)
}

// ScoreFunc scores a decoded frame. Search has no default: Score must
// be set (cmd/autofocus uses focusmetric.ScoreImage). It is a field so
// tests can supply a synthetic scoring function over a one-dimensional
// position space.
type ScoreFunc func(image.Image) float64

// Search drives one instrument's focus search and owns the
// FocusMaximum and sample log, the host-side state spec.md §3
// allocates to Autofocus.
type Search struct {
	Serial  SerialClient
	Capture Capturer
	Score   ScoreFunc
	Log     *Log

	sampleIndex int
	max         FocusMaximum
}

// Max reports the best sample observed across every search performed
// on this Search so far.
func (s *Search) Max() FocusMaximum { return s.max }

// captureSample captures at the stage's current position, scores the
// frame, appends it to the log, and updates the running maximum.
func (s *Search) captureSample() (FocusSample, error) {
	pos, err := s.Serial.ZPosition()
	if err != nil {
		return FocusSample{}, err
	}
	img, err := s.Capture.Capture()
	if err != nil {
		return FocusSample{}, err
	}
	sample := FocusSample{Index: s.sampleIndex, Position: pos, Score: s.Score(img)}
	s.sampleIndex++
	if s.Log != nil {
		if err := s.Log.Append(sample); err != nil {
			return FocusSample{}, err
		}
	}
	s.max.consider(sample)
	return sample, nil
}

// Sweep is the coarse phase: from the current position, repeat n
// times: capture and record the current frame, issue a relative
// z_move(-step), then wait for it to settle (spec.md §4.9).
func (s *Search) Sweep(n, step int) error {
	for i := 0; i < n; i++ {
		if _, err := s.captureSample(); err != nil {
			return err
		}
		if err := s.Serial.ZMove(-step); err != nil {
			return err
		}
		if err := s.Serial.WaitForIdle("z_move"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Search) moveToAndWait(position int) error {
	if err := s.Serial.ZMoveTo(position); err != nil {
		return err
	}
	return s.Serial.WaitForIdle("z_move_to")
}

// FineTune runs the recursive bisecting search, reimplemented as an
// explicit loop over (step, direction, confirmations), starting from
// the stage's current position. upOrDown selects the first probe
// direction (true = +step). improvementRatio is the open-question
// parameter from spec.md §9 unifying the source's inconsistently
// named "precision"/"tolerance" variables; the convergence threshold
// is (2-improvementRatio)*scoreMax. It returns the best position and
// score found.
func (s *Search) FineTune(initialStep, minStep int, upOrDown bool, improvementRatio float64, maxConfirmations int) (FocusMaximum, error) {
	step := initialStep
	prevDirection := false
	timesChecked := 0

	for {
		if !prevDirection && step > minStep {
			step /= 2
			if step < minStep {
				step = minStep
			}
		}

		center, err := s.captureSample()
		if err != nil {
			return FocusMaximum{}, err
		}
		scoreMax, posMax := center.Score, center.Position
		threshold := (2 - improvementRatio) * scoreMax

		delta := step
		if !upOrDown {
			delta = -step
		}
		if err := s.moveToAndWait(posMax + delta); err != nil {
			return FocusMaximum{}, err
		}
		adj, err := s.captureSample()
		if err != nil {
			return FocusMaximum{}, err
		}
		if adj.Score >= threshold {
			prevDirection = true
			continue
		}

		oppDelta := -2 * step
		if !upOrDown {
			oppDelta = 2 * step
		}
		if err := s.moveToAndWait(posMax + delta + oppDelta); err != nil {
			return FocusMaximum{}, err
		}
		opp, err := s.captureSample()
		if err != nil {
			return FocusMaximum{}, err
		}
		if opp.Score >= threshold {
			prevDirection = false
			upOrDown = !upOrDown
			continue
		}

		if err := s.moveToAndWait(posMax); err != nil {
			return FocusMaximum{}, err
		}
		if step <= minStep {
			return FocusMaximum{Score: scoreMax, Position: posMax, Index: center.Index}, nil
		}
		if timesChecked == maxConfirmations {
			step = minStep
		}
		timesChecked++
		prevDirection = false
	}
}

// FocusHold periodically re-runs a short fine-tune pass to compensate
// for drift, per spec.md §4.9: "every 120 seconds, set step := 40 and
// run fine-tune." It blocks until ctx is cancelled.
func (s *Search) FocusHold(ctx context.Context, interval time.Duration, minStep int, upOrDown bool, improvementRatio float64, maxConfirmations int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.FineTune(FocusHoldStep, minStep, upOrDown, improvementRatio, maxConfirmations); err != nil {
				return err
			}
		}
	}
}

// TestRun captures n images at equal Z spacing across the full
// calibrated travel, for offline characterization of the focus
// function (spec.md §4.10). It is not part of closed-loop control.
func (s *Search) TestRun(n int) error {
	length, err := s.Serial.ZLength()
	if err != nil {
		return err
	}
	step := -length / n
	for i := 0; i < n; i++ {
		if _, err := s.captureSample(); err != nil {
			return err
		}
		if err := s.Serial.ZMove(step); err != nil {
			return err
		}
		if err := s.Serial.WaitForIdle("z_move"); err != nil {
			return err
		}
	}
	return nil
}
