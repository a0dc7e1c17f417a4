// Package dispatch parses one assembled firmware command line and
// routes it to the stage and lighting subsystems, writing the framed
// reply the host's hostserial.Client expects.
//
// Grounded on SerialControl.cpp (OpenLabTools/Microscope); the command
// table is spec.md §4.3.
package dispatch

import (
	"bufio"
	"errors"
	"image/color"
	"strconv"
	"strings"

	"go.openlabtools.dev/microscope/stage"
)

// Lighting is the narrow surface dispatch needs from the lighting
// subsystem.
type Lighting interface {
	SetRingColor(rgb color.RGBA)
	SetRingBrightness(b uint8)
	SetStageLEDBrightness(b uint8)
}

// Stage is the narrow surface dispatch needs from the motion
// scheduler.
type Stage interface {
	Calibrated() bool
	Position(axis stage.Axis) (int32, error)
	DistanceToGo(axis stage.Axis) int32
	Length(axis stage.Axis) int32
	Move(axis stage.Axis, steps int32)
	MoveTo(axis stage.Axis, position int32) error
	Calibrate(step func(forward bool) error) error
}

// Dispatcher parses and routes one line at a time.
type Dispatcher struct {
	Stage    Stage
	Lighting Lighting
	// CalibrateStep drives one homing microstep; see Stage.Calibrate.
	CalibrateStep func(forward bool) error
}

// reply lines, matching SerialLink's framing contract (spec.md §4.2).
const (
	replyOK                = "OK"
	errUnknownCommand      = "ERR: UNKNOWN COMMAND"
	errNotCalibrated       = "ERR: NOT CALIBRATED"
	errPositionOutOfRange  = "ERR: POSITION OUT OF RANGE"
)

// Dispatch parses line and writes the framed reply to w, terminating
// every line with "\r\n".
func (d *Dispatcher) Dispatch(line string, w *bufio.Writer) error {
	command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "calibrate":
		// Blocking: no other command is parsed until homing completes
		// (spec.md §4.6). A step failure is a hardware fault, not a
		// protocol error, so it propagates without a reply line.
		if err := d.Stage.Calibrate(d.CalibrateStep); err != nil {
			return err
		}
		return writeLine(w, replyOK)

	case "is_calibrated":
		v := "0"
		if d.Stage.Calibrated() {
			v = "1"
		}
		if err := writeLine(w, v); err != nil {
			return err
		}
		return writeLine(w, replyOK)

	case "z_get_length":
		length := d.Stage.Length(stageAxisZ)
		if err := writeLine(w, strconv.FormatInt(int64(length), 10)); err != nil {
			return err
		}
		return writeLine(w, replyOK)

	case "z_get_position":
		pos, err := d.Stage.Position(stageAxisZ)
		if errors.Is(err, stage.ErrNotCalibrated) {
			return writeLine(w, errNotCalibrated)
		}
		if err := writeLine(w, strconv.FormatInt(int64(pos), 10)); err != nil {
			return err
		}
		return writeLine(w, replyOK)

	case "z_get_distance_to_go":
		dtg := d.Stage.DistanceToGo(stageAxisZ)
		if err := writeLine(w, strconv.FormatInt(int64(dtg), 10)); err != nil {
			return err
		}
		// Idiosyncratic terminator: a literal 0, then OK.
		if err := writeLine(w, "0"); err != nil {
			return err
		}
		return writeLine(w, replyOK)

	case "z_move":
		steps, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return writeLine(w, errUnknownCommand)
		}
		d.Stage.Move(stageAxisZ, int32(steps))
		return writeLine(w, replyOK)

	case "z_move_to":
		pos, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return writeLine(w, errUnknownCommand)
		}
		if err := d.Stage.MoveTo(stageAxisZ, int32(pos)); err != nil {
			switch {
			case errors.Is(err, stage.ErrNotCalibrated):
				return writeLine(w, errNotCalibrated)
			case errors.Is(err, stage.ErrOutOfRange):
				return writeLine(w, errPositionOutOfRange)
			default:
				return err
			}
		}
		return writeLine(w, replyOK)

	case "set_ring_colour":
		rgb, err := parseHexColor(arg)
		if err != nil {
			return writeLine(w, errUnknownCommand)
		}
		d.Lighting.SetRingColor(rgb)
		return writeLine(w, replyOK)

	case "set_ring_brightness":
		b, err := parseByte(arg)
		if err != nil {
			return writeLine(w, errUnknownCommand)
		}
		d.Lighting.SetRingBrightness(b)
		return writeLine(w, replyOK)

	case "set_stage_led_brightness":
		b, err := parseByte(arg)
		if err != nil {
			return writeLine(w, errUnknownCommand)
		}
		d.Lighting.SetStageLEDBrightness(b)
		return writeLine(w, replyOK)

	default:
		return writeLine(w, errUnknownCommand)
	}
}

// stageAxisZ avoids importing stage's Axis constants under a different
// name at every call site above.
const stageAxisZ = stage.AxisZ

func writeLine(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

func parseByte(arg string) (uint8, error) {
	v, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func parseHexColor(arg string) (color.RGBA, error) {
	if len(arg) != 6 {
		return color.RGBA{}, errors.New("dispatch: color must be 6 hex digits")
	}
	v, err := strconv.ParseUint(arg, 16, 32)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}, nil
}
