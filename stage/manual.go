package stage

import "go.openlabtools.dev/microscope/iohw"

// LargeJog is the target offset used for a held jog button, large
// enough that the axis keeps moving until the button releases
// (spec.md §4.5: "≥ 1000 steps").
const LargeJog = 1000

// CommandKind is the kind of target update a manual input requests for
// one axis on one tick.
type CommandKind uint8

const (
	// CmdStop cancels pending motion: target := position.
	CmdStop CommandKind = iota
	// CmdJogPositive sets target := position + LargeJog.
	CmdJogPositive
	// CmdJogNegative sets target := position - LargeJog.
	CmdJogNegative
	// CmdStepRelative sets target := position + Steps.
	CmdStepRelative
)

// ManualCommand is one axis update requested by a manual input for the
// current tick.
type ManualCommand struct {
	Axis  Axis
	Kind  CommandKind
	Steps int32
}

// ManualInput is a manual control event source, polled once per tick.
// Button pairs, a rotary encoder with axis select, and a touchscreen
// region map all satisfy it (spec.md §4.5 and §9's "pluggable
// manual-input providers").
type ManualInput interface {
	Poll(now int64) []ManualCommand
}

// pollManual gathers this tick's manual commands from every configured
// input, applies them, and arbitrates the override latch per axis: an
// axis is held in override while a jog command is actively driving it,
// and on the tick jogging stops the held axis's target is cancelled to
// its current position exactly once (spec.md §3 ManualOverride,
// §4.5). CmdStepRelative (a rotary encoder detent or a touch-region
// tap) is a single-tick nudge, not a held jog: spec.md §4.5 only
// describes hold/cancel semantics for the jog buttons, so it's applied
// directly and never engages or is subject to the override latch — if
// it did, an encoder edge landing on a tick the X/Y step gate defers
// would be cancelled the very next tick by the no-new-edge branch
// below, silently dropping the pending step.
func (s *Stage) pollManual(now int64) {
	var touched [numAxes]bool
	for _, in := range s.Manual {
		for _, cmd := range in.Poll(now) {
			a := &s.axes[cmd.Axis]
			switch cmd.Kind {
			case CmdStop:
				a.Target = a.Position
				touched[cmd.Axis] = true
			case CmdJogPositive:
				a.Target = a.Position + LargeJog
				touched[cmd.Axis] = true
			case CmdJogNegative:
				a.Target = a.Position - LargeJog
				touched[cmd.Axis] = true
			case CmdStepRelative:
				a.Target = a.Position + cmd.Steps
			}
		}
	}
	for a := Axis(0); a < numAxes; a++ {
		if touched[a] {
			s.manualHeld[a] = true
		} else if s.manualHeld[a] {
			s.manualHeld[a] = false
			s.axes[a].Target = s.axes[a].Position
		}
	}
}

// ButtonPair is a pair of active-low jog buttons driving one axis,
// grounded on Stage.cpp's manualControl(): both pressed stops, either
// alone jogs LargeJog in that direction, neither cancels.
type ButtonPair struct {
	Axis     Axis
	Up, Down iohw.Input
}

func (b *ButtonPair) Poll(now int64) []ManualCommand {
	up, down := b.Up.Pressed(), b.Down.Pressed()
	switch {
	case up && down:
		return []ManualCommand{{Axis: b.Axis, Kind: CmdStop}}
	case up:
		return []ManualCommand{{Axis: b.Axis, Kind: CmdJogPositive}}
	case down:
		return []ManualCommand{{Axis: b.Axis, Kind: CmdJogNegative}}
	default:
		return nil
	}
}

// QuadratureSource reports a clean quadrature edge since the last
// call: +1, -1, or 0 if none occurred.
type QuadratureSource interface {
	Edge() int32
}

// selectDebounce is the encoder switch's debounce window (spec.md
// §4.5: "a debounced 50 ms press").
const selectDebounce = 50

// RotaryEncoder cycles the selected axis X->Y->Z->X on a debounced
// switch press and issues a ±1 relative move per quadrature edge on
// whichever axis is currently selected.
type RotaryEncoder struct {
	Select iohw.Input
	Quad   QuadratureSource

	axis         Axis
	wasPressed   bool
	pressStart   int64
	pressLatched bool
}

func nextAxis(a Axis) Axis {
	switch a {
	case AxisX:
		return AxisY
	case AxisY:
		return AxisZ
	default:
		return AxisX
	}
}

func (r *RotaryEncoder) Poll(now int64) []ManualCommand {
	pressed := r.Select.Pressed()
	if pressed && !r.wasPressed {
		r.pressStart = now
	}
	if pressed {
		if !r.pressLatched && now-r.pressStart >= selectDebounce {
			r.axis = nextAxis(r.axis)
			r.pressLatched = true
		}
	} else {
		r.pressLatched = false
	}
	r.wasPressed = pressed

	if d := r.Quad.Edge(); d != 0 {
		return []ManualCommand{{Axis: r.axis, Kind: CmdStepRelative, Steps: d}}
	}
	return nil
}

// TouchSource reports the current touch point and whether the panel is
// pressed.
type TouchSource interface {
	Read() (x, y int32, pressed bool)
}

// TouchRegion maps a pressure region to a per-axis relative step.
type TouchRegion struct {
	Contains func(x, y int32) bool
	Axis     Axis
	Steps    int32
}

// TouchPanel maps touch position to a per-axis ±1 target via
// pre-defined pressure regions (spec.md §4.5).
type TouchPanel struct {
	Source  TouchSource
	Regions []TouchRegion
}

func (t *TouchPanel) Poll(now int64) []ManualCommand {
	x, y, pressed := t.Source.Read()
	if !pressed {
		return nil
	}
	for _, r := range t.Regions {
		if r.Contains(x, y) {
			return []ManualCommand{{Axis: r.Axis, Kind: CmdStepRelative, Steps: r.Steps}}
		}
	}
	return nil
}
