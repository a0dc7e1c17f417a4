// Package iohw declares the narrow hardware interfaces the firmware
// packages (lighting, stage) drive. Concrete implementations live in
// cmd/firmware, wired to periph.io GPIO pins; stepper-driver
// chips, the NeoPixel bus and the physical switches themselves stay
// out of scope, as do their wire protocols.
package iohw

import "image/color"

// RingBus flushes a ring frame to the addressable LED hardware. Each
// call is one bus transfer; lighting.Lighting.Tick calls it at most
// once per tick, coalescing that tick's Set calls.
type RingBus interface {
	WriteRing(pixels [16]color.RGBA) error
}

// StageLEDBus drives the stage illumination LED's PWM duty cycle.
type StageLEDBus interface {
	WriteStageLED(duty uint8) error
}

// MotorBus is the narrow surface stage.Stage needs from a stepper
// driver chip: emit one step pulse in a direction. It is intentionally
// ignorant of the chip's register protocol (I2C, UART, or otherwise);
// that detail is out of scope per the specification and lives entirely
// in the concrete implementation wired up in cmd/firmware.
type MotorBus interface {
	// Step pulses the named motor one microstep. forward selects
	// direction; the sign convention is owned by the caller.
	Step(motor Motor, forward bool) error
}

// Motor identifies one of the two CoreXY drive motors or the Z motor.
type Motor uint8

const (
	MotorA Motor = iota
	MotorB
	MotorZ
)

// LimitSwitch reports whether an axis has reached a travel extremum.
type LimitSwitch interface {
	Asserted() bool
}

// Input reports the instantaneous state of a manual control (a button,
// an encoder detent, a touch region). Pressed is active-high regardless
// of the underlying electrical convention; implementations invert
// active-low signals themselves.
type Input interface {
	Pressed() bool
}
