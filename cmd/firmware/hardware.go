// Hardware wiring for the motion controller, grounded on
// input/input.go and driver/wshat/wshat.go's periph.io GPIO setup
// style: logical pins named by role, mapped to bcm283x lines, driven
// through the narrow interfaces the firmware packages declare
// (iohw.MotorBus, iohw.LimitSwitch, iohw.Input, iohw.RingBus,
// iohw.StageLEDBus).
package main

import (
	"errors"
	"image/color"

	"periph.io/x/conn/v3/gpio"

	"go.openlabtools.dev/microscope/iohw"
)

// stepDirMotor drives one stepper via a step/direction pin pair, the
// common interface for both discrete drivers and motor-shield-style
// I2C bridges exposed as GPIO (the shield chip itself stays out of
// scope; only this narrow pulse interface is modeled).
type stepDirMotor struct {
	step, dir gpio.PinOut
}

func (m *stepDirMotor) pulse(forward bool) error {
	level := gpio.Low
	if forward {
		level = gpio.High
	}
	if err := m.dir.Out(level); err != nil {
		return err
	}
	if err := m.step.Out(gpio.High); err != nil {
		return err
	}
	return m.step.Out(gpio.Low)
}

// gpioMotorBus implements iohw.MotorBus over three step/direction pin
// pairs (CoreXY motors A and B, plus Z).
type gpioMotorBus struct {
	a, b, z stepDirMotor
}

func (g *gpioMotorBus) Step(motor iohw.Motor, forward bool) error {
	switch motor {
	case iohw.MotorA:
		return g.a.pulse(forward)
	case iohw.MotorB:
		return g.b.pulse(forward)
	case iohw.MotorZ:
		return g.z.pulse(forward)
	default:
		return errors.New("firmware: unknown motor")
	}
}

// gpioLimitSwitch implements iohw.LimitSwitch over a digital input pin.
type gpioLimitSwitch struct {
	pin gpio.PinIn
}

func (s *gpioLimitSwitch) Asserted() bool {
	return s.pin.Read() == gpio.High
}

// gpioButton implements iohw.Input over an active-low digital pin.
type gpioButton struct {
	pin gpio.PinIn
}

func (b *gpioButton) Pressed() bool {
	return b.pin.Read() == gpio.Low
}

// ringAndLEDBus implements iohw.RingBus and iohw.StageLEDBus. The ring
// is an addressable (WS2812-style) bus, out of scope per the
// specification beyond this narrow Write call; stageLED is a plain
// PWM-capable GPIO pin.
type ringAndLEDBus struct {
	ring     ringWriter
	stageLED gpio.PinOut
}

// ringWriter is the addressable-LED bus's narrow surface: one 24-bit
// color per pixel, transferred in a single transaction.
type ringWriter interface {
	WriteColors(pixels [16]color.RGBA) error
}

func (r *ringAndLEDBus) WriteRing(pixels [16]color.RGBA) error {
	return r.ring.WriteColors(pixels)
}

func (r *ringAndLEDBus) WriteStageLED(duty uint8) error {
	// Scale an 8-bit duty cycle to periph's 16-bit PWM range.
	return r.stageLED.PWM(int(duty) * gpio.Max / 255)
}
