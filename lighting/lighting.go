// Package lighting implements the ring illuminator and stage LED of the
// microscope firmware.
//
// Grounded on Lighting.cpp/Lighting.h (OpenLabTools/Microscope): a
// 16-pixel addressable ring plus one PWM stage LED, coalesced into a
// single bus transfer per main-loop tick.
package lighting

import (
	"image/color"

	"go.openlabtools.dev/microscope/iohw"
)

const pixelCount = 16

// Lighting holds the pending frame for the ring and stage LED. Set*
// calls only mutate in-memory state; Tick flushes the pending frame to
// the hardware bus so that several Set calls within one tick coalesce
// into one bus transfer.
type Lighting struct {
	ring       [pixelCount]color.RGBA
	brightness uint8
	stageLED   uint8

	dirty bool
}

// New returns a Lighting with the ring off and brightness at full.
func New() *Lighting {
	return &Lighting{brightness: 255}
}

// SetRingColor writes rgb to all 16 pixels of the pending frame.
func (l *Lighting) SetRingColor(rgb color.RGBA) {
	for i := range l.ring {
		l.ring[i] = rgb
	}
	l.dirty = true
}

// SetRingBrightness scales all pixel outputs by b/255 on the next Tick.
func (l *Lighting) SetRingBrightness(b uint8) {
	l.brightness = b
	l.dirty = true
}

// SetStageLEDBrightness sets the PWM duty on the stage LED.
func (l *Lighting) SetStageLEDBrightness(b uint8) {
	l.stageLED = b
	l.dirty = true
}

func scale(c uint8, brightness uint8) uint8 {
	return uint8((uint16(c) * uint16(brightness)) / 255)
}

// Tick flushes the pending ring frame and stage LED duty to bus. It
// must be called once per main-loop iteration.
func (l *Lighting) Tick(bus interface {
	iohw.RingBus
	iohw.StageLEDBus
}) error {
	if !l.dirty {
		return nil
	}
	var out [pixelCount]color.RGBA
	for i, px := range l.ring {
		out[i] = color.RGBA{
			R: scale(px.R, l.brightness),
			G: scale(px.G, l.brightness),
			B: scale(px.B, l.brightness),
			A: px.A,
		}
	}
	if err := bus.WriteRing(out); err != nil {
		return err
	}
	if err := bus.WriteStageLED(l.stageLED); err != nil {
		return err
	}
	l.dirty = false
	return nil
}
