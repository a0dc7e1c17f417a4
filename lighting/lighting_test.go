package lighting

import (
	"image/color"
	"testing"
)

type fakeBus struct {
	ring     [pixelCount]color.RGBA
	stageLED uint8
	writes   int
}

func (f *fakeBus) WriteRing(pixels [16]color.RGBA) error {
	f.ring = pixels
	f.writes++
	return nil
}

func (f *fakeBus) WriteStageLED(duty uint8) error {
	f.stageLED = duty
	return nil
}

func TestSetRingBrightnessScalesAllPixels(t *testing.T) {
	l := New()
	l.SetRingColor(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	l.SetRingBrightness(128)
	bus := &fakeBus{}
	if err := l.Tick(bus); err != nil {
		t.Fatal(err)
	}
	want := scale(255, 128)
	for i, px := range bus.ring {
		if px.R != want || px.G != want || px.B != want {
			t.Fatalf("pixel %d = %+v, want scaled to %d", i, px, want)
		}
	}
}

func TestTickCoalescesMultipleSets(t *testing.T) {
	l := New()
	l.SetRingColor(color.RGBA{R: 1, G: 2, B: 3, A: 255})
	l.SetRingColor(color.RGBA{R: 9, G: 8, B: 7, A: 255})
	l.SetStageLEDBrightness(50)
	bus := &fakeBus{}
	if err := l.Tick(bus); err != nil {
		t.Fatal(err)
	}
	if bus.writes != 1 {
		t.Fatalf("writes = %d, want 1", bus.writes)
	}
	if bus.ring[0].R != 9 {
		t.Fatalf("ring not coalesced to last write: %+v", bus.ring[0])
	}
	if bus.stageLED != 50 {
		t.Fatalf("stageLED = %d, want 50", bus.stageLED)
	}
}

func TestTickSkipsWhenClean(t *testing.T) {
	l := New()
	bus := &fakeBus{}
	if err := l.Tick(bus); err != nil {
		t.Fatal(err)
	}
	if bus.writes != 0 {
		t.Fatalf("writes = %d, want 0 when nothing changed", bus.writes)
	}
}
