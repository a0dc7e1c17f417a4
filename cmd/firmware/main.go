// command firmware is the on-instrument motion/lighting controller: a
// cooperative main loop driving the stage scheduler, the ring/stage
// LED, and the line-oriented serial command protocol.
//
// Grounded on Stage.cpp/SerialControl.cpp's run-to-completion main
// loop (OpenLabTools/Microscope) and cmd/controller/main.go's wiring
// style (seedhammer.com).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"

	"go.openlabtools.dev/microscope/dispatch"
	"go.openlabtools.dev/microscope/iohw"
	"go.openlabtools.dev/microscope/lighting"
	"go.openlabtools.dev/microscope/serialline"
	"go.openlabtools.dev/microscope/stage"
)

var serialDev = flag.String("device", "/dev/serial0", "UART device the host speaks to")

func main() {
	flag.Parse()
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "firmware: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if _, err := host.Init(); err != nil {
		return err
	}

	motors := &gpioMotorBus{
		a: stepDirMotor{step: bcm283x.GPIO17, dir: bcm283x.GPIO27},
		b: stepDirMotor{step: bcm283x.GPIO22, dir: bcm283x.GPIO23},
		z: stepDirMotor{step: bcm283x.GPIO24, dir: bcm283x.GPIO25},
	}
	for _, pin := range []gpio.PinOut{
		motors.a.step, motors.a.dir, motors.b.step, motors.b.dir, motors.z.step, motors.z.dir,
	} {
		if err := pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("firmware: configuring motor pin %s: %w", pin, err)
		}
	}

	zUpper := &gpioLimitSwitch{pin: bcm283x.GPIO5}
	zLower := &gpioLimitSwitch{pin: bcm283x.GPIO6}
	for _, pin := range []gpio.PinIn{zUpper.pin, zLower.pin} {
		if err := pin.In(gpio.PullDown, gpio.None); err != nil {
			return fmt.Errorf("firmware: configuring limit switch %s: %w", pin, err)
		}
	}

	zUp := &gpioButton{pin: bcm283x.GPIO7}
	zDown := &gpioButton{pin: bcm283x.GPIO8}
	for _, pin := range []gpio.PinIn{zUp.pin, zDown.pin} {
		if err := pin.In(gpio.PullUp, gpio.None); err != nil {
			return fmt.Errorf("firmware: configuring jog button %s: %w", pin, err)
		}
	}

	st := stage.New(motors, zUpper, zLower)
	st.Manual = []stage.ManualInput{
		&stage.ButtonPair{Axis: stage.AxisZ, Up: zUp, Down: zDown},
	}

	light := lighting.New()
	bus := &ringAndLEDBus{stageLED: bcm283x.GPIO12}
	if err := bus.stageLED.Out(gpio.Low); err != nil {
		return err
	}

	dev, err := openSerial(*serialDev)
	if err != nil {
		return fmt.Errorf("firmware: opening %s: %w", *serialDev, err)
	}
	defer dev.Close()

	disp := &dispatch.Dispatcher{
		Stage:    st,
		Lighting: light,
		CalibrateStep: func(forward bool) error {
			return motors.Step(iohw.MotorZ, forward)
		},
	}

	return mainLoop(st, light, bus, dev, disp)
}

// mainLoop is the cooperative, run-to-completion firmware loop: tick
// the stage and lighting every iteration, and pump any available
// serial bytes through line assembly and dispatch. calibrate blocks
// this loop entirely, as specified.
func mainLoop(st *stage.Stage, light *lighting.Lighting, bus *ringAndLEDBus, dev io.ReadWriter, disp *dispatch.Dispatcher) error {
	var line serialline.CommandLine
	w := bufio.NewWriter(dev)
	var buf [64]byte
	start := time.Now()

	for {
		now := time.Since(start).Milliseconds()

		if err := st.Tick(now); err != nil {
			return err
		}
		if err := light.Tick(bus); err != nil {
			return err
		}

		n, err := dev.Read(buf[:])
		if err != nil {
			if err == io.EOF {
				continue
			}
			return err
		}
		for _, b := range buf[:n] {
			if line.Feed(b) {
				if err := disp.Dispatch(line.Line(), w); err != nil {
					log.Printf("firmware: dispatch: %v", err)
				}
				line.Reset()
			}
		}
	}
}
