// Package hostserial implements the host-side half of the line-oriented
// serial command protocol: translating calls into command lines,
// reading replies, and classifying each line as a value, the
// terminator, or an error, so that a command's full multi-line reply
// is always consumed before the next is issued.
//
// Grounded on the seedhammer.com mjolnir package's Open/transaction-loop structure
// (github.com/tarm/serial framing a request/response device), rebuilt
// around newline-framed text instead of binary command bytes.
package hostserial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// Baud matches spec.md §6: 9600 baud 8-N-1.
const Baud = 9600

// ProtocolError is a firmware ERR: reply line other than the three
// that map to the sentinel errors below.
type ProtocolError struct {
	Line string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("hostserial: firmware error: %s", e.Line)
}

// Sentinel protocol errors, returned as-is by Send for the three ERR:
// lines the firmware emits; any other ERR: line is returned as a
// *ProtocolError instead.
var (
	ErrUnknownCommand = errors.New("hostserial: ERR: UNKNOWN COMMAND")
	ErrNotCalibrated  = errors.New("hostserial: ERR: NOT CALIBRATED")
	ErrOutOfRange     = errors.New("hostserial: ERR: POSITION OUT OF RANGE")
)

func classifyError(line string) error {
	switch line {
	case "ERR: UNKNOWN COMMAND":
		return ErrUnknownCommand
	case "ERR: NOT CALIBRATED":
		return ErrNotCalibrated
	case "ERR: POSITION OUT OF RANGE":
		return ErrOutOfRange
	default:
		return &ProtocolError{Line: line}
	}
}

// Client is a framed request/response transport to the instrument
// firmware. It is not safe for concurrent use: the serial line is a
// single request/response channel (spec.md §5).
type Client struct {
	port io.ReadWriteCloser
	r    *bufio.Reader
}

// Open dials dev at the protocol's fixed baud rate, mirroring
// mjolnir.Open's device-probing Open call but against a single named
// device (spec.md has no multi-client or auto-probe requirement).
func Open(dev string) (*Client, error) {
	port, err := serial.OpenPort(&serial.Config{Name: dev, Baud: Baud})
	if err != nil {
		return nil, fmt.Errorf("hostserial: opening %s: %w", dev, err)
	}
	return &Client{port: port, r: bufio.NewReader(port)}, nil
}

// Close releases the underlying serial port.
func (c *Client) Close() error {
	return c.port.Close()
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("hostserial: transport: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Send writes cmd (a command verb, optionally followed by " "+arg) and
// reads its reply. It consumes every line up to and including the
// terminator (OK) or an ERR: line, so the receive buffer is always
// empty again once Send returns (spec.md §8's synchronization
// invariant). The returned values are the value lines that preceded
// the terminator, if any.
func (c *Client) Send(cmd string) ([]string, error) {
	if _, err := io.WriteString(c.port, cmd+"\n"); err != nil {
		return nil, fmt.Errorf("hostserial: writing %q: %w", cmd, err)
	}
	var values []string
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		switch {
		case line == "OK":
			return values, nil
		case strings.HasPrefix(line, "ERR:"):
			return nil, classifyError(line)
		default:
			values = append(values, line)
		}
	}
}

// IsCalibrated queries the stage's calibration state.
func (c *Client) IsCalibrated() (bool, error) {
	values, err := c.Send("is_calibrated")
	if err != nil {
		return false, err
	}
	return parseSingleValue(values) == "1", nil
}

// Calibrate starts the (blocking, firmware-side) homing sequence. It
// only writes the request: the firmware doesn't emit "calibrate"'s OK
// terminator until homing completes, which can take many seconds, so
// the caller must follow up with WaitForIdle("calibrate") to perform
// the single read that consumes it rather than blocking here.
func (c *Client) Calibrate() error {
	if _, err := io.WriteString(c.port, "calibrate\n"); err != nil {
		return fmt.Errorf("hostserial: writing calibrate: %w", err)
	}
	return nil
}

// ZLength returns the Z axis's calibrated travel length.
func (c *Client) ZLength() (int, error) {
	values, err := c.Send("z_get_length")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(parseSingleValue(values))
}

// ZPosition returns the Z axis's current absolute position. It fails
// with ErrNotCalibrated before calibration.
func (c *Client) ZPosition() (int, error) {
	values, err := c.Send("z_get_position")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(parseSingleValue(values))
}

// ZMove issues a relative Z move.
func (c *Client) ZMove(steps int) error {
	_, err := c.Send(fmt.Sprintf("z_move %d", steps))
	return err
}

// ZMoveTo issues an absolute Z move.
func (c *Client) ZMoveTo(position int) error {
	_, err := c.Send(fmt.Sprintf("z_move_to %d", position))
	return err
}

// SetRingColor sends a 6-hex-digit RGB color to the ring.
func (c *Client) SetRingColor(rgb uint32) error {
	_, err := c.Send(fmt.Sprintf("set_ring_colour %06x", rgb&0xffffff))
	return err
}

// SetRingBrightness sets the ring's 0-255 brightness scalar.
func (c *Client) SetRingBrightness(b uint8) error {
	_, err := c.Send(fmt.Sprintf("set_ring_brightness %d", b))
	return err
}

// SetStageLEDBrightness sets the stage LED's 0-255 PWM duty.
func (c *Client) SetStageLEDBrightness(b uint8) error {
	_, err := c.Send(fmt.Sprintf("set_stage_led_brightness %d", b))
	return err
}

// zDistanceToGo is the raw three-line query this protocol uses as its
// idle-polling primitive (spec.md §4.7): a value line, a literal "0"
// terminator line, then OK. idle reports true iff the value line
// itself is "0".
func (c *Client) zDistanceToGo() (idle bool, err error) {
	if _, err := io.WriteString(c.port, "z_get_distance_to_go\n"); err != nil {
		return false, fmt.Errorf("hostserial: writing z_get_distance_to_go: %w", err)
	}
	value, err := c.readLine()
	if err != nil {
		return false, err
	}
	terminator, err := c.readLine()
	if err != nil {
		return false, err
	}
	if terminator != "0" {
		return false, fmt.Errorf("hostserial: unexpected z_get_distance_to_go terminator %q", terminator)
	}
	ok, err := c.readLine()
	if err != nil {
		return false, err
	}
	if ok != "OK" {
		return false, fmt.Errorf("hostserial: unexpected z_get_distance_to_go tail %q", ok)
	}
	return value == "0", nil
}

// WaitForIdle blocks until the motion triggered by triggeringCommand
// has completed. For "calibrate" it performs a single blocking read to
// the OK terminator (the command is already blocking on the firmware);
// otherwise it polls zDistanceToGo, sleeping ~1s between polls to
// avoid saturating the serial line (spec.md §4.7, §5).
func (c *Client) WaitForIdle(triggeringCommand string) error {
	if triggeringCommand == "calibrate" {
		_, err := c.readLine()
		return err
	}
	for {
		idle, err := c.zDistanceToGo()
		if err != nil {
			return err
		}
		if idle {
			return nil
		}
		time.Sleep(time.Second)
	}
}

func parseSingleValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
