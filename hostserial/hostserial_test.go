package hostserial

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

// fakePort lets a test script a canned reply stream while capturing
// what the client writes, without touching a real serial device.
type fakePort struct {
	written bytes.Buffer
	reply   *bytes.Reader
}

func (f *fakePort) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakePort) Read(p []byte) (int, error)  { return f.reply.Read(p) }
func (f *fakePort) Close() error                { return nil }

func newTestClient(reply string) (*Client, *fakePort) {
	f := &fakePort{reply: bytes.NewReader([]byte(reply))}
	return &Client{port: f, r: bufio.NewReader(f)}, f
}

func TestSendReturnsValueLinesBeforeOK(t *testing.T) {
	c, f := newTestClient("1\r\nOK\r\n")
	values, err := c.Send("is_calibrated")
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 || values[0] != "1" {
		t.Fatalf("values = %v", values)
	}
	if f.written.String() != "is_calibrated\n" {
		t.Fatalf("wrote %q", f.written.String())
	}
}

func TestSendClassifiesKnownErrors(t *testing.T) {
	c, _ := newTestClient("ERR: NOT CALIBRATED\r\n")
	_, err := c.Send("z_get_position")
	if err != ErrNotCalibrated {
		t.Fatalf("err = %v, want ErrNotCalibrated", err)
	}
}

func TestSendClassifiesUnrecognizedErrorAsProtocolError(t *testing.T) {
	c, _ := newTestClient("ERR: SOMETHING ELSE\r\n")
	_, err := c.Send("bogus")
	pe, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("err = %v (%T), want *ProtocolError", err, err)
	}
	if pe.Line != "ERR: SOMETHING ELSE" {
		t.Fatalf("Line = %q", pe.Line)
	}
}

func TestZGetDistanceToGoFraming(t *testing.T) {
	c, _ := newTestClient("0\r\n0\r\nOK\r\n")
	idle, err := c.zDistanceToGo()
	if err != nil {
		t.Fatal(err)
	}
	if !idle {
		t.Fatal("want idle true for value 0")
	}
}

func TestZGetDistanceToGoNotIdle(t *testing.T) {
	c, _ := newTestClient("42\r\n0\r\nOK\r\n")
	idle, err := c.zDistanceToGo()
	if err != nil {
		t.Fatal(err)
	}
	if idle {
		t.Fatal("want idle false for non-zero value")
	}
}

func TestZLengthParsesInteger(t *testing.T) {
	c, _ := newTestClient("12345\r\nOK\r\n")
	length, err := c.ZLength()
	if err != nil {
		t.Fatal(err)
	}
	if length != 12345 {
		t.Fatalf("length = %d", length)
	}
}

func TestSetRingColorFormatsSixHexDigits(t *testing.T) {
	c, f := newTestClient("OK\r\n")
	if err := c.SetRingColor(0xff00aa); err != nil {
		t.Fatal(err)
	}
	if f.written.String() != "set_ring_colour ff00aa\n" {
		t.Fatalf("wrote %q", f.written.String())
	}
}

func TestCalibrateWritesWithoutConsumingReply(t *testing.T) {
	c, f := newTestClient("OK\r\n")
	if err := c.Calibrate(); err != nil {
		t.Fatal(err)
	}
	if f.written.String() != "calibrate\n" {
		t.Fatalf("wrote %q", f.written.String())
	}
	line, err := c.readLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "OK" {
		t.Fatalf("reply still buffered, got %q", line)
	}
}

func TestWaitForIdleCalibrateConsumesSingleOK(t *testing.T) {
	c, _ := newTestClient("OK\r\n")
	if err := c.WaitForIdle("calibrate"); err != nil {
		t.Fatal(err)
	}
}

func TestSendWritesFailPropagate(t *testing.T) {
	c, _ := newTestClient("")
	c.port = failWriter{}
	c.r = bufio.NewReader(bytes.NewReader(nil))
	if _, err := c.Send("is_calibrated"); err == nil {
		t.Fatal("want error on write failure")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (failWriter) Read([]byte) (int, error)  { return 0, io.EOF }
func (failWriter) Close() error              { return nil }
