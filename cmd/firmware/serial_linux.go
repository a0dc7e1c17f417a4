//go:build linux

// Raw-mode serial port setup, grounded on cmd/controller/debug_rpi.go's
// openSerial: configure the tty for 8-N-1 framing at the protocol's fixed
// baud rate before handing it to the line-oriented dispatcher, instead of
// trusting the OS default line discipline.
package main

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"go.openlabtools.dev/microscope/hostserial"
)

func openSerial(path string) (f *os.File, err error) {
	f, err = os.OpenFile(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	conn, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	var ctlErr error
	err = conn.Control(func(fd uintptr) {
		t := unix.Termios{
			Iflag:  unix.IGNPAR,
			Cflag:  unix.CREAD | unix.CLOCAL | unix.CS8 | unix.B9600,
			Ispeed: hostserial.Baud,
			Ospeed: hostserial.Baud,
		}
		t.Cc[unix.VMIN] = 1
		t.Cc[unix.VTIME] = 0
		if _, _, errno := unix.Syscall6(unix.SYS_IOCTL, fd, uintptr(unix.TCSETS), uintptr(unsafe.Pointer(&t)), 0, 0, 0); errno != 0 {
			ctlErr = errno
		}
	})
	if err != nil {
		return nil, err
	}
	if ctlErr != nil {
		return nil, fmt.Errorf("firmware: configuring %s raw mode: %w", path, ctlErr)
	}
	return f, nil
}
