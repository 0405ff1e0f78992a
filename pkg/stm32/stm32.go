// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

// Package stm32 provides synchronous byte I/O to the STM32 display board
// over its USB serial adapter. The adapter's DTR line is not wired to the
// MCU reset, so unlike an Arduino the board does not restart when the host
// opens the port; the application firmware is already running and may be
// emitting debug output at any moment. Callers clear the buffers before
// talking protocol rather than waiting out a reset.
//
// Everything here is blocking and runs on the caller's goroutine. The
// serial port object is not threadsafe (Read and Close race), and the
// upload protocol is strictly request/response, so there is nothing for
// a second goroutine to do. Reads take a timeout so no call blocks
// forever waiting on a wedged board.
package stm32

import (
	"fmt"
	"syscall"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var log = logging.MustGetLogger("fontkit")

// Board is an open serial connection to the display board.
type Board struct {
	port   serial.Port
	device string
	baud   int
}

// NoResponseError reports that the board sent nothing within the wait.
type NoResponseError time.Duration

func (nre NoResponseError) Error() string {
	return fmt.Sprintf("read from board: no response after %v", time.Duration(nre))
}

// Timeout marks the error for os.IsTimeout, letting callers tell a silent
// board from a broken link.
func (nre NoResponseError) Timeout() bool {
	return true
}

// Open connects to the board at deviceName. Everything but the bit rate
// is fixed by the firmware: 8 data bits, no parity, one stop bit.
func Open(deviceName string, baudRate int) (*Board, error) {
	mode := &serial.Mode{BaudRate: baudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(deviceName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", deviceName)
	}
	log.Debugf("%s open at %d baud", deviceName, baudRate)
	return &Board{port: port, device: deviceName, baud: baudRate}, nil
}

// Device returns the device name the board was opened on.
func (b *Board) Device() string {
	return b.device
}

// BaudRate returns the bit rate the board was opened at.
func (b *Board) BaudRate() int {
	return b.baud
}

// ReadFor reads the board until a byte is received or timeout expires.
// Timeout expiry is a NoResponseError, which os.IsTimeout recognizes.
func (b *Board) ReadFor(timeout time.Duration) (byte, error) {
	buf := make([]byte, 1)
	var n int
	var err error

	if err = b.port.SetReadTimeout(timeout); err != nil {
		return 0, errors.Wrap(err, "set read timeout")
	}
	// The for-loop is solely to handle EINTR, which occurs constantly
	// as a result of Golang's goroutine-level context switching mechanism.
	for {
		n, err = b.port.Read(buf)
		if !isRetryableSyscallError(err) {
			break
		}
		if n != 0 {
			panic("bytes returned despite EINTR")
		}
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, NoResponseError(timeout)
	}
	return buf[0], nil
}

// Write sends p to the board in full. A write the driver will not accept
// is an error; see the note on writeAll about buffer-full hangs.
func (b *Board) Write(p []byte) error {
	return b.writeAll(p)
}

// Drain blocks until the OS has pushed every written byte onto the wire.
// The protocol's settle delays are measured from the last bit on the
// line, not from the write call, so commands are drained before sleeping.
func (b *Board) Drain() error {
	return b.port.Drain()
}

// ResetInputBuffer discards bytes the board sent but the host never read,
// typically boot chatter and debug prints.
func (b *Board) ResetInputBuffer() error {
	return b.port.ResetInputBuffer()
}

// ResetOutputBuffer discards bytes written but not yet transmitted.
func (b *Board) ResetOutputBuffer() error {
	return b.port.ResetOutputBuffer()
}

// Close releases the serial port. The Board is unusable afterward.
func (b *Board) Close() error {
	if b.port == nil {
		return errors.New("close: port not open")
	}
	if err := b.port.Close(); err != nil {
		log.Errorf("close %s: %v", b.device, err)
		return err
	}
	log.Debugf("%s closed", b.device)
	b.port = nil
	return nil
}

// If the board stops receiving, the OS serial buffer absorbs writes until
// it fills, and the write after that hangs indefinitely. The buffer size
// is a fact about the driver that is hard to establish, but it is much
// larger than any frame this protocol sends, and the per-chunk ACK keeps
// the host from ever running more than one chunk ahead of the board.
func (b *Board) writeAll(p []byte) error {
	sent := 0
	for sent < len(p) {
		var n int
		var err error
		// The for-loop is solely to handle EINTR, as in ReadFor.
		for {
			n, err = b.port.Write(p[sent:])
			if !isRetryableSyscallError(err) {
				break
			}
			if n != 0 {
				panic("bytes written despite EINTR")
			}
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Errorf("write consumed 0 of %d bytes", len(p)-sent)
		}
		sent += n
	}
	return nil
}

func isRetryableSyscallError(err error) bool {
	const eIntr = 4
	if errno, ok := err.(syscall.Errno); ok {
		return errno == eIntr
	}
	return false
}
