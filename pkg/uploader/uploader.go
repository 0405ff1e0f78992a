// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

// Package uploader drives one font transfer to the STM32 display board.
//
// A transfer is four steps: select the font slot with a trigger byte,
// declare the total length with START until the board acks it, stream the
// payload as acknowledged DATA chunks, then send END. The board writes
// the bytes into its SPI flash font file as they arrive, so a failed
// transfer cannot be resumed; the caller starts a new session and sends
// everything again.
//
// About the sleeps in this code: the delays between protocol writes are
// required by the board's receive loop, which polls its UART between
// flash operations. They are part of the exchange, not tuning. Tests
// substitute the sleep function and run the whole protocol instantly.
package uploader

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/gmofishsauce/fontkit/pkg/proto"
)

var log = logging.MustGetLogger("fontkit")

// followOnWait bounds reply reads after the first byte has arrived. A
// board that is transmitting sends back to back, so only the first byte
// of a window deserves the full ack timeout.
const followOnWait = 50 * time.Millisecond

// Link is the transport a session runs over. *stm32.Board implements it;
// tests substitute an in-memory fake.
type Link interface {
	// ReadFor returns the next byte from the board, or an error for
	// which os.IsTimeout reports true when nothing arrived in time.
	ReadFor(timeout time.Duration) (byte, error)

	// Write sends p in full.
	Write(p []byte) error

	// Drain blocks until written bytes are on the wire.
	Drain() error

	// ResetInputBuffer discards received but unread bytes.
	ResetInputBuffer() error

	// ResetOutputBuffer discards written but untransmitted bytes.
	ResetOutputBuffer() error
}

// Session is one attempt to push a payload to the board. Sessions are
// single use: a session owns the link from the trigger byte until END or
// the first terminal failure, and it keeps no state across runs.
type Session struct {
	link Link
	opt  options
	sent int64
}

// New builds a session over link.
func New(link Link, opts ...Option) (*Session, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Session{link: link, opt: o}, nil
}

// Send transfers size bytes from src to the board and returns the number
// of payload bytes the board acknowledged. On error the count tells the
// operator how far the transfer got before it died.
func (s *Session) Send(src io.Reader, size int64) (int64, error) {
	if size < 0 || size > proto.MaxPayloadSize {
		return 0, errors.Errorf("payload size %d out of range (0..%d)", size, proto.MaxPayloadSize)
	}
	if err := s.selectFont(); err != nil {
		return s.sent, err
	}
	if err := s.handshake(uint32(size)); err != nil {
		return s.sent, err
	}
	if err := s.transfer(src, size); err != nil {
		return s.sent, err
	}
	return s.sent, s.finish()
}

// selectFont clears the link and sends the font slot trigger, then looks
// for the "OK" current firmware prints back. The check is advisory: old
// firmware says nothing, and boot chatter can crowd the reply out of the
// window. Either way the board has switched slots, so a miss is logged
// and the session continues.
func (s *Session) selectFont() error {
	if err := s.link.ResetInputBuffer(); err != nil {
		return errors.Wrap(err, "reset input buffer")
	}
	if err := s.link.ResetOutputBuffer(); err != nil {
		return errors.Wrap(err, "reset output buffer")
	}

	log.Debugf("sending %s", proto.CommandName(s.opt.trigger))
	if err := s.writeAndDrain([]byte{s.opt.trigger}); err != nil {
		return errors.Wrap(err, "send font trigger")
	}

	window, err := s.readWindow(proto.ModeAckWindow)
	if err != nil {
		return errors.Wrap(err, "read font trigger reply")
	}
	if bytes.Contains(window, []byte("OK")) {
		log.Debug("board acknowledged font slot")
	} else {
		log.Warningf("no OK after font trigger (got % X), continuing", window)
	}

	s.opt.sleep(s.opt.timing.ModeSettle)
	return nil
}

// handshake declares the payload length and retries START until the board
// commits. A board still mounting its filesystem answers nothing for the
// first several attempts; the budget covers that and a margin. The reply
// window is scanned for the ACK anywhere among debug bytes. Each attempt
// first discards whatever arrived since the last one, so a stale reply
// cannot satisfy a later attempt.
func (s *Session) handshake(size uint32) error {
	if err := s.link.ResetInputBuffer(); err != nil {
		return errors.Wrap(err, "reset input buffer")
	}
	if err := s.link.ResetOutputBuffer(); err != nil {
		return errors.Wrap(err, "reset output buffer")
	}

	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], size)

	budget := s.opt.budget
	log.Debugf("%s with length %d, budget %d", proto.CommandName(proto.CmdStart), size, budget.Size())

	for budget.Spend() {
		if err := s.link.ResetInputBuffer(); err != nil {
			return errors.Wrap(err, "reset input buffer")
		}
		s.opt.sleep(budget.Backoff())

		if err := s.writeAndDrain([]byte{proto.CmdStart}); err != nil {
			return errors.Wrap(err, "send START")
		}
		s.opt.sleep(s.opt.timing.StartGap)
		if err := s.writeAndDrain(length[:]); err != nil {
			return errors.Wrap(err, "send payload length")
		}
		s.opt.sleep(s.opt.timing.LengthGap)

		window, err := s.readWindow(proto.StartAckWindow)
		if err != nil {
			return errors.Wrap(err, "read START reply")
		}
		if bytes.IndexByte(window, proto.Ack) >= 0 {
			log.Debugf("START acknowledged on attempt %d", budget.Spent())
			return nil
		}
		// Report every fifth attempt rather than fifty lines of silence.
		if budget.Spent()%5 == 0 {
			if len(window) > 0 {
				log.Debugf("attempt %d: got % X, no ACK", budget.Spent(), window)
			} else {
				log.Debugf("waiting for board ACK (attempt %d/%d)", budget.Spent(), budget.Size())
			}
		}
	}
	return &HandshakeError{Attempts: budget.Size()}
}

// transfer streams the payload as fixed-size chunks, the last one short.
// Each chunk is read from src before any of its frame goes on the wire,
// so a source failure cannot leave the board waiting on a half-sent
// frame. The board acks every chunk after committing it to flash; one
// bad or missing ack ends the session.
func (s *Session) transfer(src io.Reader, size int64) error {
	chunk := make([]byte, s.opt.chunkSize)
	var length [2]byte

	for s.sent < size {
		want := size - s.sent
		if want > int64(s.opt.chunkSize) {
			want = int64(s.opt.chunkSize)
		}
		if _, err := io.ReadFull(src, chunk[:want]); err != nil {
			return errors.Wrapf(err, "read payload at offset %d", s.sent)
		}

		if err := s.link.Write([]byte{proto.CmdData}); err != nil {
			return errors.Wrap(err, "send DATA")
		}
		s.opt.sleep(s.opt.timing.DataGap)

		binary.LittleEndian.PutUint16(length[:], uint16(want))
		if err := s.link.Write(length[:]); err != nil {
			return errors.Wrap(err, "send chunk length")
		}
		s.opt.sleep(s.opt.timing.DataGap)

		if err := s.link.Write(chunk[:want]); err != nil {
			return errors.Wrapf(err, "send chunk at offset %d", s.sent)
		}
		s.opt.sleep(s.opt.timing.ChunkSettle)

		b, err := s.link.ReadFor(s.opt.ackTimeout)
		if err != nil {
			if os.IsTimeout(err) {
				return &AckError{Offset: s.sent, Timeout: true}
			}
			return errors.Wrapf(err, "read ACK at offset %d", s.sent)
		}
		if b != proto.Ack {
			return &AckError{Offset: s.sent, Response: b}
		}

		s.sent += want
		if s.opt.progress != nil {
			s.opt.progress(s.sent, size)
		}
	}
	return nil
}

// finish tells the board the transfer is complete. The board closes its
// font file on END and prints a summary nobody waits for.
func (s *Session) finish() error {
	log.Debugf("sending %s", proto.CommandName(proto.CmdEnd))
	if err := s.link.Write([]byte{proto.CmdEnd}); err != nil {
		return errors.Wrap(err, "send END")
	}
	s.opt.sleep(s.opt.timing.EndSettle)
	log.Debugf("transfer complete: %d bytes acknowledged", s.sent)
	return nil
}

// readWindow collects up to max reply bytes. The first byte gets the full
// ack timeout; the rest of the window gets followOnWait each. A timeout
// closes the window early: an empty or short window is a protocol answer,
// not a link failure.
func (s *Session) readWindow(max int) ([]byte, error) {
	window := make([]byte, 0, max)
	wait := s.opt.ackTimeout
	for len(window) < max {
		b, err := s.link.ReadFor(wait)
		if err != nil {
			if os.IsTimeout(err) {
				break
			}
			return window, err
		}
		window = append(window, b)
		wait = followOnWait
	}
	return window, nil
}

// writeAndDrain pushes p fully onto the wire before returning. The settle
// delays are measured from the last bit on the line, not the write call.
func (s *Session) writeAndDrain(p []byte) error {
	if err := s.link.Write(p); err != nil {
		return err
	}
	return s.link.Drain()
}
