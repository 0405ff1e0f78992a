// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

package uploader

// In-memory stand-ins for the board and its serial link. The fake remote
// implements the receiving half of the exchange the way the firmware
// does: wait for a trigger byte, print OK, ack START when ready, ack
// each chunk, swallow END. Knobs make it misbehave in every way a
// session has to survive or report.

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/gmofishsauce/fontkit/pkg/proto"
)

// timeoutError stands in for the link's no-response error.
type timeoutError struct{}

func (timeoutError) Error() string { return "fake link: read timeout" }
func (timeoutError) Timeout() bool { return true }

const (
	remoteIdle = iota
	remoteCommand
	remoteStartLength
	remoteChunkLength
	remoteChunkBody
	remoteDone
)

// fakeRemote is the board side of the exchange, driven synchronously by
// host writes. Replies are queued on the link's inbox as soon as the
// write that provokes them completes.
type fakeRemote struct {
	// knobs
	quietTrigger bool   // do not print OK after the trigger
	neverAck     bool   // never acknowledge START
	ackOnAttempt int    // first START attempt to acknowledge (0 means 1)
	noise        []byte // junk emitted before the START ack
	nackAtChunk  int    // reply to this chunk (1-based) with nackWith
	nackWith     byte
	dropAtChunk  int // reply to this chunk (1-based) with silence

	// observed
	trigger byte
	size    uint32
	starts  int
	chunks  [][]byte
	acked   int
	gotEnd  bool

	state int
	need  int
	buf   []byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{state: remoteIdle, nackWith: 0x11}
}

func (r *fakeRemote) consume(p []byte, inbox *bytes.Buffer) {
	for _, b := range p {
		r.step(b, inbox)
	}
}

func (r *fakeRemote) step(b byte, inbox *bytes.Buffer) {
	switch r.state {
	case remoteIdle:
		r.trigger = b
		if !r.quietTrigger {
			inbox.WriteString("OK\r\n")
		}
		r.state = remoteCommand
	case remoteCommand:
		switch b {
		case proto.CmdStart:
			r.starts++
			r.need = 4
			r.buf = r.buf[:0]
			r.state = remoteStartLength
		case proto.CmdData:
			r.need = 2
			r.buf = r.buf[:0]
			r.state = remoteChunkLength
		case proto.CmdEnd:
			r.gotEnd = true
			r.state = remoteDone
		}
	case remoteStartLength:
		r.buf = append(r.buf, b)
		if len(r.buf) == r.need {
			r.size = binary.LittleEndian.Uint32(r.buf)
			if r.shouldAckStart() {
				inbox.Write(r.noise)
				inbox.WriteByte(proto.Ack)
			}
			r.state = remoteCommand
		}
	case remoteChunkLength:
		r.buf = append(r.buf, b)
		if len(r.buf) == r.need {
			r.need = int(binary.LittleEndian.Uint16(r.buf))
			r.buf = r.buf[:0]
			if r.need == 0 {
				r.finishChunk(inbox)
			} else {
				r.state = remoteChunkBody
			}
		}
	case remoteChunkBody:
		r.buf = append(r.buf, b)
		if len(r.buf) == r.need {
			r.finishChunk(inbox)
		}
	case remoteDone:
		// firmware is back in its main loop
	}
}

func (r *fakeRemote) shouldAckStart() bool {
	if r.neverAck {
		return false
	}
	want := r.ackOnAttempt
	if want == 0 {
		want = 1
	}
	return r.starts >= want
}

func (r *fakeRemote) finishChunk(inbox *bytes.Buffer) {
	chunk := make([]byte, len(r.buf))
	copy(chunk, r.buf)
	r.chunks = append(r.chunks, chunk)
	k := len(r.chunks)
	switch {
	case r.nackAtChunk != 0 && k == r.nackAtChunk:
		inbox.WriteByte(r.nackWith)
	case r.dropAtChunk != 0 && k == r.dropAtChunk:
		// silence: the host's ack read must time out
	default:
		inbox.WriteByte(proto.Ack)
		r.acked++
	}
	r.state = remoteCommand
}

// fakeLink is an in-memory Link wired straight to a fakeRemote. It
// records every byte the host writes, in order, for wire-level asserts.
type fakeLink struct {
	remote *fakeRemote
	wire   bytes.Buffer // everything the host wrote
	inbox  bytes.Buffer // waiting to be read by the host

	readErr  error // returned by ReadFor when set
	writeErr error // returned by Write when set

	inResets  int
	outResets int
	drains    int
}

func newFakeLink(remote *fakeRemote) *fakeLink {
	return &fakeLink{remote: remote}
}

func (l *fakeLink) ReadFor(timeout time.Duration) (byte, error) {
	if l.readErr != nil {
		return 0, l.readErr
	}
	if l.inbox.Len() == 0 {
		return 0, timeoutError{}
	}
	b, _ := l.inbox.ReadByte()
	return b, nil
}

func (l *fakeLink) Write(p []byte) error {
	if l.writeErr != nil {
		return l.writeErr
	}
	l.wire.Write(p)
	l.remote.consume(p, &l.inbox)
	return nil
}

func (l *fakeLink) Drain() error {
	l.drains++
	return nil
}

func (l *fakeLink) ResetInputBuffer() error {
	l.inbox.Reset()
	l.inResets++
	return nil
}

func (l *fakeLink) ResetOutputBuffer() error {
	l.outResets++
	return nil
}
