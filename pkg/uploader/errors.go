// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

package uploader

// Terminal protocol failures. There is no resume: whichever of these a
// session returns, the board's font file is incomplete and the whole
// session must be run again from the trigger byte.

import (
	"fmt"

	"github.com/gmofishsauce/fontkit/pkg/proto"
)

// HandshakeError reports that the board never acknowledged START. The
// transfer did not begin and no payload bytes were sent.
type HandshakeError struct {
	Attempts int
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake: no ACK after %d START attempts", e.Attempts)
}

// AckError reports a missing or wrong acknowledgement for a DATA chunk.
// Offset is the count of payload bytes the board had acknowledged before
// the failing chunk. Response is meaningful only when Timeout is false.
type AckError struct {
	Offset   int64
	Response byte
	Timeout  bool
}

func (e *AckError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("no ACK for chunk at offset %d", e.Offset)
	}
	return fmt.Sprintf("chunk at offset %d: unexpected response 0x%02X (want 0x%02X)",
		e.Offset, e.Response, proto.Ack)
}
