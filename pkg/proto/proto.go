// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

// Package proto defines the font upload protocol spoken to the STM32
// display board over its USB serial line.
//
// The protocol is a byte stream with no framing beyond the command bytes
// themselves. A session is one trigger byte selecting the font slot,
// then START with a 4-byte length, then a run of DATA chunks, then END:
//
//	'C' or 'A'              select the font slot (Chinese or ASCII)
//	0xAA len32              START: declare the total payload size
//	0xBB len16 payload      DATA: one chunk of at most MaxChunkSize bytes
//	0xCC                    END: transfer complete
//
// All lengths are little-endian. The board answers START and every DATA
// chunk with the single byte Ack. Anything else it transmits (boot banner,
// debug prints) is noise the host must skip while hunting for the Ack.
package proto

import "fmt"

// Command bytes sent by the host.
const (
	CmdStart byte = 0xAA // followed by 4-byte LE total payload length
	CmdData  byte = 0xBB // followed by 2-byte LE chunk length and the chunk
	CmdEnd   byte = 0xCC // transfer complete, board closes the font file
)

// Ack is the positive acknowledgement byte from the board.
const Ack byte = 0xDD

// Font slot triggers. Exactly one is sent before START to tell the board
// which font file the payload replaces.
const (
	TriggerChinese byte = 'C' // chinese16x16.bin
	TriggerASCII   byte = 'A' // ASCII16.bin
)

const (
	// MaxChunkSize bounds a single DATA payload. The board receives each
	// chunk into a fixed buffer of this size.
	MaxChunkSize = 256

	// MaxPayloadSize is the largest total length the board accepts in
	// START. Larger values make it drop the transfer without an Ack.
	MaxPayloadSize = 10 * 1024 * 1024

	// StartAckWindow is how many reply bytes the host scans for an Ack
	// after each START attempt. The board may emit debug output first,
	// so the Ack can appear anywhere in the window.
	StartAckWindow = 10

	// ModeAckWindow is how many reply bytes the host reads looking for
	// the "OK" the board prints after a font slot trigger.
	ModeAckWindow = 4
)

// CommandName returns a short name for a protocol byte for use in logs
// and error messages. Unknown bytes format as hex.
func CommandName(b byte) string {
	switch b {
	case CmdStart:
		return "START"
	case CmdData:
		return "DATA"
	case CmdEnd:
		return "END"
	case Ack:
		return "ACK"
	case TriggerChinese:
		return "TRIGGER-CHINESE"
	case TriggerASCII:
		return "TRIGGER-ASCII"
	}
	return fmt.Sprintf("0x%02X", b)
}
