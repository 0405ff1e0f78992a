// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

package uploader

// Session options. The defaults reproduce the exchange the board firmware
// was tuned against. Tests override the clock and the retry budget; the
// upload command overrides the trigger and registers progress reporting.

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gmofishsauce/fontkit/pkg/proto"
	"github.com/gmofishsauce/fontkit/pkg/retry"
)

// Timing holds the settle delays between protocol writes. The board's
// receive loop is single-threaded and slow to re-arm between frames;
// these pauses are load-bearing, not tuning. Shrinking them makes the
// board drop bytes mid-transfer with no error on either end.
type Timing struct {
	ModeSettle  time.Duration // after the trigger reply window, before START
	StartGap    time.Duration // between START and the 4-byte total length
	LengthGap   time.Duration // after the length, before scanning for the ACK
	DataGap     time.Duration // after DATA and again after the chunk length
	ChunkSettle time.Duration // after a chunk body, before its ACK read
	EndSettle   time.Duration // after END, before the session ends
}

// DefaultTiming returns the delays the board firmware expects.
func DefaultTiming() Timing {
	return Timing{
		ModeSettle:  500 * time.Millisecond,
		StartGap:    50 * time.Millisecond,
		LengthGap:   200 * time.Millisecond,
		DataGap:     10 * time.Millisecond,
		ChunkSettle: 50 * time.Millisecond,
		EndSettle:   100 * time.Millisecond,
	}
}

const (
	// DefaultAckTimeout bounds every read of a board reply.
	DefaultAckTimeout = 3 * time.Second

	// DefaultStartAttempts and DefaultStartBackoff size the handshake
	// retry budget. A board that was just plugged in acks within the
	// first few attempts; 50 covers one still mounting its filesystem.
	DefaultStartAttempts = 50
	DefaultStartBackoff  = 100 * time.Millisecond
)

// Progress is called after each acknowledged chunk with the running
// payload byte count and the total.
type Progress func(sent, total int64)

type options struct {
	trigger    byte
	chunkSize  int
	ackTimeout time.Duration
	timing     Timing
	budget     retry.Budget
	progress   Progress
	sleep      func(time.Duration)
}

// Option configures a Session.
type Option func(*options) error

func applyOptions(opts []Option) (options, error) {
	o := options{
		trigger:    proto.TriggerChinese,
		chunkSize:  proto.MaxChunkSize,
		ackTimeout: DefaultAckTimeout,
		timing:     DefaultTiming(),
		budget:     retry.NewBudget(DefaultStartAttempts, DefaultStartBackoff),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

// WithTrigger selects the font slot the payload replaces. The default
// is proto.TriggerChinese.
func WithTrigger(b byte) Option {
	return func(o *options) error {
		if b != proto.TriggerChinese && b != proto.TriggerASCII {
			return errors.Errorf("unknown font trigger 0x%02X", b)
		}
		o.trigger = b
		return nil
	}
}

// WithChunkSize overrides the DATA chunk size. The board receives each
// chunk into a proto.MaxChunkSize buffer, so larger values are rejected.
func WithChunkSize(n int) Option {
	return func(o *options) error {
		if n <= 0 || n > proto.MaxChunkSize {
			return errors.Errorf("chunk size %d out of range (1..%d)", n, proto.MaxChunkSize)
		}
		o.chunkSize = n
		return nil
	}
}

// WithAckTimeout bounds how long each reply read blocks.
func WithAckTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("ack timeout must be positive")
		}
		o.ackTimeout = d
		return nil
	}
}

// WithTiming replaces the inter-write settle delays.
func WithTiming(t Timing) Option {
	return func(o *options) error {
		o.timing = t
		return nil
	}
}

// WithStartBudget replaces the handshake retry budget.
func WithStartBudget(b retry.Budget) Option {
	return func(o *options) error {
		o.budget = b
		return nil
	}
}

// WithProgress registers a callback invoked on each chunk ACK.
func WithProgress(p Progress) Option {
	return func(o *options) error {
		o.progress = p
		return nil
	}
}

// WithSleep substitutes the function used for protocol delays. Tests
// use it to run the exchange without real time passing.
func WithSleep(fn func(time.Duration)) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("sleep function must not be nil")
		}
		o.sleep = fn
		return nil
	}
}
