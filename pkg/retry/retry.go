// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

// Package retry provides a bounded retry budget for request/response
// exchanges: a fixed number of attempts with a fixed delay between them.
// The budget does the bookkeeping only. Callers own the clock and the
// I/O, which keeps the attempt accounting testable without a port.
package retry

import "time"

// Budget is an allowance of attempts with a fixed backoff between them.
// A Budget is a value; copies spend independently. The zero value is an
// exhausted budget.
type Budget struct {
	size      int
	remaining int
	backoff   time.Duration
}

// NewBudget returns a budget good for n attempts with the given backoff.
// A non-positive n yields an already-exhausted budget.
func NewBudget(n int, backoff time.Duration) Budget {
	if n < 0 {
		n = 0
	}
	return Budget{size: n, remaining: n, backoff: backoff}
}

// Spend consumes one attempt, returning false once the budget is gone.
// The intended use is the loop condition:
//
//	for budget.Spend() {
//		... one attempt ...
//	}
func (b *Budget) Spend() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Backoff returns the delay to wait on each attempt.
func (b *Budget) Backoff() time.Duration { return b.backoff }

// Size returns the number of attempts the budget started with.
func (b *Budget) Size() int { return b.size }

// Remaining returns the attempts not yet spent.
func (b *Budget) Remaining() int { return b.remaining }

// Spent returns the attempts consumed so far.
func (b *Budget) Spent() int { return b.size - b.remaining }
