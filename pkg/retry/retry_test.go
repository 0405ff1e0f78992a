// Copyright (c) Jeff Berkowitz 2024. All rights reserved.

package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpendCountsExactly(t *testing.T) {
	for _, n := range []int{1, 2, 50} {
		b := NewBudget(n, time.Millisecond)
		count := 0
		for b.Spend() {
			count++
		}
		assert.Equal(t, n, count)
		assert.Equal(t, 0, b.Remaining())
		assert.Equal(t, n, b.Spent())
		// Exhausted stays exhausted.
		assert.False(t, b.Spend())
		assert.Equal(t, n, b.Spent())
	}
}

func TestEmptyBudgets(t *testing.T) {
	var zero Budget
	assert.False(t, zero.Spend())
	assert.Equal(t, 0, zero.Size())

	b := NewBudget(0, time.Second)
	assert.False(t, b.Spend())

	neg := NewBudget(-3, time.Second)
	assert.False(t, neg.Spend())
	assert.Equal(t, 0, neg.Size())
}

func TestAccounting(t *testing.T) {
	b := NewBudget(5, 100*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, b.Backoff())
	assert.Equal(t, 5, b.Size())
	assert.Equal(t, 5, b.Remaining())
	assert.Equal(t, 0, b.Spent())

	assert.True(t, b.Spend())
	assert.True(t, b.Spend())
	assert.Equal(t, 5, b.Size())
	assert.Equal(t, 3, b.Remaining())
	assert.Equal(t, 2, b.Spent())
}

func TestCopiesSpendIndependently(t *testing.T) {
	b := NewBudget(3, time.Millisecond)
	c := b
	assert.True(t, b.Spend())
	assert.Equal(t, 2, b.Remaining())
	assert.Equal(t, 3, c.Remaining())
}
