// Package button debounces an active-low push button.
//
// A falling edge counts as a press only when the line has been released for
// longer than the delay and no press was accepted within twice the delay.
// Presses accumulate until Value drains them.
package button

import (
	"sync/atomic"
	"time"

	"eemon-go/hal"
	"eemon-go/x/timex"
)

const DefaultDelay = 50 * time.Millisecond

type Button struct {
	pin   hal.Pin
	delay time.Duration
	clock timex.Clock

	// Touched only by the Update caller.
	lastRise time.Time
	lastFall time.Time

	pending atomic.Uint32
	total   atomic.Uint32
}

// New debounces pin with delay; zero selects DefaultDelay.
func New(pin hal.Pin, delay time.Duration) *Button {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Button{pin: pin, delay: delay, clock: time.Now}
}

// WithClock replaces the time source used by HandleEdge.
func (b *Button) WithClock(c timex.Clock) *Button {
	b.clock = c.OrNow()
	return b
}

// HandleEdge samples the pin now. Usable directly as a pin IRQ handler.
func (b *Button) HandleEdge() { b.Update(b.pin.Get(), b.clock()) }

// Update feeds the line level observed at ts. It reports whether a press
// was accepted.
func (b *Button) Update(level bool, ts time.Time) bool {
	if level {
		b.lastRise = ts
		return false
	}
	if timex.Elapsed(b.lastRise, ts) <= b.delay || timex.Elapsed(b.lastFall, ts) <= 2*b.delay {
		return false
	}
	// The rearm window runs from the last accepted press; bounces don't move it.
	b.lastFall = ts
	b.pending.Add(1)
	b.total.Add(1)
	return true
}

// Value returns the presses since the previous call and resets the count.
func (b *Button) Value() uint32 { return b.pending.Swap(0) }

// Total counts every accepted press since New.
func (b *Button) Total() uint32 { return b.total.Load() }

// IsDown reports the live level; the line is low while pressed.
func (b *Button) IsDown() bool { return !b.pin.Get() }

// Clear drops presses not yet drained.
func (b *Button) Clear() { b.pending.Store(0) }
