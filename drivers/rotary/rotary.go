// Package rotary decodes a two-line quadrature encoder with detents on 11.
//
// Clockwise rotation walks 11, 01, 00, 10, 11. Each edge adds the step
// direction to a sub-count; landing on the detent commits sub/4 to the
// position. Two-phase jumps have no known direction; they are counted and
// folded back in at the detent as ±2 each, signed like the valid steps.
package rotary

import (
	"sync/atomic"

	"eemon-go/hal"
)

// Detent is the rest pattern, both lines high.
const Detent uint8 = 0b11

// direction maps prev<<2|cur to the step. Zero entries at 3, 6, 9 and 12
// are two-phase jumps; 0, 5, 10 and 15 mean no change and are filtered out
// before lookup.
var direction = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// Shifter reports whether a modifier button is held.
type Shifter interface {
	IsDown() bool
}

// Decoder tracks one encoder. Update must be called from a single
// goroutine (or a single interrupt source); the committed counters can be
// read from anywhere.
type Decoder struct {
	a, b hal.Pin

	prev    uint8
	sub     int32
	invalid int32

	value     atomic.Int32
	shifted   atomic.Int32
	ambiguous atomic.Uint32

	shift       Shifter
	shiftFactor int32
}

// New decodes lines a and b. The pins must already be inputs.
func New(a, b hal.Pin) *Decoder {
	return &Decoder{a: a, b: b, prev: Detent, shiftFactor: 1}
}

// WithShift makes ShiftedValue count factor per detent while s is held.
func (d *Decoder) WithShift(s Shifter, factor int32) *Decoder {
	d.shift = s
	d.shiftFactor = factor
	return d
}

// Sample reads both lines as a<<1 | b.
func (d *Decoder) Sample() uint8 {
	var v uint8
	if d.a.Get() {
		v |= 0b10
	}
	if d.b.Get() {
		v |= 0b01
	}
	return v
}

// HandleEdge samples the lines and updates. Usable directly as a pin IRQ
// handler when no capture worker is in between.
func (d *Decoder) HandleEdge() { d.Update(d.Sample()) }

// Update feeds one pin sample. It reports whether the position moved.
func (d *Decoder) Update(pins uint8) bool {
	pins &= 0b11
	if pins == d.prev {
		return false
	}
	step := direction[d.prev<<2|pins]
	if step == 0 {
		d.invalid++
		d.ambiguous.Add(1)
	} else {
		d.sub += int32(step)
	}
	d.prev = pins
	if pins != Detent {
		return false
	}

	var salvage int32
	switch {
	case d.sub > 0:
		salvage = d.invalid << 1
	case d.sub < 0:
		salvage = -d.invalid << 1
	}
	delta := (d.sub + salvage) >> 2
	d.sub, d.invalid = 0, 0
	if delta == 0 {
		return false
	}
	d.value.Add(delta)
	if d.shift != nil && d.shift.IsDown() {
		d.shifted.Add(delta * d.shiftFactor)
	} else {
		d.shifted.Add(delta)
	}
	return true
}

// Value is the committed position.
func (d *Decoder) Value() int32 { return d.value.Load() }

// ShiftedValue is the position with shifted detents scaled.
func (d *Decoder) ShiftedValue() int32 { return d.shifted.Load() }

// Ambiguous counts two-phase jumps seen since New.
func (d *Decoder) Ambiguous() uint32 { return d.ambiguous.Load() }

// Reset zeroes the committed counters.
func (d *Decoder) Reset() {
	d.value.Store(0)
	d.shifted.Store(0)
}

// State is the decoder's internal state, for diagnostics.
type State struct {
	Prev    uint8
	Sub     int32
	Invalid int32
	Value   int32
}

// State must be called from the goroutine that calls Update.
func (d *Decoder) State() State {
	return State{Prev: d.prev, Sub: d.sub, Invalid: d.invalid, Value: d.value.Load()}
}
