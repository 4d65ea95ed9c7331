// Package spibus shares one SPI transport between chip drivers and the
// digital inputs wired to the same chip-select lines.
//
// Dual-role pins sit in input mode with a pull-up so switches and encoders
// can be read and can raise interrupts. For the duration of a transaction
// every dual-role pin is forced to output-high so an external switch cannot
// assert a chip-select, and interrupt handlers obtained through Gate are
// suppressed so the arbiter's own pin toggling is not seen as user input.
package spibus

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"eemon-go/errcode"
	"eemon-go/hal"
)

// ErrTxClosed is returned when a Tx is used after End.
var ErrTxClosed = errcode.TxClosed

// Exchanger runs one chip-select framed transfer: cs low, write w, read
// len(r) bytes into r, cs high.
type Exchanger interface {
	Exchange(cs hal.Pin, w, r []byte) error
}

// Stats are monotonic counters, safe to read from any goroutine.
type Stats struct {
	Exchanges uint32 // chip-select framed transfers
	Batches   uint32 // pin-mode switch pairs (one per Begin/End)
	Gated     uint32 // interrupts dropped by Gate wrappers
	PinFaults uint32 // dual-role pins that failed a mode switch
}

// Arbiter owns the transport and the dual-role pin set.
type Arbiter struct {
	spi  hal.SPI
	dual []hal.IRQPin

	// mu serialises transactions between tasks; the bus is not reentrant.
	mu sync.Mutex
	// active is read from interrupt context.
	active atomic.Bool

	exchanges atomic.Uint32
	batches   atomic.Uint32
	gated     atomic.Uint32
	pinFaults atomic.Uint32
}

// New puts out-only chip-selects in output-high and dual-role pins in
// input-pullup mode.
func New(spi hal.SPI, outOnly []hal.Pin, dualRole []hal.IRQPin) (*Arbiter, error) {
	var errs []error
	for _, p := range outOnly {
		if err := p.ConfigureOutput(true); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range dualRole {
		if err := p.ConfigureInput(hal.PullUp); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Arbiter{spi: spi, dual: dualRole}, nil
}

// Active reports whether a transaction currently owns the pins.
func (a *Arbiter) Active() bool { return a.active.Load() }

// Gate wraps an interrupt handler so it only runs while no transaction is
// open. Events raised during a transaction are dropped.
func (a *Arbiter) Gate(handler func()) func() {
	return func() {
		if a.active.Load() {
			a.gated.Add(1)
			return
		}
		handler()
	}
}

// Begin opens a batch. The caller must End it, normally with defer, so that
// cancellation still restores the pin modes.
//
// The bus is not reentrant: calling Begin, Batch or Exchange on the Arbiter
// while the same goroutine holds an open Tx deadlocks. Nest through
// (*Tx).Batch and (*Tx).Exchange instead.
func (a *Arbiter) Begin() *Tx {
	a.mu.Lock()
	a.active.Store(true)
	for _, p := range a.dual {
		if err := p.ConfigureOutput(true); err != nil {
			a.pinFault(p, "output", err)
		}
	}
	a.batches.Add(1)
	return &Tx{a: a}
}

func (a *Arbiter) pinFault(p hal.Pin, mode string, err error) {
	a.pinFaults.Add(1)
	println("Error: [spibus] GP", p.Number(), "to", mode, "failed:", err.Error())
}

func (a *Arbiter) end() {
	for _, p := range a.dual {
		if err := p.ConfigureInput(hal.PullUp); err != nil {
			a.pinFault(p, "input", err)
		}
	}
	// Let pending pin interrupts raised by the mode switch run while still gated.
	runtime.Gosched()
	a.active.Store(false)
	a.mu.Unlock()
}

// Batch runs fn inside one Begin/End pair.
func (a *Arbiter) Batch(fn func(tx *Tx) error) error {
	tx := a.Begin()
	defer tx.End()
	return fn(tx)
}

// Exchange runs a single transfer in its own transaction.
func (a *Arbiter) Exchange(cs hal.Pin, w, r []byte) error {
	tx := a.Begin()
	defer tx.End()
	return tx.Exchange(cs, w, r)
}

func (a *Arbiter) Stats() Stats {
	return Stats{
		Exchanges: a.exchanges.Load(),
		Batches:   a.batches.Load(),
		Gated:     a.gated.Load(),
		PinFaults: a.pinFaults.Load(),
	}
}

// xfer frames one transfer. cs is always released, even on transport error.
func (a *Arbiter) xfer(cs hal.Pin, w, r []byte) error {
	a.exchanges.Add(1)
	cs.Set(false)
	var err error
	if len(w) > 0 {
		err = a.spi.Tx(w, nil)
	}
	if err == nil && len(r) > 0 {
		err = a.spi.Tx(nil, r)
	}
	cs.Set(true)
	return err
}

// Tx is an open batch. Transfers run in submission order.
type Tx struct {
	a    *Arbiter
	done bool
}

// Exchange runs a transfer inside the batch.
func (t *Tx) Exchange(cs hal.Pin, w, r []byte) error {
	if t.done {
		return ErrTxClosed
	}
	return t.a.xfer(cs, w, r)
}

// Batch runs fn inline; the batch is already open.
func (t *Tx) Batch(fn func(tx *Tx) error) error {
	if t.done {
		return ErrTxClosed
	}
	return fn(t)
}

// End closes the batch. Calling it again is a no-op.
func (t *Tx) End() {
	if t.done {
		return
	}
	t.done = true
	t.a.end()
}
