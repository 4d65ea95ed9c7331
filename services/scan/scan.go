// Package scan services the energy chips that share one active-low IRQ line.
//
// While the line is idle the scanner sleeps on the interrupt flag, bounded so
// that an edge lost while the bus was gated cannot stall it. While the line
// is asserted and the bus is free it reads out one chip at a time, round
// robin, yielding after each so interactive tasks keep running.
package scan

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"eemon-go/hal"
	"eemon-go/sched"
)

// DefaultIRQTimeout bounds each wait for the interrupt flag.
const DefaultIRQTimeout = 13 * time.Second

// Channel is one chip that can service a pending interrupt.
type Channel interface {
	Index() int
	OnInterruptReadout() (bool, error)
}

// BusState reports whether a transaction owns the bus.
type BusState interface {
	Active() bool
}

// Waiter is the interrupt flag.
type Waiter interface {
	Wait(ctx context.Context, timeout time.Duration) error
}

type Config struct {
	IRQTimeout time.Duration
}

// Stats are monotonic counters.
type Stats struct {
	Passes   uint32 // wait/drain cycles
	Readouts uint32 // readout calls
	Hits     uint32 // readouts that saw the energy bit
	Timeouts uint32 // flag waits that expired
	Errors   uint32 // readouts that failed
}

type Scanner struct {
	chans   []Channel
	irq     hal.Pin
	flag    Waiter
	bus     BusState
	timeout time.Duration

	cursor atomic.Int32

	passes   atomic.Uint32
	readouts atomic.Uint32
	hits     atomic.Uint32
	timeouts atomic.Uint32
	errs     atomic.Uint32
}

func New(chans []Channel, irq hal.Pin, flag Waiter, bus BusState, cfg Config) *Scanner {
	if cfg.IRQTimeout <= 0 {
		cfg.IRQTimeout = DefaultIRQTimeout
	}
	return &Scanner{
		chans:   chans,
		irq:     irq,
		flag:    flag,
		bus:     bus,
		timeout: cfg.IRQTimeout,
	}
}

// asserted reports a pending condition; the line is pulled low.
func (s *Scanner) asserted() bool { return !s.irq.Get() }

// Run scans until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	if len(s.chans) == 0 {
		<-ctx.Done()
		return nil
	}
	for {
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				println("Info: [scan] stopped")
				return nil
			}
			return err
		}
	}
}

// Step runs one wait/drain cycle. It returns the context error when
// cancelled; a readout failure is logged and counted, never returned.
func (s *Scanner) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.passes.Add(1)
	if !s.asserted() {
		err := s.flag.Wait(ctx, s.timeout)
		switch {
		case err == nil:
		case errors.Is(err, sched.ErrInterruptWaitTimeout):
			s.timeouts.Add(1)
			println("Warn: [scan] irq wait timed out, ch", s.Cursor(), "asserted", s.asserted())
		default:
			return err
		}
	}

	n := len(s.chans)
	cur := s.Cursor()
	scanned := 0
	for ; scanned < n && s.asserted() && !s.bus.Active(); scanned++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ch := s.chans[cur]
		ready, err := ch.OnInterruptReadout()
		s.readouts.Add(1)
		if err != nil {
			s.errs.Add(1)
			println("Error: [scan] readout ch", ch.Index(), err.Error())
		} else if ready {
			s.hits.Add(1)
		}
		cur = (cur + 1) % n
		s.cursor.Store(int32(cur))
		sched.Yield()
	}
	if scanned == 0 {
		// Line held low by a chip while another task owns the bus.
		sched.Yield()
	}
	return nil
}

// Cursor is the next channel position to be read.
func (s *Scanner) Cursor() int { return int(s.cursor.Load()) }

func (s *Scanner) Stats() Stats {
	return Stats{
		Passes:   s.passes.Load(),
		Readouts: s.readouts.Load(),
		Hits:     s.hits.Load(),
		Timeouts: s.timeouts.Load(),
		Errors:   s.errs.Load(),
	}
}
