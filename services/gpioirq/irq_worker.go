// Package gpioirq moves pin-change interrupts out of interrupt context.
//
// Each registered input gets one ISR per pin that samples the input and
// stamps the time, then posts to a bounded queue without blocking. A full
// queue drops the event and counts it. Run delivers the samples, in order,
// to the input's sink on an ordinary goroutine.
package gpioirq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"eemon-go/hal"
	"eemon-go/x/timex"
)

// Sink consumes one captured sample.
type Sink func(sample uint8, ts time.Time)

// Gate wraps an ISR, e.g. to suppress it while the bus owns the pins.
type Gate func(isr func()) func()

type Worker struct {
	// Written by ISRs; must never block them.
	isrQ chan isrEvent

	gate  Gate
	clock timex.Clock

	mu     sync.RWMutex
	inputs map[string]*watch

	drops     atomic.Uint32
	delivered atomic.Uint32
}

type isrEvent struct {
	id     string
	sample uint8
	ts     time.Time
}

type watch struct {
	id   string
	pins []hal.IRQPin
	sink Sink
}

// New returns a worker with an ISR queue of isrBuf events. gate may be nil.
func New(isrBuf int, gate Gate) *Worker {
	if isrBuf <= 0 {
		isrBuf = 64
	}
	if gate == nil {
		gate = func(isr func()) func() { return isr }
	}
	return &Worker{
		isrQ:   make(chan isrEvent, isrBuf),
		gate:   gate,
		clock:  time.Now,
		inputs: map[string]*watch{},
	}
}

// WithClock sets the ISR timestamp source.
func (w *Worker) WithClock(c timex.Clock) *Worker {
	w.clock = c.OrNow()
	return w
}

// Register arms edge interrupts on pins. On each one, sample is called in
// interrupt context and its result is later passed to sink. The returned
// func disarms the pins.
func (w *Worker) Register(id string, edge hal.Edge, sample func() uint8, sink Sink, pins ...hal.IRQPin) (func(), error) {
	wh := &watch{id: id, pins: pins, sink: sink}
	isr := w.gate(func() {
		ev := isrEvent{id: id, sample: sample(), ts: w.clock()}
		select {
		case w.isrQ <- ev:
		default:
			w.drops.Add(1)
		}
	})

	w.mu.Lock()
	w.inputs[id] = wh
	w.mu.Unlock()

	for i, p := range pins {
		if err := p.SetIRQ(edge, isr); err != nil {
			for _, q := range pins[:i] {
				_ = q.ClearIRQ()
			}
			w.remove(id)
			return nil, err
		}
	}
	return func() {
		for _, p := range pins {
			_ = p.ClearIRQ()
		}
		w.remove(id)
	}, nil
}

func (w *Worker) remove(id string) {
	w.mu.Lock()
	delete(w.inputs, id)
	w.mu.Unlock()
}

// Run delivers captured samples until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.isrQ:
			w.dispatch(ev)
		}
	}
}

func (w *Worker) dispatch(ev isrEvent) {
	w.mu.RLock()
	wh := w.inputs[ev.id]
	w.mu.RUnlock()
	if wh == nil {
		return
	}
	wh.sink(ev.sample, ev.ts)
	w.delivered.Add(1)
}

// ISRDrops counts events lost to a full queue.
func (w *Worker) ISRDrops() uint32 { return w.drops.Load() }

// Delivered counts samples handed to sinks.
func (w *Worker) Delivered() uint32 { return w.delivered.Load() }
