//go:build !rp2040

package platform

import (
	"sync"

	"eemon-go/hal"
)

// FakePin implements hal.IRQPin for host builds and tests.
//
// It models the pad: an external level (pull-up, switch, encoder contact or
// open-drain IRQ line) set with Drive, and the MCU output level set with Set.
// Get observes the output level in output mode and the external level
// otherwise. Any change of the observed level fires the matching IRQ handler
// synchronously, including changes caused by mode switches.
type FakePin struct {
	mu      sync.Mutex
	number  int
	ext     bool
	out     bool
	modeOut bool
	pull    hal.Pull
	irqEdge hal.Edge
	irqFunc func()
}

// NewFakePin returns a pin idling high, as with a pull-up.
func NewFakePin(n int) *FakePin { return &FakePin{number: n, ext: true} }

func (p *FakePin) observed() bool {
	if p.modeOut {
		return p.out
	}
	return p.ext
}

// update applies fn under the lock and fires the IRQ if the observed level moved.
func (p *FakePin) update(fn func()) {
	p.mu.Lock()
	old := p.observed()
	fn()
	now := p.observed()
	h := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, now))
	p.mu.Unlock()
	if want && h != nil {
		h()
	}
}

func (p *FakePin) ConfigureInput(pull hal.Pull) error {
	p.update(func() {
		p.modeOut = false
		p.pull = pull
	})
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.update(func() {
		p.modeOut = true
		p.out = initial
	})
	return nil
}

// Set drives the output latch. It is only observed in output mode.
func (p *FakePin) Set(level bool) { p.update(func() { p.out = level }) }

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.observed()
}

func (p *FakePin) Number() int { return p.number }

// Drive sets the externally applied level.
func (p *FakePin) Drive(level bool) { p.update(func() { p.ext = level }) }

// External returns the externally applied level.
func (p *FakePin) External() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ext
}

// IsOutput reports the current pin mode.
func (p *FakePin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modeOut
}

// Selected reports whether the MCU is driving the pin low, i.e. asserting it
// as a chip-select.
func (p *FakePin) Selected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modeOut && !p.out
}

func (p *FakePin) SetIRQ(edge hal.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = hal.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func edgeFrom(old, new bool) hal.Edge {
	switch {
	case !old && new:
		return hal.EdgeRising
	case old && !new:
		return hal.EdgeFalling
	default:
		return hal.EdgeNone
	}
}

func irqWanted(cfg, seen hal.Edge) bool {
	if seen == hal.EdgeNone {
		return false
	}
	return cfg == hal.EdgeBoth || cfg == seen
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewHostPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}

func (f *HostPinFactory) ByNumber(n int) (hal.IRQPin, bool) {
	return f.Pin(n), true
}

// Pin exposes the underlying *FakePin so tests can drive inputs.
func (f *HostPinFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}
