// Package hal holds the hardware capability interfaces the core depends on.
// Real hardware and the host fakes in package platform both implement them.
package hal

import "tinygo.org/x/drivers"

// SPI is the transport: Tx(w, r) and Transfer(b). machine.SPI satisfies it.
type SPI = drivers.SPI

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is a digital line that can be switched between input and output mode.
type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQPin extends Pin with edge interrupts. The handler runs in interrupt
// context and must not block.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies pins by GPIO number.
type PinFactory interface {
	ByNumber(n int) (IRQPin, bool)
}
