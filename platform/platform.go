// Package platform binds the hal interfaces to hardware: machine pins, SPI
// and UART on rp2040, and pin fakes plus a simulated chip bus elsewhere.
package platform

import (
	"io"

	"eemon-go/hal"
)

// Params selects the bus wiring.
type Params struct {
	SPIHz   uint32
	SPIMode uint8
	SCK     int
	SDO     int
	SDI     int

	ChipCS []int // one energy chip behind each chip-select
	IRQ    int   // shared open-drain status line

	UARTBaud uint32 // telemetry stream; 0 disables it
	UARTTX   int
	UARTRX   int
}

// Resources are the handles the instrument is built from.
type Resources struct {
	Pins   hal.PinFactory
	SPI    hal.SPI
	Stream io.Writer // nil when no telemetry port is wired
}
