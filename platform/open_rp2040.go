//go:build rp2040

package platform

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"eemon-go/errcode"
)

// Open configures SPI0 and, when a baud rate is set, UART0 for telemetry.
func Open(p Params) (Resources, error) {
	spi := machine.SPI0
	err := spi.Configure(machine.SPIConfig{
		Frequency: p.SPIHz,
		Mode:      p.SPIMode,
		SCK:       machine.Pin(p.SCK),
		SDO:       machine.Pin(p.SDO),
		SDI:       machine.Pin(p.SDI),
	})
	if err != nil {
		return Resources{}, errcode.Wrap(errcode.InvalidConfig, "platform.open", "spi0", err)
	}
	r := Resources{Pins: rp2PinFactory{}, SPI: spi}
	if p.UARTBaud != 0 {
		u := uartx.UART0
		if err := u.Configure(uartx.UARTConfig{
			BaudRate: p.UARTBaud,
			TX:       machine.Pin(p.UARTTX),
			RX:       machine.Pin(p.UARTRX),
		}); err != nil {
			return Resources{}, errcode.Wrap(errcode.InvalidConfig, "platform.open", "uart0", err)
		}
		r.Stream = u
	}
	return r, nil
}
