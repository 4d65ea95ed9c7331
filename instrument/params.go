package instrument

import (
	"eemon-go/platform"
	"eemon-go/services/config"
)

// Params maps a board profile onto the platform wiring.
func Params(cfg config.Config) platform.Params {
	p := platform.Params{
		SPIHz:    cfg.SPI.Hz,
		SPIMode:  cfg.SPI.Mode,
		SCK:      cfg.SPI.SCK,
		SDO:      cfg.SPI.SDO,
		SDI:      cfg.SPI.SDI,
		IRQ:      cfg.IRQPin,
		UARTBaud: cfg.Telemetry.UARTBaud,
		UARTTX:   cfg.Telemetry.UARTTX,
		UARTRX:   cfg.Telemetry.UARTRX,
	}
	for _, ch := range cfg.Channels {
		p.ChipCS = append(p.ChipCS, ch.CS)
	}
	return p
}
