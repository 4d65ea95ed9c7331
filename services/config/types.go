package config

import "time"

// Config is one board profile.
type Config struct {
	Board     string          `yaml:"board"`
	SPI       SPIConfig       `yaml:"spi"`
	DualRole  []int           `yaml:"dual_role"` // chip-selects that double as inputs
	OutOnly   []int           `yaml:"out_only"`  // chip-selects that are never read
	IRQPin    int             `yaml:"irq_pin"`
	Inputs    InputsConfig    `yaml:"inputs"`
	Channels  []ChannelConfig `yaml:"channels"`
	Energy    EnergyConfig    `yaml:"energy"`
	Scan      ScanConfig      `yaml:"scan"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type SPIConfig struct {
	Hz   uint32 `yaml:"hz"`
	Mode uint8  `yaml:"mode"`
	SCK  int    `yaml:"sck"`
	SDO  int    `yaml:"sdo"`
	SDI  int    `yaml:"sdi"`
}

type ButtonConfig struct {
	Name string `yaml:"name"`
	Pin  int    `yaml:"pin"`
}

type InputsConfig struct {
	RotaryA     int            `yaml:"rotary_a"`
	RotaryB     int            `yaml:"rotary_b"`
	Buttons     []ButtonConfig `yaml:"buttons"`
	Shift       string         `yaml:"shift"` // button name that scales rotary steps
	ShiftFactor int32          `yaml:"shift_factor"`
	Debounce    time.Duration  `yaml:"debounce"`
	QueueLen    int            `yaml:"queue_len"`
}

type Calibration struct {
	CTCal     float64 `yaml:"ct_cal"`
	VGain     float64 `yaml:"v_gain"`
	VTCal     float64 `yaml:"vt_cal"`
	EnergyCal float64 `yaml:"energy_cal"`
}

type ChannelConfig struct {
	CS    int         `yaml:"cs"`
	Phase string      `yaml:"phase"`
	Cal   Calibration `yaml:"cal"`
}

// EnergyConfig is shared by every channel.
type EnergyConfig struct {
	WTHR1      uint32 `yaml:"wthr1"`
	WTHR0      uint32 `yaml:"wthr0"`
	VARTHR1    uint32 `yaml:"varthr1"`
	VARTHR0    uint32 `yaml:"varthr0"`
	LineCycles uint16 `yaml:"line_cycles"`
	LCycMode   uint8  `yaml:"lcyc_mode"`
	PhaseCoeff uint32 `yaml:"phase_coeff"`
	Policy     string `yaml:"policy"` // "status" or "unconditional"
}

type ScanConfig struct {
	IRQTimeout time.Duration `yaml:"irq_timeout"`
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`
	UARTBaud uint32        `yaml:"uart_baud"`
	UARTTX   int           `yaml:"uart_tx"`
	UARTRX   int           `yaml:"uart_rx"`
}

const (
	PolicyStatus        = "status"
	PolicyUnconditional = "unconditional"
)
