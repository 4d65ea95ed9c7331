// Package config resolves board profiles and publishes them on the bus.
//
// Profiles are YAML documents embedded in the firmware, one per board name.
// Each top-level section is published retained under config/<section> so
// services can pick up their settings whenever they subscribe.
package config

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"eemon-go/bus"
	"eemon-go/drivers/ade7816"
	"eemon-go/errcode"
	"eemon-go/x/mathx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxBoardKey  = "board" // context key carrying the board name
)

// EmbeddedConfigLookup allows overriding how profiles are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Load resolves and parses the named profile.
func Load(board string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return Config{}, &errcode.E{C: errcode.UnknownBoard, Op: "config.load", Msg: board}
	}
	return Parse(raw)
}

// Parse decodes a profile, fills defaults and validates it. Unknown keys
// are rejected.
func Parse(raw []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidConfig, "config.parse", err.Error(), err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.SPI.Hz == 0 {
		c.SPI.Hz = 2_500_000
	}
	if c.SPI.Mode == 0 {
		c.SPI.Mode = 3
	}
	if c.SPI.SCK == 0 && c.SPI.SDO == 0 && c.SPI.SDI == 0 {
		c.SPI.SCK, c.SPI.SDO, c.SPI.SDI = 6, 7, 2
	}
	if c.Inputs.Debounce == 0 {
		c.Inputs.Debounce = 50 * time.Millisecond
	}
	if c.Inputs.ShiftFactor == 0 {
		c.Inputs.ShiftFactor = 1
	}
	if c.Inputs.QueueLen == 0 {
		c.Inputs.QueueLen = 64
	}
	c.Inputs.QueueLen = mathx.Clamp(c.Inputs.QueueLen, 8, 256)
	d := ade7816.DefaultConfig()
	if c.Energy.WTHR1 == 0 && c.Energy.WTHR0 == 0 {
		c.Energy.WTHR1, c.Energy.WTHR0 = d.WTHR1, d.WTHR0
	}
	if c.Energy.VARTHR1 == 0 && c.Energy.VARTHR0 == 0 {
		c.Energy.VARTHR1, c.Energy.VARTHR0 = d.VARTHR1, d.VARTHR0
	}
	if c.Energy.LineCycles == 0 {
		c.Energy.LineCycles = d.LineCycles
	}
	if c.Energy.LCycMode == 0 {
		c.Energy.LCycMode = d.LCycMode
	}
	if c.Energy.PhaseCoeff == 0 {
		c.Energy.PhaseCoeff = d.PhaseCoeff
	}
	if c.Energy.Policy == "" {
		c.Energy.Policy = PolicyStatus
	}
	if c.Scan.IRQTimeout == 0 {
		c.Scan.IRQTimeout = 13 * time.Second
	}
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = 2 * time.Second
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = time.Second
	}
	for i := range c.Channels {
		if c.Channels[i].Phase == "" {
			c.Channels[i].Phase = "A"
		}
	}
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: msg}
}

func pinName(n int) string { return "GP" + strconv.Itoa(n) }

// Validate rejects wiring the arbiter could not honour and channels
// without calibration.
func (c *Config) Validate() error {
	var errs []error
	role := map[int]string{}
	claim := func(p int, what string) {
		if prev, dup := role[p]; dup {
			errs = append(errs, invalid(pinName(p)+" used as "+prev+" and "+what))
			return
		}
		role[p] = what
	}
	dual := map[int]bool{}
	for _, p := range c.DualRole {
		claim(p, "dual-role")
		dual[p] = true
	}
	for _, p := range c.OutOnly {
		claim(p, "out-only")
	}
	for _, p := range []int{c.SPI.SCK, c.SPI.SDO, c.SPI.SDI} {
		claim(p, "spi")
	}
	if c.Telemetry.UARTBaud != 0 {
		claim(c.Telemetry.UARTTX, "uart")
		claim(c.Telemetry.UARTRX, "uart")
	}

	// Inputs and the IRQ line must sit on pins the arbiter gates.
	needDual := func(p int, what string) {
		if !dual[p] {
			errs = append(errs, invalid(what+" on "+pinName(p)+" is not a dual-role pin"))
		}
	}
	needDual(c.IRQPin, "irq")
	if c.Inputs.RotaryA != 0 || c.Inputs.RotaryB != 0 {
		needDual(c.Inputs.RotaryA, "rotary_a")
		needDual(c.Inputs.RotaryB, "rotary_b")
	}
	names := map[string]bool{}
	for _, b := range c.Inputs.Buttons {
		if b.Name == "" || names[b.Name] {
			errs = append(errs, invalid("button names must be unique and non-empty"))
		}
		names[b.Name] = true
		needDual(b.Pin, "button "+b.Name)
	}
	if c.Inputs.Shift != "" && !names[c.Inputs.Shift] {
		errs = append(errs, invalid("shift button "+c.Inputs.Shift+" not defined"))
	}

	cs := map[int]bool{}
	for i, ch := range c.Channels {
		id := "channel " + strconv.Itoa(i)
		if cs[ch.CS] {
			errs = append(errs, invalid(id+" shares chip-select "+pinName(ch.CS)))
		}
		cs[ch.CS] = true
		if !dual[ch.CS] && role[ch.CS] != "out-only" {
			errs = append(errs, invalid(id+" chip-select "+pinName(ch.CS)+" is not managed by the arbiter"))
		}
		if len(ch.Phase) != 1 || ch.Phase[0] < 'A' || ch.Phase[0] > 'F' {
			errs = append(errs, invalid(id+" phase must be A..F"))
		}
		if ch.Cal.CTCal <= 0 || ch.Cal.VGain <= 0 || ch.Cal.VTCal <= 0 || ch.Cal.EnergyCal <= 0 {
			errs = append(errs, invalid(id+" calibration missing"))
		}
	}
	if c.Energy.Policy != PolicyStatus && c.Energy.Policy != PolicyUnconditional {
		errs = append(errs, invalid("energy policy "+c.Energy.Policy))
	}
	return errors.Join(errs...)
}

// DriverConfig builds the chip driver settings for channel i.
func (c *Config) DriverConfig(i int) ade7816.Config {
	ch := c.Channels[i]
	d := ade7816.DefaultConfig()
	d.Index = i
	d.Phase = ch.Phase[0]
	d.Cal = ade7816.Calibration{
		CTCal:     ch.Cal.CTCal,
		VGain:     ch.Cal.VGain,
		VTCal:     ch.Cal.VTCal,
		EnergyCal: ch.Cal.EnergyCal,
	}
	d.WTHR1, d.WTHR0 = c.Energy.WTHR1, c.Energy.WTHR0
	d.VARTHR1, d.VARTHR0 = c.Energy.VARTHR1, c.Energy.VARTHR0
	d.LineCycles = c.Energy.LineCycles
	d.LCycMode = c.Energy.LCycMode
	d.PhaseCoeff = c.Energy.PhaseCoeff
	if c.Energy.Policy == PolicyUnconditional {
		d.Policy = ade7816.PolicyUnconditional
	}
	return d
}

// Sections maps each top-level section to its published payload.
func (c *Config) Sections() map[string]any {
	return map[string]any{
		"board":     c.Board,
		"spi":       c.SPI,
		"pins":      map[string]any{"dual_role": c.DualRole, "out_only": c.OutOnly, "irq": c.IRQPin},
		"inputs":    c.Inputs,
		"channels":  c.Channels,
		"energy":    c.Energy,
		"scan":      c.Scan,
		"heartbeat": c.Heartbeat,
		"telemetry": c.Telemetry,
	}
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig loads the board named in ctx and publishes it retained.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) (Config, error) {
	board, _ := ctx.Value(CtxBoardKey).(string)
	if board == "" {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config.publish", Msg: "missing board in context"}
	}
	c, err := Load(board)
	if err != nil {
		return Config{}, err
	}
	s.Publish(conn, c)
	return c, nil
}

// Publish puts every section of c on the bus, retained.
func (s *ConfigService) Publish(conn *bus.Connection, c Config) {
	for k, v := range c.Sections() {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
}

// Start loads and publishes the board named in ctx.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) (Config, error) {
	c, err := s.publishConfig(ctx, conn)
	if err != nil {
		println("Error: [config]", err.Error())
	}
	return c, err
}
