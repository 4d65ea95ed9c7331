// Package instrument wires the acquisition core together: the bus arbiter,
// the energy chips, the front-panel inputs and the services that run them.
// It owns every hardware handle; nothing is global.
package instrument

import (
	"context"
	"sort"
	"strconv"
	"time"

	"eemon-go/bus"
	"eemon-go/drivers/ade7816"
	"eemon-go/drivers/button"
	"eemon-go/drivers/rotary"
	"eemon-go/errcode"
	"eemon-go/hal"
	"eemon-go/platform"
	"eemon-go/sched"
	"eemon-go/services/config"
	"eemon-go/services/gpioirq"
	"eemon-go/services/heartbeat"
	"eemon-go/services/scan"
	"eemon-go/services/telemetry"
	"eemon-go/spibus"
	"eemon-go/x/timex"
)

type Instrument struct {
	cfg config.Config
	hw  platform.Resources
	bus *bus.Bus

	arb     *spibus.Arbiter
	irq     hal.IRQPin
	flag    *sched.Flag
	devices []*ade7816.Device
	failed  map[int]error

	rotary      *rotary.Decoder
	rotaryPins  []hal.IRQPin
	buttons     []*button.Button
	buttonNames []string
	buttonPins  []hal.IRQPin

	worker    *gpioirq.Worker
	scanner   *scan.Scanner
	telemetry *telemetry.Service
	heartbeat *heartbeat.Service

	clock timex.Clock
}

// Option adjusts an Instrument before its parts are built.
type Option func(*Instrument)

// WithClock sets the time source for drivers and inputs.
func WithClock(c timex.Clock) Option { return func(in *Instrument) { in.clock = c.OrNow() } }

// WithBus shares b instead of creating a private bus.
func WithBus(b *bus.Bus) Option { return func(in *Instrument) { in.bus = b } }

func pinOf(f hal.PinFactory, n int, what string) (hal.IRQPin, error) {
	p, ok := f.ByNumber(n)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "instrument.new", Msg: what + " GP" + strconv.Itoa(n)}
	}
	return p, nil
}

// New builds the instrument for cfg on hw. Pins are put in their idle modes;
// the chips are not touched until Init.
func New(hw platform.Resources, cfg config.Config, opts ...Option) (*Instrument, error) {
	in := &Instrument{cfg: cfg, hw: hw, failed: map[int]error{}, clock: timex.Clock(nil).OrNow()}
	for _, o := range opts {
		o(in)
	}
	if in.bus == nil {
		in.bus = bus.NewBus(8)
	}

	dual := make([]hal.IRQPin, 0, len(cfg.DualRole))
	for _, n := range cfg.DualRole {
		p, err := pinOf(hw.Pins, n, "dual-role")
		if err != nil {
			return nil, err
		}
		dual = append(dual, p)
	}
	outOnly := make([]hal.Pin, 0, len(cfg.OutOnly))
	for _, n := range cfg.OutOnly {
		p, err := pinOf(hw.Pins, n, "out-only")
		if err != nil {
			return nil, err
		}
		outOnly = append(outOnly, p)
	}
	arb, err := spibus.New(hw.SPI, outOnly, dual)
	if err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "instrument.new", "pin setup", err)
	}
	in.arb = arb
	in.flag = sched.NewFlag()
	if in.irq, err = pinOf(hw.Pins, cfg.IRQPin, "irq"); err != nil {
		return nil, err
	}

	for i, ch := range cfg.Channels {
		cs, err := pinOf(hw.Pins, ch.CS, "chip-select")
		if err != nil {
			return nil, err
		}
		dc := cfg.DriverConfig(i)
		dc.Clock = in.clock
		d, err := ade7816.New(arb, cs, dc)
		if err != nil {
			return nil, err
		}
		in.devices = append(in.devices, d)
	}

	if err := in.buildInputs(); err != nil {
		return nil, err
	}
	in.worker = gpioirq.New(cfg.Inputs.QueueLen, arb.Gate).WithClock(in.clock)
	return in, nil
}

func (in *Instrument) buildInputs() error {
	ic := in.cfg.Inputs
	byName := map[string]*button.Button{}
	for _, bc := range ic.Buttons {
		p, err := pinOf(in.hw.Pins, bc.Pin, "button "+bc.Name)
		if err != nil {
			return err
		}
		b := button.New(p, ic.Debounce).WithClock(in.clock)
		in.buttons = append(in.buttons, b)
		in.buttonNames = append(in.buttonNames, bc.Name)
		in.buttonPins = append(in.buttonPins, p)
		byName[bc.Name] = b
	}
	if ic.RotaryA == 0 && ic.RotaryB == 0 {
		return nil
	}
	a, err := pinOf(in.hw.Pins, ic.RotaryA, "rotary_a")
	if err != nil {
		return err
	}
	b, err := pinOf(in.hw.Pins, ic.RotaryB, "rotary_b")
	if err != nil {
		return err
	}
	in.rotary = rotary.New(a, b)
	if s, ok := byName[ic.Shift]; ok {
		in.rotary.WithShift(s, ic.ShiftFactor)
	}
	in.rotaryPins = []hal.IRQPin{a, b}
	return nil
}

// Init brings up every chip, arms the IRQ line and the inputs, and builds
// the scanner over the chips that came up. A chip that fails is logged,
// recorded in Failed and left out of the scan; the rest carry on.
func (in *Instrument) Init() error {
	live := make([]scan.Channel, 0, len(in.devices))
	for i, d := range in.devices {
		if err := d.Initialize(); err != nil {
			in.failed[i] = err
			println("Error: [instrument] channel", i, "init failed:", err.Error())
			continue
		}
		live = append(live, d)
	}
	if err := in.irq.SetIRQ(hal.EdgeFalling, in.arb.Gate(in.flag.Set)); err != nil {
		return errcode.Wrap(errcode.Of(err), "instrument.init", "irq", err)
	}
	if err := in.armInputs(); err != nil {
		return err
	}
	in.scanner = scan.New(live, in.irq, in.flag, in.arb, scan.Config{IRQTimeout: in.cfg.Scan.IRQTimeout})
	in.telemetry = telemetry.New(in.cfg.Telemetry.Interval, in.telemetryChannels(), in.rotaryOrNil(), in.namedButtons(), in.hw.Stream).WithClock(in.clock)
	in.heartbeat = heartbeat.New(in.cfg.Heartbeat.Interval,
		heartbeat.Uint("online", func() uint32 { return uint32(len(live)) }),
		heartbeat.Uint("isr_drops", in.worker.ISRDrops),
		heartbeat.Uint("gated", func() uint32 { return in.arb.Stats().Gated }),
		heartbeat.Uint("readouts", func() uint32 { return in.scanner.Stats().Readouts }),
		heartbeat.Uint("irq_timeouts", func() uint32 { return in.scanner.Stats().Timeouts }),
		heartbeat.Uint("errors", func() uint32 { return in.scanner.Stats().Errors }),
	)
	return nil
}

func (in *Instrument) armInputs() error {
	if in.rotary != nil {
		rot := in.rotary
		_, err := in.worker.Register("rotary", hal.EdgeBoth, rot.Sample,
			func(s uint8, _ time.Time) { rot.Update(s) }, in.rotaryPins...)
		if err != nil {
			return errcode.Wrap(errcode.Of(err), "instrument.init", "rotary", err)
		}
	}
	for i, b := range in.buttons {
		b, p := b, in.buttonPins[i]
		sample := func() uint8 {
			if p.Get() {
				return 1
			}
			return 0
		}
		_, err := in.worker.Register("button/"+in.buttonNames[i], hal.EdgeBoth, sample,
			func(s uint8, ts time.Time) { b.Update(s == 1, ts) }, p)
		if err != nil {
			return errcode.Wrap(errcode.Of(err), "instrument.init", "button "+in.buttonNames[i], err)
		}
	}
	return nil
}

func (in *Instrument) telemetryChannels() []telemetry.Channel {
	out := make([]telemetry.Channel, len(in.devices))
	for i, d := range in.devices {
		out[i] = d
	}
	return out
}

func (in *Instrument) rotaryOrNil() telemetry.Encoder {
	if in.rotary == nil {
		return nil
	}
	return in.rotary
}

func (in *Instrument) namedButtons() []telemetry.NamedButton {
	out := make([]telemetry.NamedButton, len(in.buttons))
	for i, b := range in.buttons {
		out[i] = telemetry.NamedButton{Name: in.buttonNames[i], Button: b}
	}
	return out
}

// Run publishes the configuration and runs the input worker, scanner,
// telemetry and heartbeat until ctx is cancelled or one of them fails.
func (in *Instrument) Run(ctx context.Context) error {
	if in.scanner == nil {
		return &errcode.E{C: errcode.Error, Op: "instrument.run", Msg: "Init not called"}
	}
	conn := in.bus.NewConnection("instrument")
	defer conn.Disconnect()
	config.NewConfigService().Publish(conn, in.cfg)

	g := sched.NewGroup(ctx)
	g.Go("gpioirq", in.worker.Run)
	g.Go("scan", in.scanner.Run)
	g.Go("telemetry", func(ctx context.Context) error { return in.telemetry.Run(ctx, in.bus.NewConnection("telemetry")) })
	g.Go("heartbeat", func(ctx context.Context) error { return in.heartbeat.Run(ctx, in.bus.NewConnection("heartbeat")) })
	return g.Wait()
}

// Failed maps channel index to its Init error.
func (in *Instrument) Failed() map[int]error {
	out := make(map[int]error, len(in.failed))
	for k, v := range in.failed {
		out[k] = v
	}
	return out
}

// FailedIndexes lists failed channels in order.
func (in *Instrument) FailedIndexes() []int {
	out := make([]int, 0, len(in.failed))
	for k := range in.failed {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (in *Instrument) Bus() *bus.Bus                 { return in.bus }
func (in *Instrument) Arbiter() *spibus.Arbiter      { return in.arb }
func (in *Instrument) Channels() []*ade7816.Device   { return in.devices }
func (in *Instrument) Rotary() *rotary.Decoder       { return in.rotary }
func (in *Instrument) Scanner() *scan.Scanner        { return in.scanner }
func (in *Instrument) Worker() *gpioirq.Worker       { return in.worker }
func (in *Instrument) Telemetry() *telemetry.Service { return in.telemetry }
func (in *Instrument) Heartbeat() *heartbeat.Service { return in.heartbeat }

// Button returns the named button, or nil.
func (in *Instrument) Button(name string) *button.Button {
	for i, n := range in.buttonNames {
		if n == name {
			return in.buttons[i]
		}
	}
	return nil
}
