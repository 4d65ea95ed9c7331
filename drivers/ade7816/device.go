package ade7816

import (
	"strconv"
	"sync"
	"time"

	"eemon-go/errcode"
	"eemon-go/hal"
	"eemon-go/spibus"
	"eemon-go/x/timex"
)

// SPI command bytes.
const (
	cmdWrite byte = 0x00
	cmdRead  byte = 0x01
)

const (
	// An rms register reads 4191910 at 0.5 V peak on the ADC input.
	rmsFullScaleCode  = 4191910.0
	rmsFullScaleVolts = 0.5 * 0.707

	// PERIOD counts a 256 kHz clock over one line cycle.
	periodClockHz = 256000.0

	protocolSelectWrites = 3
	runWrites            = 3
)

// Phase calibration values for the two line frequencies.
const (
	PhaseCoeff50Hz uint32 = 0x401235
	PhaseCoeff60Hz uint32 = 0x400CA4
)

// LCYCMODE bits.
const (
	LCycLWatt   uint8 = 1 << 0 // line-cycle active energy accumulation
	LCycLVar    uint8 = 1 << 1 // line-cycle reactive energy accumulation
	LCycZXSel   uint8 = 1 << 3 // count zero crossings on the voltage channel
	LCycRstRead uint8 = 1 << 6 // energy registers clear on read
)

const selfTestRegister = RegMask1

var selfTestPatterns = [...]int64{0x55555555, 0xAAAAAAAA, 0xFFFFFFFF, 0x0F0F0F0F, 0x00000000}

var (
	ErrUnknownRegister   = errcode.UnknownRegister
	ErrChipCommunication = errcode.ChipComm
)

// EnergyPolicy selects when the energy accumulator is read on an interrupt.
type EnergyPolicy uint8

const (
	// PolicyStatusGated reads energy only when STATUS0 reports the
	// line-cycle accumulation finished.
	PolicyStatusGated EnergyPolicy = iota
	// PolicyUnconditional reads energy on every interrupt. The status bit is
	// still only cleared when it was seen set.
	PolicyUnconditional
)

type Calibration struct {
	CTCal     float64 // current transformer amps per ADC volt
	VGain     float64 // voltage front-end gain
	VTCal     float64 // voltage transformer ratio
	EnergyCal float64 // energy units per accumulator count
}

type Config struct {
	Index int  // position on the bus, 0..5
	Phase byte // current channel 'A'..'F' whose energy is accumulated

	Cal Calibration

	WTHR1, WTHR0     uint32
	VARTHR1, VARTHR0 uint32
	LineCycles       uint16
	LCycMode         uint8
	PhaseCoeff       uint32

	Policy EnergyPolicy
	Clock  timex.Clock
}

func DefaultConfig() Config {
	return Config{
		Phase:      'A',
		Cal:        Calibration{CTCal: 1, VGain: 1, VTCal: 1, EnergyCal: 1},
		WTHR1:      0x000002,
		VARTHR1:    0x000002,
		LineCycles: 100,
		LCycMode:   LCycLWatt | LCycLVar | LCycZXSel | LCycRstRead,
		PhaseCoeff: PhaseCoeff50Hz,
		Policy:     PolicyStatusGated,
	}
}

// Bus is what the driver needs from the arbiter.
type Bus interface {
	spibus.Exchanger
	Batch(fn func(tx *spibus.Tx) error) error
}

// Device drives one ADE7816 behind a chip-select.
type Device struct {
	mu    sync.Mutex
	bus   Bus
	cs    hal.Pin
	cfg   Config
	clock timex.Clock

	energyReg string

	w [7]byte
	r [4]byte

	online  bool
	total   float64
	samples uint64
	since   time.Time
	lastTs  time.Time
	status1 uint32
	cleared uint32
}

// New binds a driver to cs. The chip is not touched until Initialize.
func New(bus Bus, cs hal.Pin, cfg Config) (*Device, error) {
	energy, ok := activeEnergy(cfg.Phase)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "ade7816.new", Msg: "phase must be A..F"}
	}
	if cfg.Cal.EnergyCal == 0 {
		cfg.Cal.EnergyCal = 1
	}
	return &Device{
		bus:       bus,
		cs:        cs,
		cfg:       cfg,
		clock:     cfg.Clock.OrNow(),
		energyReg: energy,
	}, nil
}

func (d *Device) Index() int { return d.cfg.Index }

// Online reports whether the last Initialize succeeded.
func (d *Device) Online() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

// ReadRegister reads and decodes a named register in its own transaction.
func (d *Device) ReadRegister(name string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(d.bus, name)
}

// WriteRegister encodes and writes a named register in its own transaction.
func (d *Device) WriteRegister(name string, v int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(d.bus, name, v)
}

func (d *Device) read(x spibus.Exchanger, name string) (int64, error) {
	reg, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	n := int(reg.Fmt.Bytes)
	d.w[0], d.w[1], d.w[2] = cmdRead, byte(reg.Addr>>8), byte(reg.Addr)
	if err := x.Exchange(d.cs, d.w[:3], d.r[:n]); err != nil {
		return 0, errcode.Wrap(errcode.ChipComm, "ade7816.read", name, err)
	}
	return reg.Fmt.Decode(d.r[:n])
}

func (d *Device) write(x spibus.Exchanger, name string, v int64) error {
	reg, err := Lookup(name)
	if err != nil {
		return err
	}
	b := append(d.w[:0], cmdWrite, byte(reg.Addr>>8), byte(reg.Addr))
	b = reg.Fmt.Encode(b, v)
	if err := x.Exchange(d.cs, b, nil); err != nil {
		return errcode.Wrap(errcode.ChipComm, "ade7816.write", name, err)
	}
	return nil
}

// Initialize selects SPI, locks the interface, verifies the link, programs
// thresholds and calibration, clears stale status and starts the DSP. A
// failed link check leaves the DSP stopped.
func (d *Device) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online = false
	err := d.bus.Batch(func(tx *spibus.Tx) error {
		for i := 0; i < protocolSelectWrites; i++ {
			if err := d.write(tx, RegDummy, 0); err != nil {
				return err
			}
		}
		if err := d.write(tx, RegConfig2, 0); err != nil {
			return err
		}
		if err := d.selfTest(tx); err != nil {
			return err
		}
		if err := d.program(tx); err != nil {
			return err
		}
		if err := d.clearStatus(tx); err != nil {
			return err
		}
		for i := 0; i < runWrites; i++ {
			if err := d.write(tx, RegRun, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	now := d.clock()
	d.online = true
	d.since, d.lastTs = now, now
	return nil
}

func (d *Device) selfTest(tx *spibus.Tx) error {
	reg, _ := Lookup(selfTestRegister)
	for _, p := range selfTestPatterns {
		if err := d.write(tx, selfTestRegister, p); err != nil {
			return err
		}
		got, err := d.read(tx, selfTestRegister)
		if err != nil {
			return err
		}
		if want := reg.Fmt.FromRaw(reg.Fmt.ToRaw(p)); got != want {
			return &errcode.E{
				C:   errcode.ChipComm,
				Op:  "ade7816.selftest",
				Msg: "ch " + strconv.Itoa(d.cfg.Index) + " wrote 0x" + strconv.FormatInt(p, 16) + " read 0x" + strconv.FormatInt(got, 16),
			}
		}
	}
	return nil
}

func (d *Device) program(tx *spibus.Tx) error {
	steps := [...]struct {
		reg string
		v   int64
	}{
		{RegWTHR1, int64(d.cfg.WTHR1)},
		{RegWTHR0, int64(d.cfg.WTHR0)},
		{RegVARTHR1, int64(d.cfg.VARTHR1)},
		{RegVARTHR0, int64(d.cfg.VARTHR0)},
		{RegLineCyc, int64(d.cfg.LineCycles)},
		{RegLCycMode, int64(d.cfg.LCycMode)},
		{RegMask0, int64(StatusLEnergy)},
	}
	for _, s := range steps {
		if err := d.write(tx, s.reg, s.v); err != nil {
			return err
		}
	}
	for _, name := range phaseCoeffs {
		if err := d.write(tx, name, int64(d.cfg.PhaseCoeff)); err != nil {
			return err
		}
	}
	// The last DSP RAM write is repeated so it is flushed through the pipeline.
	return d.write(tx, phaseCoeffs[len(phaseCoeffs)-1], int64(d.cfg.PhaseCoeff))
}

// clearStatus writes back whatever is pending; status bits are write-1-to-clear.
func (d *Device) clearStatus(tx *spibus.Tx) error {
	for _, name := range [...]string{RegStatus0, RegStatus1} {
		v, err := d.read(tx, name)
		if err != nil {
			return err
		}
		if err := d.write(tx, name, v); err != nil {
			return err
		}
	}
	return nil
}

// OnInterruptReadout services a pending interrupt. It reports whether the
// line-cycle energy bit was set. Energy is accumulated and the bit cleared
// inside one transaction; STATUS0 is cleared only when the bit was seen.
func (d *Device) OnInterruptReadout() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ready bool
	err := d.bus.Batch(func(tx *spibus.Tx) error {
		s0, err := d.read(tx, RegStatus0)
		if err != nil {
			return err
		}
		s1, err := d.read(tx, RegStatus1)
		if err != nil {
			return err
		}
		d.status1 = uint32(s1)
		ready = uint32(s0)&StatusLEnergy != 0
		if !ready && d.cfg.Policy != PolicyUnconditional {
			return nil
		}
		raw, err := d.read(tx, d.energyReg)
		if err != nil {
			return err
		}
		d.total += float64(raw) * d.cfg.Cal.EnergyCal
		d.samples++
		d.lastTs = d.clock()
		if !ready {
			return nil
		}
		d.cleared++
		return d.write(tx, RegStatus0, int64(StatusLEnergy))
	})
	return ready, err
}

// Frequency returns the line frequency in Hz, or 0 before the first cycle.
func (d *Device) Frequency() (float64, error) {
	p, err := d.ReadRegister(RegPeriod)
	if err != nil || p == 0 {
		return 0, err
	}
	return periodClockHz / float64(p), nil
}

// Current returns the rms current in amps on channel 'A'..'F'.
func (d *Device) Current(ch byte) (float64, error) {
	name, ok := currentRMS(ch)
	if !ok {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "ade7816.current", Msg: "channel must be A..F"}
	}
	raw, err := d.ReadRegister(name)
	if err != nil {
		return 0, err
	}
	return float64(raw) * (rmsFullScaleVolts / rmsFullScaleCode) * d.cfg.Cal.CTCal, nil
}

// PhaseCurrent is Current on the configured phase.
func (d *Device) PhaseCurrent() (float64, error) { return d.Current(d.cfg.Phase) }

// Voltage returns the rms line voltage.
func (d *Device) Voltage() (float64, error) {
	raw, err := d.ReadRegister(RegVRMS)
	if err != nil {
		return 0, err
	}
	return float64(raw) * (rmsFullScaleVolts / rmsFullScaleCode) * d.cfg.Cal.VGain * d.cfg.Cal.VTCal, nil
}

func (d *Device) Version() (uint8, error) {
	v, err := d.ReadRegister(RegVersion)
	return uint8(v), err
}

// StopDSP halts the DSP. Reads stay valid; energies stop accumulating.
func (d *Device) StopDSP() error { return d.WriteRegister(RegRun, 0) }

func (d *Device) StartDSP() error { return d.WriteRegister(RegRun, 1) }

// Snapshot is a copy of the accumulated state.
type Snapshot struct {
	Index       int
	Online      bool
	TotalEnergy float64
	Samples     uint64
	Cleared     uint32 // line-cycle interrupts acknowledged
	Status1     uint32 // last STATUS1 seen at readout
	Since       time.Time
	LastTs      time.Time
}

// AveragePower is TotalEnergy per hour since Initialize.
func (s Snapshot) AveragePower() float64 {
	h := s.LastTs.Sub(s.Since).Hours()
	if h <= 0 {
		return 0
	}
	return s.TotalEnergy / h
}

func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Index:       d.cfg.Index,
		Online:      d.online,
		TotalEnergy: d.total,
		Samples:     d.samples,
		Cleared:     d.cleared,
		Status1:     d.status1,
		Since:       d.since,
		LastTs:      d.lastTs,
	}
}

// ResetEnergy zeroes the running total and restarts the elapsed-time reference.
func (d *Device) ResetEnergy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()
	d.total, d.samples = 0, 0
	d.since, d.lastTs = now, now
}
