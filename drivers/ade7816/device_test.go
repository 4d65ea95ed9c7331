package ade7816_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"eemon-go/drivers/ade7816"
	"eemon-go/errcode"
	"eemon-go/hal"
	"eemon-go/platform"
	"eemon-go/spibus"
)

type rig struct {
	dev *ade7816.Device
	sim *platform.SimBus
	irq *platform.FakePin
	arb *spibus.Arbiter
}

func newRig(t *testing.T, mutate func(*ade7816.Config)) rig {
	t.Helper()
	pins := platform.NewHostPinFactory()
	irq := pins.Pin(21)
	cs := pins.Pin(10)
	sim := platform.NewSimBus(irq)
	sim.Attach(cs)
	arb, err := spibus.New(sim, nil, []hal.IRQPin{cs, irq})
	if err != nil {
		t.Fatal(err)
	}
	cfg := ade7816.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	dev, err := ade7816.New(arb, cs, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return rig{dev: dev, sim: sim, irq: irq, arb: arb}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestInitialize_Sequence(t *testing.T) {
	r := newRig(t, nil)
	if err := r.dev.Initialize(); err != nil {
		t.Fatal(err)
	}
	chip := r.sim.Chip(0)
	w := chip.Writes()
	for i := 0; i < 3; i++ {
		if w[i].Reg != ade7816.RegDummy {
			t.Fatalf("write %d is %s, want protocol select first", i, w[i].Reg)
		}
	}
	if w[3].Reg != ade7816.RegConfig2 {
		t.Fatalf("write 3 is %s, want CONFIG2", w[3].Reg)
	}
	if last := w[len(w)-1]; last.Reg != ade7816.RegRun || last.Raw != 1 {
		t.Fatalf("last write %+v, want RUN=1", last)
	}
	if n := chip.WriteCount(ade7816.RegRun); n != 3 {
		t.Fatalf("RUN written %d times", n)
	}
	if n := chip.WriteCount("PCF_F_COEFF"); n != 2 {
		t.Fatalf("PCF_F_COEFF written %d times want 2", n)
	}
	if n := chip.WriteCount("PCF_A_COEFF"); n != 1 {
		t.Fatalf("PCF_A_COEFF written %d times", n)
	}
	if got := chip.Register("PCF_C_COEFF"); got != int64(ade7816.PhaseCoeff50Hz) {
		t.Fatalf("PCF_C_COEFF=%#x", got)
	}
	if got := chip.Register(ade7816.RegMask0); got != int64(ade7816.StatusLEnergy) {
		t.Fatalf("MASK0=%#x", got)
	}
	if got := chip.Register(ade7816.RegStatus1); got != 0 {
		t.Fatalf("stale STATUS1=%#x not cleared", got)
	}
	if got := chip.Register(ade7816.RegLineCyc); got != 100 {
		t.Fatalf("LINECYC=%d", got)
	}
	if !chip.Running() || !r.dev.Online() {
		t.Fatal("DSP should be running")
	}
	if r.arb.Active() {
		t.Fatal("arbiter left active")
	}
	if st := r.arb.Stats(); st.Batches != 1 {
		t.Fatalf("initialize should run as one batch, got %d", st.Batches)
	}
}

func TestInitialize_SelfTestMismatchStopsBeforeRun(t *testing.T) {
	r := newRig(t, func(c *ade7816.Config) { c.Index = 4 })
	chip := r.sim.Chip(0)
	chip.CorruptReads(ade7816.RegMask1, 1, 0)

	err := r.dev.Initialize()
	if !errors.Is(err, ade7816.ErrChipCommunication) {
		t.Fatalf("err=%v want chip_comm", err)
	}
	if n := chip.WriteCount(ade7816.RegRun); n != 0 {
		t.Fatalf("RUN written %d times after failed self-test", n)
	}
	if n := chip.WriteCount(ade7816.RegMask0); n != 0 {
		t.Fatal("programming continued after failed self-test")
	}
	if chip.Running() || r.dev.Online() {
		t.Fatal("channel must stay offline")
	}
}

func TestInitialize_AbsentChip(t *testing.T) {
	r := newRig(t, nil)
	r.sim.Chip(0).SetAbsent(true)
	if err := r.dev.Initialize(); errcode.Of(err) != errcode.ChipComm {
		t.Fatalf("err=%v", err)
	}
}

func TestReadout_StatusGated(t *testing.T) {
	clock := time.Unix(1000, 0)
	r := newRig(t, func(c *ade7816.Config) {
		c.Cal.EnergyCal = 0.5
		c.Clock = func() time.Time { return clock }
	})
	if err := r.dev.Initialize(); err != nil {
		t.Fatal(err)
	}
	chip := r.sim.Chip(0)
	clears := chip.WriteCount(ade7816.RegStatus0)

	if !r.sim.LatchLineEnergy(0, 'A', 1000) {
		t.Fatal("latch failed")
	}
	if r.irq.Get() {
		t.Fatal("IRQ line should be asserted")
	}
	clock = clock.Add(time.Hour)
	ready, err := r.dev.OnInterruptReadout()
	if err != nil || !ready {
		t.Fatalf("ready=%v err=%v", ready, err)
	}
	s := r.dev.Snapshot()
	if !near(s.TotalEnergy, 500) || s.Samples != 1 || s.Cleared != 1 {
		t.Fatalf("snapshot %+v", s)
	}
	if !near(s.AveragePower(), 500) {
		t.Fatalf("average power %v", s.AveragePower())
	}
	if !r.irq.Get() {
		t.Fatal("IRQ line should be released after the readout")
	}
	if chip.WriteCount(ade7816.RegStatus0) != clears+1 {
		t.Fatal("expected exactly one STATUS0 clear")
	}

	// Nothing pending: no energy read, no clear.
	ready, err = r.dev.OnInterruptReadout()
	if err != nil || ready {
		t.Fatalf("ready=%v err=%v", ready, err)
	}
	if s := r.dev.Snapshot(); s.Samples != 1 {
		t.Fatalf("samples=%d want 1", s.Samples)
	}
	if chip.WriteCount(ade7816.RegStatus0) != clears+1 {
		t.Fatal("STATUS0 cleared without the bit being set")
	}
}

func TestReadout_ClearsOnlyTheEnergyBit(t *testing.T) {
	r := newRig(t, nil)
	if err := r.dev.Initialize(); err != nil {
		t.Fatal(err)
	}
	chip := r.sim.Chip(0)
	_ = chip.SetRegister(ade7816.RegStatus0, int64(ade7816.StatusLEnergy|ade7816.StatusAEHF))
	if _, err := r.dev.OnInterruptReadout(); err != nil {
		t.Fatal(err)
	}
	if got := chip.Register(ade7816.RegStatus0); got != int64(ade7816.StatusAEHF) {
		t.Fatalf("STATUS0=%#x, other bits must survive", got)
	}
}

func TestReadout_UnconditionalPolicy(t *testing.T) {
	r := newRig(t, func(c *ade7816.Config) { c.Policy = ade7816.PolicyUnconditional })
	if err := r.dev.Initialize(); err != nil {
		t.Fatal(err)
	}
	chip := r.sim.Chip(0)
	clears := chip.WriteCount(ade7816.RegStatus0)
	ready, err := r.dev.OnInterruptReadout()
	if err != nil || ready {
		t.Fatalf("ready=%v err=%v", ready, err)
	}
	if s := r.dev.Snapshot(); s.Samples != 1 {
		t.Fatalf("samples=%d want 1", s.Samples)
	}
	if chip.WriteCount(ade7816.RegStatus0) != clears {
		t.Fatal("status must not be blind-cleared")
	}
}

func TestReadout_EnergyAccumulates(t *testing.T) {
	r := newRig(t, func(c *ade7816.Config) { c.Phase = 'D' })
	if err := r.dev.Initialize(); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int32{100, 250, -50} {
		r.sim.LatchLineEnergy(0, 'D', n)
		if _, err := r.dev.OnInterruptReadout(); err != nil {
			t.Fatal(err)
		}
	}
	if s := r.dev.Snapshot(); !near(s.TotalEnergy, 300) || s.Samples != 3 {
		t.Fatalf("snapshot %+v", s)
	}
	r.dev.ResetEnergy()
	if s := r.dev.Snapshot(); s.TotalEnergy != 0 || s.Samples != 0 {
		t.Fatalf("reset left %+v", s)
	}
}

func TestFrequency(t *testing.T) {
	r := newRig(t, nil)
	f, err := r.dev.Frequency()
	if err != nil || f != 0 {
		t.Fatalf("PERIOD=0 gave %v,%v", f, err)
	}
	_ = r.sim.Chip(0).SetRegister(ade7816.RegPeriod, 120)
	f, err = r.dev.Frequency()
	if err != nil || !near(f, 256000.0/120) {
		t.Fatalf("freq=%v err=%v", f, err)
	}
	_ = r.sim.Chip(0).SetRegister(ade7816.RegPeriod, 5120)
	if f, _ = r.dev.Frequency(); !near(f, 50) {
		t.Fatalf("freq=%v want 50", f)
	}
}

func TestCurrentAndVoltage(t *testing.T) {
	r := newRig(t, func(c *ade7816.Config) {
		c.Cal.CTCal = 2
		c.Cal.VGain = 1
		c.Cal.VTCal = 100
	})
	chip := r.sim.Chip(0)
	_ = chip.SetRegister("IBRMS", 4191910)
	_ = chip.SetRegister(ade7816.RegVRMS, 4191910)

	i, err := r.dev.Current('B')
	if err != nil || !near(i, 0.707) {
		t.Fatalf("current=%v err=%v", i, err)
	}
	v, err := r.dev.Voltage()
	if err != nil || !near(v, 35.35) {
		t.Fatalf("voltage=%v err=%v", v, err)
	}
	if _, err := r.dev.Current('Z'); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err=%v", err)
	}
}

func TestNew_RejectsBadPhase(t *testing.T) {
	cfg := ade7816.DefaultConfig()
	cfg.Phase = 'G'
	if _, err := ade7816.New(nil, nil, cfg); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err=%v", err)
	}
}

func TestRegisterAccess(t *testing.T) {
	r := newRig(t, nil)
	if _, err := r.dev.ReadRegister("BOGUS"); !errors.Is(err, ade7816.ErrUnknownRegister) {
		t.Fatalf("err=%v", err)
	}
	if err := r.dev.WriteRegister("SAGLVL", 0x123456); err != nil {
		t.Fatal(err)
	}
	if got, err := r.dev.ReadRegister("SAGLVL"); err != nil || got != 0x123456 {
		t.Fatalf("SAGLVL=%#x err=%v", got, err)
	}
	// Sign-extended waveform register, round trip through the wire.
	_ = r.sim.Chip(0).SetRegister("IAWV_IDWV", -65536)
	if got, err := r.dev.ReadRegister("IAWV_IDWV"); err != nil || got != -65536 {
		t.Fatalf("IAWV_IDWV=%d err=%v", got, err)
	}
	v, err := r.dev.Version()
	if err != nil || v != 0x02 {
		t.Fatalf("version=%d err=%v", v, err)
	}
	if err := r.dev.StopDSP(); err != nil || r.sim.Chip(0).Running() {
		t.Fatal("StopDSP")
	}
}
