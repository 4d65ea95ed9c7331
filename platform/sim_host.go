//go:build !rp2040

package platform

import (
	"sync"

	"eemon-go/drivers/ade7816"
	"eemon-go/errcode"
)

// SimBus implements drivers.SPI for host builds. Each Tx is routed to the
// SimChip whose chip-select pin is an output driven low. With nothing
// selected MISO floats high and writes go nowhere.
//
// The chips share one open-drain IRQ line: it is pulled low while any chip
// has an enabled status bit pending.
type SimBus struct {
	mu    sync.Mutex
	chips []*SimChip
	irq   *FakePin
	txs   int
}

// NewSimBus returns a bus whose chips drive irq. irq may be nil.
func NewSimBus(irq *FakePin) *SimBus { return &SimBus{irq: irq} }

// Attach places a fresh chip behind cs.
func (b *SimBus) Attach(cs *FakePin) *SimChip {
	c := newSimChip(cs)
	b.mu.Lock()
	b.chips = append(b.chips, c)
	b.mu.Unlock()
	return c
}

func (b *SimBus) Chips() []*SimChip {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*SimChip(nil), b.chips...)
}

// Transactions counts Tx calls that reached a chip.
func (b *SimBus) Transactions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txs
}

func (b *SimBus) Tx(w, r []byte) error {
	b.mu.Lock()
	var sel *SimChip
	for _, c := range b.chips {
		if !c.cs.Selected() {
			continue
		}
		if sel != nil {
			b.mu.Unlock()
			return &errcode.E{C: errcode.Busy, Op: "simbus.tx", Msg: "more than one chip-select asserted"}
		}
		sel = c
	}
	if sel == nil || sel.absent {
		for i := range r {
			r[i] = 0xFF
		}
		b.mu.Unlock()
		return nil
	}
	b.txs++
	sel.tx(w, r)
	pending := b.pendingLocked()
	b.mu.Unlock()
	b.driveIRQ(pending)
	return nil
}

func (b *SimBus) Transfer(c byte) (byte, error) {
	var r [1]byte
	err := b.Tx([]byte{c}, r[:])
	return r[0], err
}

func (b *SimBus) pendingLocked() bool {
	for _, c := range b.chips {
		if c.pending() {
			return true
		}
	}
	return false
}

func (b *SimBus) driveIRQ(pending bool) {
	if b.irq != nil {
		b.irq.Drive(!pending)
	}
}

// LatchLineEnergy ends a line-cycle accumulation on chip i: counts are added
// to the phase's energy register, LENERGY is latched and the IRQ line follows.
// It reports false when the chip's DSP is stopped.
func (b *SimBus) LatchLineEnergy(i int, phase byte, counts int32) bool {
	b.mu.Lock()
	if i < 0 || i >= len(b.chips) {
		b.mu.Unlock()
		return false
	}
	ok := b.chips[i].latch(phase, counts)
	pending := b.pendingLocked()
	b.mu.Unlock()
	b.driveIRQ(pending)
	return ok
}

// SimWrite is one register write seen by a SimChip.
type SimWrite struct {
	Reg string
	Raw uint32
}

type corruption struct {
	n int
	v uint32
}

// SimChip is a register-level model of one ADE7816. Its fields are guarded
// by the owning SimBus.
type SimChip struct {
	cs       *FakePin
	regs     map[uint16]uint32
	readAddr uint16
	armed    bool
	absent   bool
	corrupt  map[uint16]corruption
	writes   []SimWrite
	reads    map[string]int
}

var byAddr = func() map[uint16]ade7816.Register {
	m := make(map[uint16]ade7816.Register, len(ade7816.Registers))
	for _, r := range ade7816.Registers {
		m[r.Addr] = r
	}
	return m
}()

func addrOf(name string) uint16 { return ade7816.Registers[name].Addr }

func newSimChip(cs *FakePin) *SimChip {
	c := &SimChip{
		cs:      cs,
		regs:    make(map[uint16]uint32),
		corrupt: make(map[uint16]corruption),
		reads:   make(map[string]int),
	}
	// Power-on state: reset-done latched, DSP stopped.
	c.regs[addrOf(ade7816.RegStatus1)] = ade7816.Status1RSTD
	c.regs[addrOf(ade7816.RegVersion)] = 0x02
	return c
}

func widthMask(f ade7816.Format) uint32 {
	if f.Bytes >= 4 {
		return 0xFFFF_FFFF
	}
	return 1<<(8*uint(f.Bytes)) - 1
}

func (c *SimChip) tx(w, r []byte) {
	if len(w) >= 3 {
		addr := uint16(w[1])<<8 | uint16(w[2])
		switch w[0] {
		case 0x01:
			c.readAddr, c.armed = addr, true
		case 0x00:
			var raw uint32
			for _, x := range w[3:] {
				raw = raw<<8 | uint32(x)
			}
			c.write(addr, raw)
		}
	}
	if len(r) == 0 {
		return
	}
	if !c.armed {
		for i := range r {
			r[i] = 0xFF
		}
		return
	}
	c.armed = false
	raw := c.read(c.readAddr)
	for i := range r {
		r[i] = byte(raw >> (8 * uint(len(r)-1-i)))
	}
}

func (c *SimChip) read(addr uint16) uint32 {
	reg, known := byAddr[addr]
	if known {
		c.reads[reg.Name]++
	}
	if k, ok := c.corrupt[addr]; ok && k.n > 0 {
		k.n--
		c.corrupt[addr] = k
		return k.v
	}
	raw := c.regs[addr]
	if known && isEnergy(reg.Name) && c.regs[addrOf(ade7816.RegLCycMode)]&uint32(ade7816.LCycRstRead) != 0 {
		c.regs[addr] = 0
	}
	return raw
}

func (c *SimChip) write(addr uint16, raw uint32) {
	reg, known := byAddr[addr]
	if !known {
		return
	}
	c.writes = append(c.writes, SimWrite{Reg: reg.Name, Raw: raw})
	switch reg.Name {
	case ade7816.RegStatus0, ade7816.RegStatus1:
		c.regs[addr] &^= raw
	default:
		c.regs[addr] = raw & widthMask(reg.Fmt)
	}
}

func isEnergy(name string) bool {
	return len(name) == 7 && name[1:] == "WATTHR"
}

func (c *SimChip) running() bool { return c.regs[addrOf(ade7816.RegRun)]&1 != 0 }

func (c *SimChip) pending() bool {
	s0 := c.regs[addrOf(ade7816.RegStatus0)] & c.regs[addrOf(ade7816.RegMask0)]
	s1 := c.regs[addrOf(ade7816.RegStatus1)] & c.regs[addrOf(ade7816.RegMask1)]
	return s0|s1 != 0
}

func (c *SimChip) latch(phase byte, counts int32) bool {
	if !c.running() || phase < 'A' || phase > 'F' {
		return false
	}
	a := addrOf(string(phase) + "WATTHR")
	c.regs[a] += uint32(counts)
	c.regs[addrOf(ade7816.RegStatus0)] |= ade7816.StatusLEnergy
	return true
}

// SimChipView accesses one chip under its bus lock.
type SimChipView struct {
	b *SimBus
	c *SimChip
}

// Chip returns a view of chip i in attach order.
func (b *SimBus) Chip(i int) SimChipView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return SimChipView{b: b, c: b.chips[i]}
}

// SetRegister stores v in its register format.
func (v SimChipView) SetRegister(name string, val int64) error {
	reg, err := ade7816.Lookup(name)
	if err != nil {
		return err
	}
	v.b.mu.Lock()
	v.c.regs[reg.Addr] = reg.Fmt.ToRaw(val) & widthMask(reg.Fmt)
	pending := v.b.pendingLocked()
	v.b.mu.Unlock()
	v.b.driveIRQ(pending)
	return nil
}

// Register returns the decoded register value without read side effects.
func (v SimChipView) Register(name string) int64 {
	reg := ade7816.Registers[name]
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	return reg.Fmt.FromRaw(v.c.regs[reg.Addr])
}

// CorruptReads makes the next n reads of name return raw.
func (v SimChipView) CorruptReads(name string, n int, raw uint32) {
	v.b.mu.Lock()
	v.c.corrupt[addrOf(name)] = corruption{n: n, v: raw}
	v.b.mu.Unlock()
}

// SetAbsent simulates an unpopulated footprint: MISO floats high.
func (v SimChipView) SetAbsent(absent bool) {
	v.b.mu.Lock()
	v.c.absent = absent
	v.b.mu.Unlock()
}

func (v SimChipView) Running() bool {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	return v.c.running()
}

func (v SimChipView) Pending() bool {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	return v.c.pending()
}

// Writes returns the write log in order.
func (v SimChipView) Writes() []SimWrite {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	return append([]SimWrite(nil), v.c.writes...)
}

// WriteCount counts writes to name.
func (v SimChipView) WriteCount(name string) int {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	n := 0
	for _, w := range v.c.writes {
		if w.Reg == name {
			n++
		}
	}
	return n
}

// ReadCount counts reads of name.
func (v SimChipView) ReadCount(name string) int {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	return v.c.reads[name]
}
