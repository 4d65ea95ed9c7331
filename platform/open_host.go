//go:build !rp2040

package platform

// Open builds a host board: fake pins and one simulated chip per
// chip-select, all sharing the IRQ line. Nothing is streamed.
func Open(p Params) (Resources, error) {
	pins := NewHostPinFactory()
	bus := NewSimBus(pins.Pin(p.IRQ))
	for _, cs := range p.ChipCS {
		bus.Attach(pins.Pin(cs))
	}
	return Resources{Pins: pins, SPI: bus}, nil
}

// Sim returns the simulated bus behind r, if any.
func Sim(r Resources) (*SimBus, *HostPinFactory, bool) {
	b, ok := r.SPI.(*SimBus)
	if !ok {
		return nil, nil, false
	}
	f, ok := r.Pins.(*HostPinFactory)
	return b, f, ok
}
