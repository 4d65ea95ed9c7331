package rotary

import (
	"testing"

	"eemon-go/platform"
)

func feed(d *Decoder, seq ...uint8) {
	for _, p := range seq {
		d.Update(p)
	}
}

func newDecoder() *Decoder {
	return New(platform.NewFakePin(10), platform.NewFakePin(9))
}

func TestDecoder_FullCycles(t *testing.T) {
	d := newDecoder()
	feed(d, 0b11, 0b01, 0b00, 0b10, 0b11)
	if d.Value() != 1 {
		t.Fatalf("clockwise value=%d want 1", d.Value())
	}
	st := d.State()
	if st.Sub != 0 || st.Invalid != 0 || st.Prev != Detent {
		t.Fatalf("state not reset: %+v", st)
	}
	feed(d, 0b11, 0b10, 0b00, 0b01, 0b11)
	feed(d, 0b10, 0b00, 0b01, 0b11)
	if d.Value() != -1 {
		t.Fatalf("after two counter-clockwise cycles value=%d want -1", d.Value())
	}
}

func TestDecoder_DuplicateSamplesIgnored(t *testing.T) {
	d := newDecoder()
	feed(d, 0b11, 0b11, 0b01, 0b01, 0b00, 0b00, 0b10, 0b11, 0b11)
	if d.Value() != 1 {
		t.Fatalf("value=%d", d.Value())
	}
}

func TestDecoder_SalvagesMissedPhase(t *testing.T) {
	d := newDecoder()
	// 11 -> 01 (+1), 01 -> 10 jump, 10 -> 11 (+1): sub=2 invalid=1, (2+2)>>2 = 1.
	feed(d, 0b01, 0b10, 0b11)
	if d.Value() != 1 {
		t.Fatalf("value=%d want 1", d.Value())
	}
	if d.Ambiguous() != 1 {
		t.Fatalf("ambiguous=%d", d.Ambiguous())
	}

	// Same thing counter-clockwise.
	feed(d, 0b10, 0b01, 0b11)
	if d.Value() != 0 {
		t.Fatalf("value=%d want 0", d.Value())
	}
}

func TestDecoder_SalvagesSkippedPhaseFromDetent(t *testing.T) {
	d := newDecoder()
	// 11 -> 00 jump, then 00 -> 10 -> 11 clockwise.
	feed(d, 0b00, 0b10)
	if st := d.State(); st.Invalid != 1 || st.Sub != 1 || st.Value != 0 {
		t.Fatalf("before detent: %+v", st)
	}
	feed(d, 0b11)
	if d.Value() != 1 {
		t.Fatalf("value=%d want 1", d.Value())
	}
	if st := d.State(); st.Invalid != 0 || st.Sub != 0 {
		t.Fatalf("not reset at detent: %+v", st)
	}

	// Counter-clockwise: 11 -> 00 jump, then 00 -> 01 -> 11.
	feed(d, 0b00, 0b01, 0b11)
	if d.Value() != 0 {
		t.Fatalf("value=%d want 0", d.Value())
	}
}

func TestDecoder_NoSalvageWithoutDirection(t *testing.T) {
	d := newDecoder()
	// 11 -> 00 jump, 00 -> 11 jump: sub=0, nothing committed.
	feed(d, 0b00, 0b11)
	if d.Value() != 0 {
		t.Fatalf("value=%d", d.Value())
	}
	if st := d.State(); st.Invalid != 0 {
		t.Fatalf("invalid not reset at detent: %+v", st)
	}
}

func TestDecoder_PartialTurnDoesNotCommit(t *testing.T) {
	d := newDecoder()
	// Wiggle back before completing the cycle.
	feed(d, 0b01, 0b11)
	if d.Value() != 0 {
		t.Fatalf("value=%d", d.Value())
	}
}

type held bool

func (h held) IsDown() bool { return bool(h) }

func TestDecoder_ShiftedValue(t *testing.T) {
	shift := held(true)
	d := newDecoder().WithShift(&shift, 10)
	feed(d, 0b01, 0b00, 0b10, 0b11)
	shift = false
	feed(d, 0b01, 0b00, 0b10, 0b11)
	if d.Value() != 2 || d.ShiftedValue() != 11 {
		t.Fatalf("value=%d shifted=%d", d.Value(), d.ShiftedValue())
	}
	d.Reset()
	if d.Value() != 0 || d.ShiftedValue() != 0 {
		t.Fatal("reset")
	}
}

func TestDecoder_SamplesPins(t *testing.T) {
	a, b := platform.NewFakePin(10), platform.NewFakePin(9)
	d := New(a, b)
	for _, s := range []struct{ a, b bool }{{false, true}, {false, false}, {true, false}, {true, true}} {
		a.Drive(s.a)
		b.Drive(s.b)
		d.HandleEdge()
	}
	if d.Value() != 1 {
		t.Fatalf("value=%d", d.Value())
	}
}
