package mathx

import "testing"

func TestSignExtend(t *testing.T) {
	cases := []struct {
		v    uint32
		n    uint
		want int64
	}{
		{0xFF0000, 24, -65536},
		{0x7FFFFF, 24, 0x7FFFFF},
		{0x800000, 24, -0x800000},
		{0xFFFF, 16, -1},
		{0x80, 8, -128},
		{0x7F, 8, 127},
		{0xFFFF_FFFF, 32, -1},
	}
	for _, c := range cases {
		if got := SignExtend(c.v, c.n); got != c.want {
			t.Errorf("SignExtend(%#x, %d) = %d, want %d", c.v, c.n, got, c.want)
		}
	}
}

func TestMaskAndTruncate(t *testing.T) {
	if Mask32(24) != 0xFFFFFF || Mask32(32) != 0xFFFF_FFFF || Mask32(0) != 0 {
		t.Fatal("Mask32 wrong")
	}
	if got := Truncate(int32(-1), 24); got != 0xFFFFFF {
		t.Fatalf("Truncate(-1, 24) = %#x", got)
	}
}

func TestClampOrDefault(t *testing.T) {
	if Clamp(5, 10, 0) != 5 || Clamp(-1, 0, 3) != 0 || Clamp(9, 0, 3) != 3 {
		t.Fatal("Clamp wrong")
	}
	if OrDefault(0, 7) != 7 || OrDefault(3, 7) != 3 {
		t.Fatal("OrDefault wrong")
	}
}
