//go:build !rp2040

package main

import (
	"bytes"
	"strings"
	"testing"

	"eemon-go/stream"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRegs_SortedByAddress(t *testing.T) {
	out, err := run(t, "regs")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 100 {
		t.Fatalf("only %d registers listed", len(lines))
	}
	if !strings.Contains(out, "0xE707  VERSION    8U") {
		t.Fatalf("VERSION row missing:\n%s", out)
	}
	for i := 1; i < len(lines); i++ {
		if lines[i][:6] < lines[i-1][:6] {
			t.Fatalf("out of order at %q", lines[i])
		}
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"decode", "32SE", "FFFFFF38"}, "32SE -200 "},
		{[]string{"decode", "version", "0x02"}, "8U 2 (0x2)"},
		{[]string{"decode", "16U", "0100"}, "16U 256 (0x100)"},
	}
	for _, c := range cases {
		out, err := run(t, c.args...)
		if err != nil || !strings.Contains(out, c.want) {
			t.Fatalf("decode %v = %q, %v; want %q", c.args[1:], out, err, c.want)
		}
	}
	if _, err := run(t, "decode", "32U", "0102"); err == nil {
		t.Fatal("short input should fail")
	}
	if _, err := run(t, "decode", "nope", "00"); err == nil {
		t.Fatal("unknown format should fail")
	}
}

func TestMonitor_SkipsBadFrames(t *testing.T) {
	good, err := stream.Encode(&stream.Snapshot{Seq: 4, Channels: []stream.Channel{{Index: 1, Online: true, EnergyWh: 2}}})
	if err != nil {
		t.Fatal(err)
	}
	bad := append([]byte(nil), good...)
	bad[len(bad)-1] ^= 0x55

	var in bytes.Buffer
	in.Write(bad)
	in.Write(good)
	var out bytes.Buffer
	if err := monitor(stream.NewReader(&in), &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); strings.Count(got, "#4 ") != 1 || !strings.Contains(got, "ch1 online=true energy=2.000") {
		t.Fatalf("output:\n%s", got)
	}
}

func TestSim_RejectsBadDurations(t *testing.T) {
	for _, args := range [][]string{
		{"sim", "--every", "0s"},
		{"sim", "--every=-1ms"},
		{"sim", "--seconds", "0"},
	} {
		out, err := run(t, args...)
		if err == nil || !strings.Contains(out, "must be positive") {
			t.Fatalf("%v: err=%v out=%q", args[1:], err, out)
		}
	}
}
