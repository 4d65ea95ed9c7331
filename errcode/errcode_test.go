package errcode

import (
	"errors"
	"testing"
)

func TestWrapMatchesCode(t *testing.T) {
	err := Wrap(ChipComm, "ade7816.init", "self-test mismatch", nil)
	if !errors.Is(err, ChipComm) {
		t.Fatalf("errors.Is(%v, ChipComm) = false", err)
	}
	if errors.Is(err, UnknownRegister) {
		t.Fatal("matched the wrong code")
	}
	if Of(err) != ChipComm {
		t.Fatalf("Of = %q", Of(err))
	}
	if got := err.Error(); got != "ade7816.init: chip_comm: self-test mismatch" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestOfDefaults(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil should be OK")
	}
	if Of(Timeout) != Timeout {
		t.Fatal("bare code not recovered")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("foreign error should map to Error")
	}
	cause := Wrap(IRQTimeout, "", "", nil)
	outer := Wrap(Error, "scan", "", cause)
	if !errors.Is(outer, IRQTimeout) {
		t.Fatal("cause code should be reachable through Unwrap")
	}
}

func TestOfJoined(t *testing.T) {
	err := errors.Join(errors.New("plain"), &E{C: InvalidConfig, Msg: "dup pin"}, Busy)
	if Of(err) != InvalidConfig {
		t.Fatalf("Of = %q", Of(err))
	}
}
