package errcode

// Code is a stable error identifier shared by drivers, services and the bus.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"

	// Register protocol.
	UnknownRegister Code = "unknown_register"
	ChipComm        Code = "chip_comm"
	ShortBuffer     Code = "short_buffer"

	// Bus arbitration and scheduling.
	TxClosed   Code = "tx_closed"
	IRQTimeout Code = "irq_timeout"

	// Configuration and framing.
	InvalidConfig Code = "invalid_config"
	UnknownBoard  Code = "unknown_board"
	UnknownPin    Code = "unknown_pin"
	BadFrame      Code = "bad_frame"

	Error Code = "error" // generic fallback
)

// E keeps the operation, a detail message and the cause next to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match a wrapped *E by code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E; a nil cause is allowed.
func Wrap(c Code, op, msg string, cause error) error {
	return &E{C: c, Op: op, Msg: msg, Err: cause}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return Of(u.Unwrap())
	}
	// errors.Join: the first coded error wins.
	type multi interface{ Unwrap() []error }
	if m, ok := err.(multi); ok {
		for _, e := range m.Unwrap() {
			if c := Of(e); c != Error {
				return c
			}
		}
	}
	return Error
}
