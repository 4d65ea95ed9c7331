// Package stream frames instrument snapshots for a byte link.
//
// Wire layout:
//
//	0xE4 | len (u16 BE) | CBOR payload | CRC-16 (u16 BE over len+payload)
package stream

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/fxamacker/cbor/v2"

	"eemon-go/errcode"
)

const (
	Marker     = 0xE4
	MaxPayload = 1024
	headerSize = 3
	crcSize    = 2
)

// Channel is one energy channel in a frame.
type Channel struct {
	Index    int     `cbor:"1,keyasint"`
	Online   bool    `cbor:"2,keyasint"`
	EnergyWh float64 `cbor:"3,keyasint"`
	PowerW   float64 `cbor:"4,keyasint"`
	Samples  uint64  `cbor:"5,keyasint"`
	Status1  uint32  `cbor:"6,keyasint,omitempty"`
}

// Button is the held state of one named button.
type Button struct {
	Name string `cbor:"1,keyasint"`
	Down bool   `cbor:"2,keyasint"`
}

// Snapshot is the frame payload.
type Snapshot struct {
	Seq      uint32    `cbor:"1,keyasint"`
	UptimeMs int64     `cbor:"2,keyasint"`
	Channels []Channel `cbor:"3,keyasint"`
	Rotary   int32     `cbor:"4,keyasint"`
	Buttons  []Button  `cbor:"5,keyasint,omitempty"`
}

func badFrame(msg string, err error) error {
	return &errcode.E{C: errcode.BadFrame, Op: "stream", Msg: msg, Err: err}
}

// Encode returns the framed CBOR encoding of s.
func Encode(s *Snapshot) ([]byte, error) {
	payload, err := cbor.Marshal(s)
	if err != nil {
		return nil, badFrame("encode", err)
	}
	if len(payload) > MaxPayload {
		return nil, badFrame("payload too large", nil)
	}
	out := make([]byte, headerSize, headerSize+len(payload)+crcSize)
	out[0] = Marker
	binary.BigEndian.PutUint16(out[1:3], uint16(len(payload)))
	out = append(out, payload...)
	crc := CRC16(out[1:])
	return binary.BigEndian.AppendUint16(out, crc), nil
}

// Write encodes s and writes the frame to w.
func Write(w io.Writer, s *Snapshot) error {
	b, err := Encode(s)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Reader pulls frames from a byte stream, resynchronising on the marker.
type Reader struct {
	r       *bufio.Reader
	buf     []byte
	skipped uint32
	bad     uint32
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), buf: make([]byte, MaxPayload+headerSize+crcSize)}
}

// Skipped counts bytes discarded while hunting for a marker.
func (r *Reader) Skipped() uint32 { return r.skipped }

// Bad counts frames dropped for length or CRC errors.
func (r *Reader) Bad() uint32 { return r.bad }

// Next returns the next valid snapshot. A frame with a bad length or
// checksum returns a BadFrame error; the caller may keep calling Next.
// io.EOF is returned unchanged.
func (r *Reader) Next() (*Snapshot, error) {
	for {
		c, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == Marker {
			break
		}
		r.skipped++
	}
	hdr := r.buf[:2]
	if _, err := io.ReadFull(r.r, hdr); err != nil {
		return nil, eof(err)
	}
	n := int(binary.BigEndian.Uint16(hdr))
	if n == 0 || n > MaxPayload {
		r.bad++
		return nil, badFrame("bad length", nil)
	}
	body := r.buf[2 : 2+n+crcSize]
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, eof(err)
	}
	want := binary.BigEndian.Uint16(body[n:])
	if CRC16(r.buf[:2+n]) != want {
		r.bad++
		return nil, badFrame("crc mismatch", nil)
	}
	var s Snapshot
	if err := cbor.Unmarshal(body[:n], &s); err != nil {
		r.bad++
		return nil, badFrame("decode", err)
	}
	return &s, nil
}

func eof(err error) error {
	if err == io.ErrUnexpectedEOF {
		return io.EOF
	}
	return err
}
