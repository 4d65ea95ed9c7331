package ade7816

import (
	"eemon-go/errcode"
	"eemon-go/x/mathx"
)

// Format describes how a register value travels on the wire and how it is
// rebuilt. Bits is the number of significant bits inside the Bytes-wide
// big-endian container.
type Format struct {
	Tag     string
	Bytes   uint8 // 1, 2 or 4
	Bits    uint8 // 8, 16, 24, 28 or 32
	Signed  bool
	ZeroPad bool
}

// Encoding tags used by the register map.
var (
	Fmt8U  = Format{Tag: "8U", Bytes: 1, Bits: 8}
	Fmt8S  = Format{Tag: "8S", Bytes: 1, Bits: 8, Signed: true}
	Fmt16U = Format{Tag: "16U", Bytes: 2, Bits: 16}
	Fmt16S = Format{Tag: "16S", Bytes: 2, Bits: 16, Signed: true}
	Fmt32U = Format{Tag: "32U", Bytes: 4, Bits: 32}
	Fmt32S = Format{Tag: "32S", Bytes: 4, Bits: 32, Signed: true}

	// 24-bit two's complement, sign-extended to 32 bits by the chip.
	Fmt32SE = Format{Tag: "32SE", Bytes: 4, Bits: 24, Signed: true}
	// 24-bit unsigned, top byte forced to zero.
	Fmt32ZP = Format{Tag: "32ZP", Bytes: 4, Bits: 24, ZeroPad: true}
	// 24-bit two's complement sign-extended to 28 bits inside a
	// zero-padded 32-bit container; read back as 28-bit unsigned.
	Fmt32ZPSE = Format{Tag: "32ZPSE", Bytes: 4, Bits: 28, ZeroPad: true}
)

// Formats lists every encoding, keyed by tag.
var Formats = map[string]Format{
	Fmt8U.Tag:     Fmt8U,
	Fmt8S.Tag:     Fmt8S,
	Fmt16U.Tag:    Fmt16U,
	Fmt16S.Tag:    Fmt16S,
	Fmt32U.Tag:    Fmt32U,
	Fmt32S.Tag:    Fmt32S,
	Fmt32SE.Tag:   Fmt32SE,
	Fmt32ZP.Tag:   Fmt32ZP,
	Fmt32ZPSE.Tag: Fmt32ZPSE,
}

// FromRaw rebuilds a value from the raw container word.
func (f Format) FromRaw(raw uint32) int64 {
	switch f {
	case Fmt32ZPSE:
		return int64(raw & mathx.Mask32(28))
	case Fmt32ZP:
		return int64(raw & mathx.Mask32(24))
	case Fmt32SE:
		return mathx.SignExtend(raw&mathx.Mask32(24), 24)
	}
	raw &= mathx.Mask32(uint(f.Bits))
	if f.Signed {
		return mathx.SignExtend(raw, uint(f.Bits))
	}
	return int64(raw)
}

// ToRaw builds the container word for v. Bits beyond the format are dropped.
func (f Format) ToRaw(v int64) uint32 {
	switch f {
	case Fmt32ZPSE:
		u := mathx.Truncate(v, 24)
		if u&0x80_0000 != 0 {
			u |= 0x0F00_0000
		}
		return u
	case Fmt32ZP:
		return mathx.Truncate(v, 24)
	case Fmt32SE:
		u := mathx.Truncate(v, 24)
		if u&0x80_0000 != 0 {
			u |= 0xFF00_0000
		}
		return u
	}
	return mathx.Truncate(v, uint(f.Bits))
}

// Encode appends the big-endian wire form of v (exactly f.Bytes bytes).
func (f Format) Encode(dst []byte, v int64) []byte {
	raw := f.ToRaw(v)
	for i := int(f.Bytes) - 1; i >= 0; i-- {
		dst = append(dst, byte(raw>>(8*uint(i))))
	}
	return dst
}

// Decode rebuilds a value from exactly f.Bytes big-endian bytes.
func (f Format) Decode(src []byte) (int64, error) {
	if len(src) != int(f.Bytes) {
		return 0, errcode.ShortBuffer
	}
	var raw uint32
	for _, b := range src {
		raw = raw<<8 | uint32(b)
	}
	return f.FromRaw(raw), nil
}
