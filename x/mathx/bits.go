package mathx

import "golang.org/x/exp/constraints"

// Mask32 returns a word with the low n bits set. n >= 32 yields all ones.
func Mask32(n uint) uint32 {
	if n >= 32 {
		return 0xFFFF_FFFF
	}
	return uint32(1)<<n - 1
}

// SignExtend interprets the low n bits of v as a two's-complement field.
// n outside 1..64 returns v unchanged.
func SignExtend[T constraints.Unsigned](v T, n uint) int64 {
	if n == 0 || n >= 64 {
		return int64(v)
	}
	s := 64 - n
	return int64(uint64(v)<<s) >> s
}

// Truncate keeps the low n bits of a signed value, as an unsigned word.
func Truncate[T constraints.Signed](v T, n uint) uint32 {
	return uint32(int64(v)) & Mask32(n)
}
