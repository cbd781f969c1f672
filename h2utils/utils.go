// Package h2utils holds the small byte-twiddling helpers shared by the
// frame codec and the HPACK codec: 24/32-bit big-endian conversions,
// padding removal, and zero-copy string/byte conversions.
package h2utils

import "unsafe"

// Uint24ToBytes writes the low 24 bits of n into b in big-endian order.
func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

// BytesToUint24 reads a big-endian 24-bit unsigned integer from b.
func BytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// Uint32ToBytes writes n into b in big-endian order.
func Uint32ToBytes(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

// AppendUint32Bytes appends n, big-endian, to dst.
func AppendUint32Bytes(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// BytesToUint32 reads a big-endian 32-bit unsigned integer from b.
func BytesToUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Resize grows b (reusing its backing array when possible) to exactly
// neededLen bytes.
func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]
	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}
	return b[:neededLen]
}

// CutPadding strips the pad-length octet and trailing padding octets
// from a DATA/HEADERS/PUSH_PROMISE payload, per §6.1/§6.2/§6.6. A
// pad length that is not strictly smaller than the remaining payload
// is a protocol violation and reported via ok=false.
func CutPadding(payload []byte) (out []byte, padLen int, ok bool) {
	if len(payload) == 0 {
		return payload, 0, false
	}

	padLen = int(payload[0])
	rest := payload[1:]
	if padLen >= len(rest) {
		return nil, 0, false
	}

	return rest[:len(rest)-padLen], padLen, true
}

// BytesToString converts b to a string without copying. The caller must
// not mutate b afterwards.
func BytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts s to a byte slice without copying. The caller
// must not mutate the returned slice.
func StringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
