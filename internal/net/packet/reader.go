package packet

import (
	"encoding/binary"
	"math"
	"strings"
)

// Reader reads packet fields from a received payload.
// Byte 0 is always the opcode. Reads past the end yield zero values and set
// Overflow, so handlers can decode first and validate once.
type Reader struct {
	data     []byte
	off      int
	overflow bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() uint32 {
	if r.off+4 > len(r.data) {
		r.overflow = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadF reads a little-endian IEEE 754 float32.
func (r *Reader) ReadF() float32 {
	return math.Float32frombits(r.ReadDU())
}

// ReadS reads a null-terminated UTF-8 string. Invalid sequences are replaced.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			raw := r.data[start:r.off]
			r.off++ // skip null terminator
			return strings.ToValidUTF8(string(raw), "�")
		}
		r.off++
	}
	r.overflow = true
	return strings.ToValidUTF8(string(r.data[start:r.off]), "�")
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if r.off+n > len(r.data) {
		remaining := r.data[r.off:]
		r.off = len(r.data)
		r.overflow = true
		return remaining
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Overflow reports whether any read ran past the end of the payload.
func (r *Reader) Overflow() bool {
	return r.overflow
}
