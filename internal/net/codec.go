package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	frameHeaderSize = 2
	// MaxPayload is the largest message a frame can carry.
	MaxPayload      = 0xFFFF - frameHeaderSize
)

// ReadFrame reads one frame and returns its payload.
//
//	[u16 LE total length, header included][payload]
//
// Empty frames are rejected.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	n := int(binary.LittleEndian.Uint16(header[:])) - frameHeaderSize
	if n <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", n+frameHeaderSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", n, err)
	}
	return payload, nil
}

// WriteFrame writes data as one frame with a single Write call.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("frame too large: %d bytes", len(data))
	}
	buf := make([]byte, frameHeaderSize+len(data))
	binary.LittleEndian.PutUint16(buf, uint16(len(buf)))
	copy(buf[frameHeaderSize:], data)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
