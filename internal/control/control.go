// Package control encodes player input: a button bitmask plus the two
// accumulated look angles.
package control

import "github.com/gamelib/server/internal/net/packet"

// Button bits, low to high.
const (
	Forward  uint32 = 1 << iota // 0x01
	Backward                    // 0x02
	Left                        // 0x04
	Right                       // 0x08
	Jump                        // 0x10
	Crouch                      // 0x20
	Fire                        // 0x40
)

// AnyMovementKey masks every movement button; IsDown(AnyMovementKey) is the
// "is moving" test.
const AnyMovementKey = Forward | Backward | Left | Right | Jump | Crouch

// Frame is one input snapshot. Yaw and pitch are accumulated pointer deltas in
// degrees and are never wrapped. Opposing buttons may be down at the same
// time; cancelling them is up to the behavior consuming the frame.
type Frame struct {
	Buttons uint32
	Yaw     float32
	Pitch   float32
}

// IsDown reports whether any bit in mask is set.
func (f Frame) IsDown(mask uint32) bool {
	return f.Buttons&mask != 0
}

// Moving reports whether any movement button is held.
func (f Frame) Moving() bool {
	return f.Buttons&AnyMovementKey != 0
}

// Set sets or clears the bits in mask.
func (f *Frame) Set(mask uint32, down bool) {
	if down {
		f.Buttons |= mask
	} else {
		f.Buttons &^= mask
	}
}

// Encode appends the wire form: DU buttons, F yaw, F pitch.
func (f Frame) Encode(w *packet.Writer) {
	w.WriteDU(f.Buttons)
	w.WriteF(f.Yaw)
	w.WriteF(f.Pitch)
}

// Decode reads a frame written by Encode.
func Decode(r *packet.Reader) Frame {
	return Frame{
		Buttons: r.ReadDU(),
		Yaw:     r.ReadF(),
		Pitch:   r.ReadF(),
	}
}

// Packet builds a complete C_CONTROLS packet.
func (f Frame) Packet() []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_CONTROLS)
	f.Encode(w)
	return w.Bytes()
}
