package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SessionState is the protocol phase of a connection.
type SessionState int

const (
	StateHandshake     SessionState = iota // connected, awaiting C_HELLO
	StateInWorld                           // player joined the simulation
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

var (
	ErrEmptyPacket = errors.New("empty packet")
	ErrWrongState  = errors.New("opcode not allowed in session state")
	ErrTruncated   = errors.New("truncated payload")
)

// HandlerFunc handles one packet. sess is the dispatching session, passed
// opaquely so this package stays below net.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn      HandlerFunc
	allowed uint32 // bit per SessionState
}

// Registry maps opcodes to handlers gated by session state.
type Registry struct {
	handlers [256]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Register maps opcode to fn for the given states. A second registration of
// the same opcode replaces the first.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	if reg.handlers[opcode] != nil {
		reg.log.Warn("opcode handler replaced", zap.Uint8("opcode", opcode))
	}
	e := &handlerEntry{fn: fn}
	for _, s := range states {
		e.allowed |= 1 << uint(s)
	}
	reg.handlers[opcode] = e
}

// Has reports whether a handler is registered for opcode.
func (reg *Registry) Has(opcode byte) bool { return reg.handlers[opcode] != nil }

// Dispatch runs the handler for data[0]. Unknown opcodes are ignored; a
// handler panic or a read past the payload end is returned as an error.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	opcode := data[0]
	e := reg.handlers[opcode]
	if e == nil {
		reg.log.Debug("unknown opcode", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}
	if e.allowed&(1<<uint(state)) == 0 {
		return fmt.Errorf("%w: opcode %d in %s", ErrWrongState, opcode, state)
	}

	r := NewReader(data)
	if err := reg.call(e.fn, sess, r, opcode); err != nil {
		return err
	}
	if r.Overflow() {
		return fmt.Errorf("opcode %d: %w (%d bytes)", opcode, ErrTruncated, len(data))
	}
	return nil
}

func (reg *Registry) call(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}
