package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriterReaderFields(t *testing.T) {
	w := NewWriterWithOpcode(S_OPCODE_ENTITY_STATE)
	w.WriteDU(0xDEADBEEF)
	w.WriteF(-5.25)
	w.WriteS("héllo")

	r := NewReader(w.Bytes())
	assert.Equal(t, S_OPCODE_ENTITY_STATE, r.Opcode())
	assert.Equal(t, uint32(0xDEADBEEF), r.ReadDU())
	assert.Equal(t, float32(-5.25), r.ReadF())
	assert.Equal(t, "héllo", r.ReadS())
	assert.Zero(t, r.Remaining())
	assert.False(t, r.Overflow())

	assert.Zero(t, r.ReadDU())
	assert.True(t, r.Overflow())
}

func TestRegistryStateGating(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	calls := 0
	reg.Register(C_OPCODE_CONTROLS, []SessionState{StateInWorld}, func(sess any, r *Reader) {
		calls++
	})

	pkt := []byte{C_OPCODE_CONTROLS}
	assert.ErrorIs(t, reg.Dispatch(nil, StateHandshake, pkt), ErrWrongState)
	assert.NoError(t, reg.Dispatch(nil, StateInWorld, pkt))
	assert.Equal(t, 1, calls)

	// unknown opcodes are ignored
	assert.NoError(t, reg.Dispatch(nil, StateInWorld, []byte{200}))
	assert.ErrorIs(t, reg.Dispatch(nil, StateInWorld, nil), ErrEmptyPacket)
}

func TestRegistryRecoversHandlerPanic(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register(C_OPCODE_HELLO, []SessionState{StateHandshake}, func(sess any, r *Reader) {
		panic("boom")
	})
	err := reg.Dispatch(nil, StateHandshake, []byte{C_OPCODE_HELLO})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRegistryReportsTruncatedPayload(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register(C_OPCODE_SET_NAME, []SessionState{StateInWorld}, func(sess any, r *Reader) {
		r.ReadDU()
	})
	assert.ErrorIs(t, reg.Dispatch(nil, StateInWorld, []byte{C_OPCODE_SET_NAME, 1}), ErrTruncated)
	assert.True(t, reg.Has(C_OPCODE_SET_NAME))
}
