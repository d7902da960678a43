package control

import (
	"testing"

	"github.com/gamelib/server/internal/net/packet"
	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeForwardFire(t *testing.T) {
	var f Frame
	f.Set(Forward, true)
	f.Set(Fire, true)
	f.Yaw = 10.0
	f.Pitch = -5.0

	got := Decode(packet.NewReader(f.Packet()))

	assert.True(t, got.IsDown(Forward))
	assert.False(t, got.IsDown(Backward))
	assert.True(t, got.IsDown(Fire))
	assert.Equal(t, float32(10.0), got.Yaw)
	assert.Equal(t, float32(-5.0), got.Pitch)
	assert.True(t, got.Moving())
}

func TestBitLayout(t *testing.T) {
	assert.Equal(t, uint32(0x01), Forward)
	assert.Equal(t, uint32(0x02), Backward)
	assert.Equal(t, uint32(0x04), Left)
	assert.Equal(t, uint32(0x08), Right)
	assert.Equal(t, uint32(0x10), Jump)
	assert.Equal(t, uint32(0x20), Crouch)
	assert.Equal(t, uint32(0x40), Fire)
	assert.Equal(t, uint32(0x3f), AnyMovementKey)
}

func TestOpposingButtonsSurviveTheCodec(t *testing.T) {
	f := Frame{Buttons: Forward | Backward | Left | Right | Jump | Crouch}
	got := Decode(packet.NewReader(f.Packet()))
	assert.Equal(t, f.Buttons, got.Buttons)
}

func TestFireAloneIsNotMovement(t *testing.T) {
	f := Frame{Buttons: Fire}
	assert.False(t, f.Moving())
	assert.False(t, f.IsDown(AnyMovementKey))
	f.Set(Fire, false)
	assert.Zero(t, f.Buttons)
	assert.False(t, f.IsDown(0))
}

func TestIsDownMatchesAnyBitOfMask(t *testing.T) {
	f := Frame{Buttons: Forward | Fire}
	assert.True(t, f.IsDown(AnyMovementKey))
	assert.True(t, f.Moving())
	assert.True(t, f.IsDown(Backward|Fire))
	assert.False(t, f.IsDown(Backward|Left))
}

func TestAnglesAreNotWrapped(t *testing.T) {
	f := Frame{Yaw: 725.5, Pitch: -400}
	got := Decode(packet.NewReader(f.Packet()))
	assert.Equal(t, float32(725.5), got.Yaw)
	assert.Equal(t, float32(-400), got.Pitch)
}
