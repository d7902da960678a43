package behavior

import (
	"time"

	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/mathx"
)

// SpectatorSpeed is the free-fly speed in units per second.
const SpectatorSpeed = 20

// SpectatorGhostType is the registry entry for SpectatorGhost.
var SpectatorGhostType = Type{
	Name:     "SpectatorGhost",
	Editable: true,
	New:      func() Behavior { return &SpectatorGhost{} },
}

// RegisterBuiltins adds the variants shipped with the framework.
func RegisterBuiltins(r *Registry) error {
	_, err := r.Register(SpectatorGhostType)
	return err
}

// SpectatorGhost is a free-flying camera entity with no physical presence.
type SpectatorGhost struct {
	Base
}

func (g *SpectatorGhost) OnServerTick(dt time.Duration, frame *control.Frame) Status {
	if frame == nil {
		return Continue
	}
	node := g.Node()
	node.SetRotation(mathx.YawPitch(frame.Yaw, frame.Pitch))

	yaw, pitch := frame.Yaw, frame.Pitch
	var move mathx.Vector3
	switch {
	case frame.IsDown(control.Forward) && !frame.IsDown(control.Backward):
		move = move.Add(mathx.Vector3{X: mathx.Sin(yaw) * mathx.Cos(pitch), Y: -mathx.Sin(pitch), Z: mathx.Cos(yaw) * mathx.Cos(pitch)})
	case frame.IsDown(control.Backward) && !frame.IsDown(control.Forward):
		move = move.Add(mathx.Vector3{X: -mathx.Sin(yaw) * mathx.Cos(pitch), Y: mathx.Sin(pitch), Z: -mathx.Cos(yaw) * mathx.Cos(pitch)})
	}
	switch {
	case frame.IsDown(control.Right) && !frame.IsDown(control.Left):
		move = move.Add(mathx.Vector3{X: mathx.Cos(yaw), Z: -mathx.Sin(yaw)})
	case frame.IsDown(control.Left) && !frame.IsDown(control.Right):
		move = move.Add(mathx.Vector3{X: -mathx.Cos(yaw), Z: mathx.Sin(yaw)})
	}
	switch {
	case frame.IsDown(control.Jump) && !frame.IsDown(control.Crouch):
		move.Y++
	case frame.IsDown(control.Crouch) && !frame.IsDown(control.Jump):
		move.Y--
	}

	if move.Length() > 0 {
		step := move.Normalized().Scale(SpectatorSpeed * float32(dt.Seconds()))
		node.SetPosition(node.Position().Add(step))
	}
	return Continue
}

func (g *SpectatorGhost) ModifyControlFrame(frame *control.Frame) {
	frame.Pitch = mathx.Clamp(frame.Pitch, -90, 90)
}

func (g *SpectatorGhost) CameraTransform(frame *control.Frame) mathx.Matrix3x4 {
	node := g.Node()
	rot := node.Rotation()
	if frame != nil {
		rot = mathx.YawPitch(frame.Yaw, frame.Pitch)
	}
	return mathx.NewTransform(node.Position(), rot).Matrix()
}
