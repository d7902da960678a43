// Package client is the observer side of a connection: it mirrors the
// server's entities, turns local input into control frames and runs the
// client tick of every replicated behavior.
package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/decal"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

var ErrRejected = errors.New("rejected by server")

// Input is the local input sampled for one step.
type Input struct {
	Forward, Backward, Left, Right bool
	Jump, Crouch                   bool
	Fire                           bool
	MouseDX, MouseDY               float32 // pointer movement since the last step
}

func (in Input) buttons() uint32 {
	var f control.Frame
	f.Set(control.Forward, in.Forward)
	f.Set(control.Backward, in.Backward)
	f.Set(control.Left, in.Left)
	f.Set(control.Right, in.Right)
	f.Set(control.Jump, in.Jump)
	f.Set(control.Crouch, in.Crouch)
	f.Set(control.Fire, in.Fire)
	return f.Buttons
}

// State is the client's copy of the scene plus its view state. Local entity
// ids differ from the server's; the mapping is kept here.
type State struct {
	World  *world.State
	Decals *decal.Manager

	sensitivity float32
	remote      map[uint32]ecs.EntityID
	local       map[ecs.EntityID]uint32

	connID     uint32
	controlled uint32 // server id, 0 = none
	takeYaw    bool
	yaw, pitch float32
	camera     mathx.Matrix3x4

	ticking bool
	removed map[ecs.EntityID]struct{}

	log *zap.Logger
}

func NewState(types *behavior.Registry, cfg config.ClientConfig, log *zap.Logger) *State {
	s := &State{
		World:       world.NewState(types, log),
		sensitivity: cfg.MouseSensitivity,
		remote:      make(map[uint32]ecs.EntityID),
		local:       make(map[ecs.EntityID]uint32),
		camera:      mathx.IdentityMatrix,
		removed:     make(map[ecs.EntityID]struct{}),
		log:         log,
	}
	s.Decals = decal.NewManager(s.World, cfg.MaxDecals, log)
	s.World.OnRemove(func(id ecs.EntityID) {
		if rid, ok := s.local[id]; ok {
			delete(s.local, id)
			delete(s.remote, rid)
		}
		if s.ticking {
			s.removed[id] = struct{}{}
		}
	})
	return s
}

// ConnectionID is the id the server assigned in its welcome.
func (s *State) ConnectionID() uint32 { return s.connID }

// Controlled returns the local id of the controlled entity, or 0 if there is
// none or it has not been replicated yet.
func (s *State) Controlled() ecs.EntityID { return s.remote[s.controlled] }

// Local maps a server entity id to the local one.
func (s *State) Local(remoteID uint32) (ecs.EntityID, bool) {
	id, ok := s.remote[remoteID]
	return id, ok
}

func (s *State) Yaw() float32   { return s.yaw }
func (s *State) Pitch() float32 { return s.pitch }

// Camera is the viewpoint computed in the last step.
func (s *State) Camera() mathx.Matrix3x4 { return s.camera }

// Handle applies one server message. Unknown opcodes are ignored.
func (s *State) Handle(data []byte) error {
	r := packet.NewReader(data)
	switch r.Opcode() {
	case packet.S_OPCODE_WELCOME:
		s.connID = r.ReadDU()
	case packet.S_OPCODE_REJECT:
		return fmt.Errorf("%w: %s", ErrRejected, r.ReadS())
	case packet.S_OPCODE_SET_CONTROLLED_NODE:
		s.controlled = r.ReadDU()
		s.takeYaw = true
	case packet.S_OPCODE_ENTITY_STATE:
		rid := r.ReadDU()
		typeID := r.ReadDU()
		var f [12]float32
		for i := range f {
			f[i] = r.ReadF()
		}
		if r.Overflow() {
			return fmt.Errorf("entity state: truncated")
		}
		s.applyState(rid, typeID, mathx.MatrixFromFloats(f))
	case packet.S_OPCODE_ENTITY_REMOVE:
		rid := r.ReadDU()
		if id, ok := s.remote[rid]; ok {
			s.World.Remove(id)
		}
	}
	if r.Overflow() {
		return fmt.Errorf("opcode %d: truncated", r.Opcode())
	}
	return nil
}

func (s *State) applyState(rid, typeID uint32, m mathx.Matrix3x4) {
	tr := m.Decompose()
	if id, ok := s.remote[rid]; ok {
		if slot := s.World.BehaviorOf(id); slot != nil && slot.Type.ID == typeID {
			s.World.Scene.SetTransform(id, tr)
			return
		}
		s.World.Remove(id)
	}
	t, ok := s.World.Types.Lookup(typeID)
	if !ok {
		s.log.Warn("replicated entity has unknown type",
			zap.Uint32("entity", rid),
			zap.Uint32("type_id", typeID),
		)
		return
	}
	id := s.World.Replicate(t, tr)
	s.remote[rid] = id
	s.local[id] = rid
	s.World.BehaviorOf(id).Impl.OnAddedToClient()
}

// Step advances the client by dt. While a controlled entity is present it
// returns the control frame to send to the server.
func (s *State) Step(dt time.Duration, in Input) (control.Frame, bool) {
	frame, ok := s.controls(in)
	s.tick(dt)
	s.Decals.Update()
	return frame, ok
}

func (s *State) controls(in Input) (control.Frame, bool) {
	id := s.Controlled()
	slot := s.World.BehaviorOf(id)
	if id == 0 || slot == nil {
		return control.Frame{}, false
	}

	if s.takeYaw {
		s.yaw = s.World.Scene.Transform(id).Rotation.YawAngle()
		s.takeYaw = false
	}
	s.yaw += s.sensitivity * in.MouseDX
	s.pitch += s.sensitivity * in.MouseDY

	frame := control.Frame{Buttons: in.buttons(), Yaw: s.yaw, Pitch: s.pitch}
	slot.Impl.ModifyControlFrame(&frame)
	s.yaw, s.pitch = frame.Yaw, frame.Pitch
	s.camera = slot.Impl.CameraTransform(&frame)
	return frame, true
}

// tick runs OnClientTick in scene order. Entities removed during the pass
// are skipped.
func (s *State) tick(dt time.Duration) {
	s.ticking = true
	for _, id := range s.World.WithBehavior() {
		if _, gone := s.removed[id]; gone {
			continue
		}
		slot := s.World.BehaviorOf(id)
		if slot == nil {
			continue
		}
		if s.clientTick(id, slot, dt) == behavior.Destroy {
			s.World.Remove(id)
		}
	}
	s.ticking = false
	clear(s.removed)
}

func (s *State) clientTick(id ecs.EntityID, slot *behavior.Slot, dt time.Duration) (st behavior.Status) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("client behavior panicked, removing entity",
				zap.Uint32("entity", uint32(id)),
				zap.String("type", slot.Type.Name),
				zap.Any("panic", r),
			)
			st = behavior.Destroy
		}
	}()
	return slot.Impl.OnClientTick(dt)
}
