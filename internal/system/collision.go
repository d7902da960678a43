package system

import (
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/core/event"
	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/world"
)

// CollisionSystem delivers the physics contacts reported during the previous
// tick to both entities involved, when their type opted in.
// Phase 1 (PreUpdate).
type CollisionSystem struct {
	bus   *event.Bus
	state *world.State
}

func NewCollisionSystem(bus *event.Bus, st *world.State) *CollisionSystem {
	s := &CollisionSystem{bus: bus, state: st}
	event.Subscribe(bus, s.deliver)
	return s
}

func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *CollisionSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

func (s *CollisionSystem) deliver(ev event.PhysicsCollision) {
	a := s.state.BehaviorOf(ev.A)
	b := s.state.BehaviorOf(ev.B)
	notify(a, ev.B, b, behavior.Collision{Position: ev.Position, Normal: ev.Normal, Distance: ev.Distance})
	notify(b, ev.A, a, behavior.Collision{Position: ev.Position, Normal: ev.Normal.Scale(-1), Distance: ev.Distance})
}

func notify(slot *behavior.Slot, other ecs.EntityID, otherSlot *behavior.Slot, c behavior.Collision) {
	if slot == nil || !slot.Type.HandlesPhysicsCollisions {
		return
	}
	c.Other = other
	if otherSlot != nil {
		c.OtherBehavior = otherSlot.Impl
	}
	slot.Impl.OnPhysicsCollision(c)
}
