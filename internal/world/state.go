package world

import (
	"fmt"
	"sort"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/mathx"
	"go.uber.org/zap"
)

// State is the authoritative scene: the entity arena plus the behavior slot
// attached to each simulated entity. Single-goroutine access only (game loop).
type State struct {
	Scene     *ecs.Scene
	Behaviors *ecs.PtrComponentStore[behavior.Slot]
	Types     *behavior.Registry

	journal bool
	removed []ecs.EntityID // entities removed since the last TakeRemoved
	log     *zap.Logger
}

func NewState(types *behavior.Registry, log *zap.Logger) *State {
	s := &State{
		Scene:     ecs.NewScene(),
		Behaviors: ecs.NewPtrComponentStore[behavior.Slot](),
		Types:     types,
		log:       log,
	}
	s.Scene.Registry().Register(s.Behaviors)
	s.Scene.Registry().OnRemove(func(id ecs.EntityID) {
		if s.journal {
			s.removed = append(s.removed, id)
		}
	})
	return s
}

// Spawn creates an entity under parent with transform tr, attaches a new
// behavior of type t and runs OnCreated.
func (s *State) Spawn(t *behavior.Type, parent ecs.EntityID, tr mathx.Transform, enablePhysics bool, init behavior.InitData) ecs.EntityID {
	id := s.Scene.CreateChild(parent)
	s.Scene.SetTransform(id, tr)
	impl := t.New()
	s.Behaviors.Set(id, &behavior.Slot{Type: t, Impl: impl})
	impl.Attach(s.Scene.Node(id))
	impl.OnCreated(enablePhysics, init)
	return id
}

// Replicate creates an observer-side copy of an entity of type t. The
// behavior is attached but OnCreated does not run; that belongs to the
// authoritative side.
func (s *State) Replicate(t *behavior.Type, tr mathx.Transform) ecs.EntityID {
	id := s.Scene.CreateChild(0)
	s.Scene.SetTransform(id, tr)
	impl := t.New()
	s.Behaviors.Set(id, &behavior.Slot{Type: t, Impl: impl})
	impl.Attach(s.Scene.Node(id))
	return id
}

// SpawnByName is Spawn with a registry lookup.
func (s *State) SpawnByName(name string, parent ecs.EntityID, tr mathx.Transform, enablePhysics bool, init behavior.InitData) (ecs.EntityID, error) {
	t, ok := s.Types.ByName(name)
	if !ok {
		return 0, fmt.Errorf("spawn %q: unknown behavior type", name)
	}
	return s.Spawn(t, parent, tr, enablePhysics, init), nil
}

// BehaviorOf returns the slot attached to id, or nil.
func (s *State) BehaviorOf(id ecs.EntityID) *behavior.Slot {
	slot, _ := s.Behaviors.Get(id)
	return slot
}

// Remove destroys id and its subtree. Removing a dead id is a no-op.
func (s *State) Remove(id ecs.EntityID) []ecs.EntityID {
	return s.Scene.Remove(id)
}

// OnRemove registers fn for every entity removed from the scene.
func (s *State) OnRemove(fn func(ecs.EntityID)) {
	s.Scene.Registry().OnRemove(fn)
}

// TrackRemovals starts journaling removed ids for TakeRemoved. Its consumer
// must drain the journal regularly.
func (s *State) TrackRemovals() { s.journal = true }

// TakeRemoved returns and clears the ids removed since the previous call.
// It is always empty unless TrackRemovals was called.
func (s *State) TakeRemoved() []ecs.EntityID {
	out := s.removed
	s.removed = nil
	return out
}

// Clear removes every entity.
func (s *State) Clear() {
	s.Scene.Clear()
}

// WithBehavior returns the entities carrying a behavior in scene traversal order.
func (s *State) WithBehavior() []ecs.EntityID {
	all := s.Scene.Snapshot()
	out := all[:0]
	for _, id := range all {
		if s.Behaviors.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// RayHit is one intersection reported by a Raycaster.
type RayHit struct {
	Entity   ecs.EntityID
	Position mathx.Vector3
	Normal   mathx.Vector3
	Distance float32
}

// Raycaster is the scene-geometry query provided by the physics/render side.
type Raycaster interface {
	Raycast(origin, dir mathx.Vector3, maxDist float32) []RayHit
}

// Hitscan traces a ray and returns the nearest hit whose behavior absorbs it.
// Entities without a behavior, and self, are passed through.
func (s *State) Hitscan(rc Raycaster, origin, dir mathx.Vector3, maxDist float32, self ecs.EntityID) (RayHit, bool) {
	dir = dir.Normalized()
	hits := rc.Raycast(origin, dir, maxDist)
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	for _, h := range hits {
		if h.Entity == self {
			continue
		}
		slot := s.BehaviorOf(h.Entity)
		if slot == nil {
			continue
		}
		if slot.Impl.OnHitscan(h.Position, dir) {
			return h, true
		}
	}
	return RayHit{}, false
}

// Explosion notifies every behavior of an explosion at center.
func (s *State) Explosion(center mathx.Vector3) {
	for _, id := range s.WithBehavior() {
		if slot := s.BehaviorOf(id); slot != nil {
			slot.Impl.OnExplosion(center)
		}
	}
}

// PlacementPosition returns where an instance of t should be placed so that it
// rests on the surface point pos with the given normal.
func PlacementPosition(t *behavior.Type, pos, normal mathx.Vector3) mathx.Vector3 {
	shape := t.New().PlacementShape()
	return pos.Add(shape.PositionAtNormal(normal))
}
