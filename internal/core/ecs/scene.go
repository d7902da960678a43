package ecs

import "github.com/gamelib/server/internal/mathx"

// hierarchy is the per-entity scene-graph record.
type hierarchy struct {
	parent    EntityID
	children  []EntityID
	transform mathx.Transform
	owner     uint64 // connection id, 0 = server owned
}

// Scene is the entity arena: an id pool, a parent/child hierarchy with
// transforms, and the registry of component stores attached to entities.
// Accessed only from the game loop goroutine.
type Scene struct {
	pool     *EntityPool
	registry *Registry
	nodes    *PtrComponentStore[hierarchy]
	roots    []EntityID
}

func NewScene() *Scene {
	s := &Scene{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
		nodes:    NewPtrComponentStore[hierarchy](),
		roots:    make([]EntityID, 0, 64),
	}
	return s
}

func (s *Scene) Registry() *Registry { return s.registry }

// Len returns the number of live entities.
func (s *Scene) Len() int { return s.pool.Len() }

func (s *Scene) Alive(id EntityID) bool { return s.pool.Alive(id) }

// CreateChild creates an entity under parent (0 = scene root) with an
// identity transform.
func (s *Scene) CreateChild(parent EntityID) EntityID {
	if parent != 0 && !s.Alive(parent) {
		parent = 0
	}
	id := s.pool.Create()
	s.nodes.Set(id, &hierarchy{parent: parent, transform: mathx.IdentityTransform})
	if parent == 0 {
		s.roots = append(s.roots, id)
	} else {
		p, _ := s.nodes.Get(parent)
		p.children = append(p.children, id)
	}
	return id
}

// Remove destroys id and its whole subtree. It returns the removed ids in
// pre-order, or nil if id was not alive.
func (s *Scene) Remove(id EntityID) []EntityID {
	h, ok := s.nodes.Get(id)
	if !ok {
		return nil
	}
	if h.parent == 0 {
		s.roots = without(s.roots, id)
	} else if p, ok := s.nodes.Get(h.parent); ok {
		p.children = without(p.children, id)
	}

	removed := s.subtree(id, nil)
	for _, rid := range removed {
		s.registry.RemoveAll(rid)
		s.nodes.Remove(rid)
		s.pool.Destroy(rid)
	}
	return removed
}

// Clear removes every entity.
func (s *Scene) Clear() {
	for _, id := range append([]EntityID(nil), s.roots...) {
		s.Remove(id)
	}
}

// Children returns a copy of the direct children of parent (0 = scene root).
func (s *Scene) Children(parent EntityID) []EntityID {
	if parent == 0 {
		return append([]EntityID(nil), s.roots...)
	}
	h, ok := s.nodes.Get(parent)
	if !ok {
		return nil
	}
	return append([]EntityID(nil), h.children...)
}

func (s *Scene) Parent(id EntityID) EntityID {
	if h, ok := s.nodes.Get(id); ok {
		return h.parent
	}
	return 0
}

// Snapshot returns every live entity in scene traversal (pre-order) order.
// The slice is a copy; mutating the scene while iterating it is safe.
func (s *Scene) Snapshot() []EntityID {
	out := make([]EntityID, 0, s.pool.Len())
	for _, id := range s.roots {
		out = s.subtree(id, out)
	}
	return out
}

// Subtree returns id and its descendants in pre-order.
func (s *Scene) Subtree(id EntityID) []EntityID {
	if !s.Alive(id) {
		return nil
	}
	return s.subtree(id, nil)
}

func (s *Scene) subtree(id EntityID, out []EntityID) []EntityID {
	stack := []EntityID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		h, ok := s.nodes.Get(cur)
		if !ok {
			continue
		}
		for i := len(h.children) - 1; i >= 0; i-- {
			stack = append(stack, h.children[i])
		}
	}
	return out
}

func (s *Scene) Transform(id EntityID) mathx.Transform {
	if h, ok := s.nodes.Get(id); ok {
		return h.transform
	}
	return mathx.IdentityTransform
}

func (s *Scene) SetTransform(id EntityID, t mathx.Transform) {
	if h, ok := s.nodes.Get(id); ok {
		h.transform = t
	}
}

// WorldMatrix composes the transforms from the scene root down to id.
func (s *Scene) WorldMatrix(id EntityID) mathx.Matrix3x4 {
	m := mathx.IdentityMatrix
	for cur := id; cur != 0; cur = s.Parent(cur) {
		m = s.Transform(cur).Matrix().Mul(m)
	}
	return m
}

// Owner returns the connection id that owns id (0 = server).
func (s *Scene) Owner(id EntityID) uint64 {
	if h, ok := s.nodes.Get(id); ok {
		return h.owner
	}
	return 0
}

func (s *Scene) SetOwner(id EntityID, connID uint64) {
	if h, ok := s.nodes.Get(id); ok {
		h.owner = connID
	}
}

// Node returns a handle to id for code that manipulates a single entity.
func (s *Scene) Node(id EntityID) Node {
	return Node{id: id, scene: s}
}

func without(ids []EntityID, id EntityID) []EntityID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
