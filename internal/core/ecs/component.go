package ecs

// Removable is a component store the Registry can clear an entity from.
type Removable interface {
	Remove(id EntityID)
}

// PtrComponentStore attaches at most one *T to an entity. Stores registered
// with the scene Registry lose an entity's value when it is removed.
type PtrComponentStore[T any] struct {
	data map[EntityID]*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{data: make(map[EntityID]*T, 64)}
}

// Set attaches c to id; a nil c detaches.
func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	if c == nil {
		delete(s.data, id)
		return
	}
	s.data[id] = c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) { delete(s.data, id) }

func (s *PtrComponentStore[T]) Len() int { return len(s.data) }
