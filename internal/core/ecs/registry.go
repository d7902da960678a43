package ecs

// Registry tracks all component stores and removal listeners so that
// destroying an entity clears every piece of data attached to it.
type Registry struct {
	stores    []Removable
	listeners []func(EntityID)
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
	}
}

// Register adds component stores to the registry.
func (r *Registry) Register(stores ...Removable) {
	r.stores = append(r.stores, stores...)
}

// OnRemove registers fn to be called for every entity removed from the scene,
// before its components are cleared.
func (r *Registry) OnRemove(fn func(EntityID)) {
	r.listeners = append(r.listeners, fn)
}

// RemoveAll notifies listeners and clears the given entity from every
// registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, fn := range r.listeners {
		fn(id)
	}
	for _, s := range r.stores {
		s.Remove(id)
	}
}
