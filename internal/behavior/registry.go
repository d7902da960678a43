package behavior

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Type describes one behavior variant.
type Type struct {
	Name string
	ID   uint32

	// Editable types may be placed by the editor and are written to scene files.
	Editable bool

	// HandlesPhysicsCollisions routes collision callbacks to the variant.
	HandlesPhysicsCollisions bool

	New func() Behavior
}

// Slot ties an entity to its behavior instance and variant.
type Slot struct {
	Type *Type
	Impl Behavior
}

// TypeID is the 32-bit identifier persisted in scene files for a type name.
func TypeID(name string) uint32 {
	return uint32(xxhash.Sum64String(name))
}

// Registry maps type names and type-ids to variants. Populated at startup,
// read-only afterwards.
type Registry struct {
	byID   map[uint32]*Type
	byName map[string]*Type
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint32]*Type),
		byName: make(map[string]*Type),
	}
}

// Register adds t, filling in its ID from the name.
func (r *Registry) Register(t Type) (*Type, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("register behavior: empty name")
	}
	if t.New == nil {
		return nil, fmt.Errorf("register behavior %q: no factory", t.Name)
	}
	if _, dup := r.byName[t.Name]; dup {
		return nil, fmt.Errorf("register behavior %q: already registered", t.Name)
	}
	t.ID = TypeID(t.Name)
	if other, dup := r.byID[t.ID]; dup {
		return nil, fmt.Errorf("register behavior %q: type-id %#x collides with %q", t.Name, t.ID, other.Name)
	}
	tp := &t
	r.byID[t.ID] = tp
	r.byName[t.Name] = tp
	return tp, nil
}

// MustRegister is Register for startup code; it panics on error.
func (r *Registry) MustRegister(t Type) *Type {
	tp, err := r.Register(t)
	if err != nil {
		panic(err)
	}
	return tp
}

func (r *Registry) Lookup(id uint32) (*Type, bool) {
	t, ok := r.byID[id]
	return t, ok
}

func (r *Registry) ByName(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Editable returns the editor-placeable types sorted by name.
func (r *Registry) Editable() []*Type {
	var out []*Type
	for _, t := range r.byName {
		if t.Editable {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.byName) }
