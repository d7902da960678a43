package decal

import (
	"errors"

	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// Manager owns the decal batches of one scene and the running impression
// total. Game loop only.
type Manager struct {
	state     *world.State
	Drawables *ecs.PtrComponentStore[Drawable]
	batches   *ecs.PtrComponentStore[Batch]
	max       int
	total     int
	log       *zap.Logger
}

// NewManager attaches decal storage to st. Batches disappear with their
// entities; the total catches up on the next sweep.
func NewManager(st *world.State, budget int, log *zap.Logger) *Manager {
	m := &Manager{
		state:     st,
		Drawables: ecs.NewPtrComponentStore[Drawable](),
		batches:   ecs.NewPtrComponentStore[Batch](),
		max:       budget,
		log:       log,
	}
	st.Scene.Registry().Register(m.Drawables, m.batches)
	return m
}

// Total is the running impression count.
func (m *Manager) Total() int { return m.total }

func (m *Manager) Max() int { return m.max }

// Batch returns the batch on id, if any.
func (m *Manager) Batch(id ecs.EntityID) (*Batch, bool) {
	return m.batches.Get(id)
}

// Add appends one impression to the batch of id, creating the batch with the
// given material if the node has none.
func (m *Manager) Add(id ecs.EntityID, material string, d Decal) error {
	if !m.state.Scene.Alive(id) {
		return nil
	}
	b, ok := m.batches.Get(id)
	if !ok {
		b = &Batch{Material: material}
		m.batches.Set(id, b)
	} else if b.Material != material {
		return ErrMaterialMismatch
	}
	b.decals = append(b.decals, d)
	m.total++
	return nil
}

// Place projects d onto the geometry of every entity whose behavior receives
// decals, including their descendants. Each drawable node whose world bounds
// meet the projection volume gets one impression. It returns the number of
// impressions added.
func (m *Manager) Place(material string, d Decal) int {
	volume := d.Bounds()
	visited := make(map[ecs.EntityID]bool)
	added := 0

	for _, root := range m.state.WithBehavior() {
		slot := m.state.BehaviorOf(root)
		if slot == nil || !slot.Impl.ReceivesDecals() {
			continue
		}
		for _, id := range m.state.Scene.Subtree(root) {
			if visited[id] {
				continue
			}
			visited[id] = true

			dr, ok := m.Drawables.Get(id)
			if !ok {
				continue
			}
			wb := dr.Bounds.Transformed(m.state.Scene.WorldMatrix(id))
			if !wb.Intersects(volume) {
				continue
			}
			if err := m.Add(id, material, d); err != nil {
				if errors.Is(err, ErrMaterialMismatch) {
					b, _ := m.batches.Get(id)
					m.log.Error("decal skipped: only one decal material per node",
						zap.Uint32("entity", uint32(id)),
						zap.String("material", material),
						zap.String("batch_material", b.Material),
					)
				}
				continue
			}
			added++
		}
	}
	return added
}

// Update sweeps once if the running total is over budget. It reports whether
// a sweep ran.
func (m *Manager) Update() bool {
	if m.total <= m.max {
		return false
	}
	before := m.total
	m.total = m.Sweep()
	m.log.Debug("decal sweep", zap.Int("before", before), zap.Int("after", m.total))
	return true
}

// Sweep removes the oldest impression of every batch, deletes batches left
// empty, and returns the recomputed total. It does not update the running
// counter; Update does.
func (m *Manager) Sweep() int {
	total := 0
	for _, id := range m.state.Scene.Snapshot() {
		b, ok := m.batches.Get(id)
		if !ok {
			continue
		}
		b.removeOldest(1)
		if b.Len() == 0 {
			m.batches.Remove(id)
			continue
		}
		total += b.Len()
	}
	return total
}
