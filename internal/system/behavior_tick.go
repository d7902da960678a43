package system

import (
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/core/ecs"
	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// BehaviorSystem runs OnServerTick for every entity with a behavior, in scene
// order. Entities removed during the pass are not ticked, even if their id is
// handed out again before the pass ends. Removing a controlled entity, by any
// path, unbinds its player at once. Phase 2 (Update).
type BehaviorSystem struct {
	state   *world.State
	players *world.Players
	clock   Clock
	log     *zap.Logger

	ticking bool
	removed map[ecs.EntityID]struct{}
}

func NewBehaviorSystem(st *world.State, players *world.Players, clock Clock, log *zap.Logger) *BehaviorSystem {
	s := &BehaviorSystem{
		state:   st,
		players: players,
		clock:   clock,
		log:     log,
		removed: make(map[ecs.EntityID]struct{}),
	}
	st.OnRemove(func(id ecs.EntityID) {
		if s.ticking {
			s.removed[id] = struct{}{}
		}
		players.EntityDestroyed(id, clock())
	})
	return s
}

func (s *BehaviorSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *BehaviorSystem) Update(dt time.Duration) {
	s.ticking = true
	for _, id := range s.state.WithBehavior() {
		if _, gone := s.removed[id]; gone {
			continue
		}
		slot := s.state.BehaviorOf(id)
		if slot == nil {
			continue
		}
		if s.tick(id, slot, dt) == behavior.Destroy {
			s.state.Remove(id)
		}
	}
	s.ticking = false
	clear(s.removed)
}

// tick runs one behavior. A panicking behavior is destroyed.
func (s *BehaviorSystem) tick(id ecs.EntityID, slot *behavior.Slot, dt time.Duration) (st behavior.Status) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("behavior panicked, destroying entity",
				zap.Uint32("entity", uint32(id)),
				zap.String("type", slot.Type.Name),
				zap.Any("panic", r),
			)
			st = behavior.Destroy
		}
	}()

	var frame *control.Frame
	if p := s.players.Controller(id); p != nil {
		if f, ok := p.Conn.Controls(); ok {
			slot.Impl.ModifyControlFrame(&f)
			frame = &f
		}
	}
	return slot.Impl.OnServerTick(dt, frame)
}
