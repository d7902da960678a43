package system

import (
	"time"

	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/world"
)

// Clock returns the current time. Tests substitute a manual clock.
type Clock func() time.Time

// RespawnSystem gives a new entity to every player whose respawn deadline
// has passed. Phase 3 (PostUpdate).
type RespawnSystem struct {
	players *world.Players
	clock   Clock
}

func NewRespawnSystem(players *world.Players, clock Clock) *RespawnSystem {
	return &RespawnSystem{players: players, clock: clock}
}

func (s *RespawnSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RespawnSystem) Update(_ time.Duration) {
	s.players.Respawn(s.clock())
}
