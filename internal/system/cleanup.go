package system

import (
	"time"

	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem checks at tick end that the player set and the binding
// table agree. Phase 5 (Cleanup).
type CleanupSystem struct {
	players *world.Players
	log     *zap.Logger
}

func NewCleanupSystem(players *world.Players, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{players: players, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if err := s.players.Verify(); err != nil {
		s.log.DPanic("player bindings inconsistent", zap.Error(err))
	}
}
