package sim

import (
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/handler"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// Game is implemented by the game built on the core.
type Game interface {
	// InitServerScene populates a freshly created scene. It runs once, after
	// any configured scene file has been loaded.
	InitServerScene(st *world.State) error

	// CreatePlayerEntity creates the entity a player controls, or returns 0
	// to leave the player without one.
	CreatePlayerEntity(st *world.State, p *world.Player) ecs.EntityID

	// CustomMessages maps game-defined opcodes to their handlers.
	CustomMessages() map[byte]handler.CustomHandler
}

// DefaultGame spawns the configured behavior type at the configured spawn
// point for every player and adds nothing to the scene.
type DefaultGame struct {
	Config *config.Config
	Log    *zap.Logger
}

func (g DefaultGame) InitServerScene(*world.State) error { return nil }

func (g DefaultGame) CreatePlayerEntity(st *world.State, p *world.Player) ecs.EntityID {
	sp := g.Config.Server.SpawnPoint
	tr := mathx.NewTransform(mathx.Vector3{X: sp[0], Y: sp[1], Z: sp[2]}, mathx.Identity)
	id, err := st.SpawnByName(g.Config.Server.SpawnType, 0, tr, g.Config.Scene.EnablePhysics, nil)
	if err != nil {
		g.Log.Error("player entity not created", zap.String("player", p.Name), zap.Error(err))
		return 0
	}
	return id
}

func (g DefaultGame) CustomMessages() map[byte]handler.CustomHandler { return nil }
