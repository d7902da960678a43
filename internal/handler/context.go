package handler

import (
	"fmt"

	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	World   *world.State
	Players *world.Players
}

// CustomHandler handles a message type defined by the game. It only runs for
// connections that have joined.
type CustomHandler func(p *world.Player, r *packet.Reader)

// RegisterAll registers the core packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_HELLO,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleHello(sess.(*net.Session), r, deps)
		},
	)

	inWorldStates := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_OPCODE_CONTROLS, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleControls(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_SET_NAME, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleSetName(sess.(*net.Session), r, deps)
		},
	)
}

// RegisterCustom registers a game-defined message handler. Opcodes below
// packet.CustomOpcodeBase belong to the core.
func RegisterCustom(reg *packet.Registry, deps *Deps, opcode byte, fn CustomHandler) error {
	if opcode < packet.CustomOpcodeBase {
		return fmt.Errorf("custom opcode %d is reserved (must be >= %d)", opcode, packet.CustomOpcodeBase)
	}
	if reg.Has(opcode) {
		return fmt.Errorf("custom opcode %d already registered", opcode)
	}
	reg.Register(opcode, []packet.SessionState{packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			s := sess.(*net.Session)
			p := deps.Players.Get(s.ID())
			if p == nil {
				return
			}
			fn(p, r)
		},
	)
	return nil
}
