package handler

import (
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandleSetName processes C_SET_NAME: [opcode][name\0]. Empty names are ignored.
func HandleSetName(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := normalizeName(r.ReadS())
	if r.Overflow() || name == "" {
		return
	}
	p := deps.Players.Get(sess.ID())
	if p == nil {
		return
	}
	old := p.Name
	p.Name = name
	sess.Name = name
	deps.Log.Info("player renamed",
		zap.Uint64("session", sess.ID()),
		zap.String("from", old),
		zap.String("to", name),
	)
}
