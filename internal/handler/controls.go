package handler

import (
	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
)

// HandleControls processes C_CONTROLS. Only the latest frame is kept; the
// behavior tick reads it.
func HandleControls(sess *net.Session, r *packet.Reader, _ *Deps) {
	f := control.Decode(r)
	if r.Overflow() {
		return
	}
	sess.SetControls(f)
}
