package handler

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

const maxNameRunes = 32

// HandleHello processes C_HELLO: [opcode][name\0][password\0].
// On success the connection joins the simulation and gets its first entity.
func HandleHello(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := normalizeName(r.ReadS())
	password := r.ReadS()
	if r.Overflow() {
		return
	}

	if hash := deps.Config.Network.PasswordHash; hash != "" {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			deps.Log.Info("wrong server password", zap.Uint64("session", sess.ID()), zap.String("ip", sess.IP))
			reject(sess, "wrong password")
			return
		}
	}

	if name == "" {
		name = fmt.Sprintf("player-%d", sess.ID())
	}
	sess.Name = name

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WELCOME)
	w.WriteDU(uint32(sess.ID()))
	sess.Send(w.Bytes())

	if _, err := deps.Players.Connect(sess, name); err != nil {
		deps.Log.Error("player connect failed", zap.Uint64("session", sess.ID()), zap.Error(err))
		reject(sess, "already joined")
		return
	}
	sess.SetState(packet.StateInWorld)

	deps.Log.Info("player joined",
		zap.Uint64("session", sess.ID()),
		zap.String("name", name),
		zap.String("ip", sess.IP),
	)
}

// reject tells the peer why it is being dropped and closes after the flush.
func reject(sess *net.Session, reason string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_REJECT)
	w.WriteS(reason)
	sess.Send(w.Bytes())
	sess.CloseAfterFlush()
}

// normalizeName puts a player name into NFC, strips control characters and
// surrounding space, and caps its length.
func normalizeName(raw string) string {
	name := norm.NFC.String(raw)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxNameRunes {
		name = string(runes[:maxNameRunes])
	}
	return name
}
