package system

import (
	"time"

	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/world"
	"go.uber.org/zap"
)

// SessionSource hands new and dead sessions to the game loop. *net.Server
// implements it.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(sessionID uint64)
}

// InputSystem adopts new sessions, drains their packet queues through the
// packet registry and tears down players whose connection closed.
// Phase 0 (Input).
type InputSystem struct {
	source     SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	players    *world.Players
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(source SessionSource, registry *packet.Registry, store *net.SessionStore, players *world.Players, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		players:    players,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.acceptNew()
	s.dropDead()

	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() {
			// Packets sent just before the close still count.
			s.drain(sess)
			s.disconnect(sess)
			return
		}
		s.drain(sess)
	})
}

func (s *InputSystem) acceptNew() {
	if s.source == nil {
		return
	}
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			return
		}
	}
}

func (s *InputSystem) dropDead() {
	if s.source == nil {
		return
	}
	for {
		select {
		case id := <-s.source.DeadSessions():
			if sess := s.store.Get(id); sess != nil {
				s.disconnect(sess)
			}
		default:
			return
		}
	}
}

// drain dispatches up to maxPerTick queued packets.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("packet dispatch failed",
					zap.Uint64("session", sess.ID()),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}

// disconnect removes the player of sess. Its controlled entity stays in the
// scene.
func (s *InputSystem) disconnect(sess *net.Session) {
	if p := s.players.Disconnect(sess.ID()); p != nil {
		s.log.Info("player left",
			zap.Uint64("conn", sess.ID()),
			zap.String("name", p.Name),
			zap.Uint32("entity", uint32(p.ControlledID)),
		)
	}
	s.store.Remove(sess.ID())
	if s.source != nil {
		s.source.NotifyDead(sess.ID())
	}
}

// SessionCount returns the current number of sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Len()
}
