package system

import (
	"time"

	"github.com/gamelib/server/internal/core/ecs"
	coresys "github.com/gamelib/server/internal/core/system"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/world"
)

// OutputSystem replicates entity state to in-world sessions and flushes
// every session's output buffer. Changed transforms go to everyone; a session
// that just entered the world receives the full scene once. Phase 4 (Output).
type OutputSystem struct {
	state *world.State
	store *net.SessionStore

	sent   map[ecs.EntityID]mathx.Matrix3x4 // last replicated transform
	synced map[uint64]bool                  // sessions that have the full scene
}

func NewOutputSystem(st *world.State, store *net.SessionStore) *OutputSystem {
	st.TrackRemovals()
	return &OutputSystem{
		state:  st,
		store:  store,
		sent:   make(map[ecs.EntityID]mathx.Matrix3x4),
		synced: make(map[uint64]bool),
	}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	var removals [][]byte
	for _, id := range s.state.TakeRemoved() {
		if _, ok := s.sent[id]; !ok {
			continue
		}
		delete(s.sent, id)
		removals = append(removals, EntityRemovePacket(id))
	}

	var changed, full [][]byte
	for _, id := range s.state.WithBehavior() {
		m := s.state.Scene.WorldMatrix(id)
		pkt := EntityStatePacket(id, s.state.BehaviorOf(id).Type.ID, m)
		full = append(full, pkt)
		if last, ok := s.sent[id]; !ok || last != m {
			s.sent[id] = m
			changed = append(changed, pkt)
		}
	}

	live := make(map[uint64]bool, s.store.Len())
	s.store.ForEach(func(sess *net.Session) {
		live[sess.ID()] = true
		if sess.State() == packet.StateInWorld {
			if s.synced[sess.ID()] {
				sendAll(sess, removals)
				sendAll(sess, changed)
			} else {
				sendAll(sess, full)
				s.synced[sess.ID()] = true
			}
		}
		sess.FlushOutput()
	})
	for id := range s.synced {
		if !live[id] {
			delete(s.synced, id)
		}
	}
}

func sendAll(sess *net.Session, pkts [][]byte) {
	for _, p := range pkts {
		sess.Send(p)
	}
}

// EntityStatePacket builds S_ENTITY_STATE.
func EntityStatePacket(id ecs.EntityID, typeID uint32, m mathx.Matrix3x4) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ENTITY_STATE)
	w.WriteDU(uint32(id))
	w.WriteDU(typeID)
	for _, f := range m.Floats() {
		w.WriteF(f)
	}
	return w.Bytes()
}

// EntityRemovePacket builds S_ENTITY_REMOVE.
func EntityRemovePacket(id ecs.EntityID) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ENTITY_REMOVE)
	w.WriteDU(uint32(id))
	return w.Bytes()
}
