package world

import (
	"fmt"
	"time"

	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/net/packet"
	"go.uber.org/zap"
)

// DefaultRespawnDelay is how long a player waits for a new entity after its
// controlled entity is destroyed.
const DefaultRespawnDelay = 4 * time.Second

// Connection is the network side of a player as seen by the game loop.
type Connection interface {
	ID() uint64
	// Controls returns the most recent control frame, if any arrived yet.
	Controls() (control.Frame, bool)
	// Send queues a reliable message for the connection.
	Send(data []byte)
}

// Spawner is the game hook that creates the entity a player controls. It
// returns 0 to decline.
type Spawner interface {
	CreatePlayerEntity(st *State, p *Player) ecs.EntityID
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(st *State, p *Player) ecs.EntityID

func (f SpawnerFunc) CreatePlayerEntity(st *State, p *Player) ecs.EntityID { return f(st, p) }

// Player is the session record of one connection.
//
//	Unbound:        ControlledID == 0, RespawnAt zero
//	Bound:          ControlledID != 0, entry in the binding table
//	RespawnPending: ControlledID == 0, RespawnAt set
type Player struct {
	Conn         Connection
	ControlledID ecs.EntityID
	RespawnAt    time.Time
	Name         string
}

func (p *Player) Bound() bool { return p.ControlledID != 0 }

func (p *Player) RespawnPending() bool { return !p.RespawnAt.IsZero() }

// Players owns the player set and the binding table (controlled entity ->
// player). Single-goroutine access only (game loop).
type Players struct {
	state       *State
	spawner     Spawner
	delay       time.Duration
	byConn      map[uint64]*Player
	order       []uint64 // connection ids in connect order
	controllers map[ecs.EntityID]*Player
	log         *zap.Logger
}

func NewPlayers(state *State, spawner Spawner, delay time.Duration, log *zap.Logger) *Players {
	return &Players{
		state:       state,
		spawner:     spawner,
		delay:       delay,
		byConn:      make(map[uint64]*Player),
		controllers: make(map[ecs.EntityID]*Player),
		log:         log,
	}
}

// Connect creates the player for conn and immediately tries to give it an
// entity. A declined creation leaves the player unbound with nothing scheduled.
func (ps *Players) Connect(conn Connection, name string) (*Player, error) {
	id := conn.ID()
	if _, dup := ps.byConn[id]; dup {
		return nil, fmt.Errorf("connection %d already has a player", id)
	}
	p := &Player{Conn: conn, Name: name}
	ps.byConn[id] = p
	ps.order = append(ps.order, id)

	if !ps.spawn(p) {
		ps.log.Info("player entity creation declined", zap.Uint64("conn", id))
	}
	return p, nil
}

// Disconnect drops the player of connID and its binding. The controlled
// entity itself stays in the scene.
func (ps *Players) Disconnect(connID uint64) *Player {
	p, ok := ps.byConn[connID]
	if !ok {
		return nil
	}
	if p.ControlledID != 0 {
		delete(ps.controllers, p.ControlledID)
	}
	delete(ps.byConn, connID)
	for i, id := range ps.order {
		if id == connID {
			ps.order = append(ps.order[:i], ps.order[i+1:]...)
			break
		}
	}
	return p
}

func (ps *Players) Get(connID uint64) *Player { return ps.byConn[connID] }

// Controller returns the player controlling entity id, or nil.
func (ps *Players) Controller(id ecs.EntityID) *Player { return ps.controllers[id] }

// Len returns the number of connected players.
func (ps *Players) Len() int { return len(ps.byConn) }

// Each calls fn for every player in connect order.
func (ps *Players) Each(fn func(p *Player)) {
	for _, id := range ps.order {
		fn(ps.byConn[id])
	}
}

// EntityDestroyed unbinds the controller of id, if any, and schedules its
// respawn at now + delay.
func (ps *Players) EntityDestroyed(id ecs.EntityID, now time.Time) {
	p, ok := ps.controllers[id]
	if !ok {
		return
	}
	if p.Conn != nil {
		p.Conn.Send(controlledNodePacket(0))
	}
	delete(ps.controllers, id)
	p.ControlledID = 0
	p.RespawnAt = now.Add(ps.delay)
}

// Respawn retries entity creation for every player whose deadline has
// passed. A failed attempt keeps the elapsed deadline, so it is retried on
// the next pass.
func (ps *Players) Respawn(now time.Time) {
	for _, connID := range ps.order {
		p := ps.byConn[connID]
		if !p.RespawnPending() || !now.After(p.RespawnAt) {
			continue
		}
		if ps.spawn(p) {
			p.RespawnAt = time.Time{}
		}
	}
}

// spawn asks the game for an entity and binds it to p.
func (ps *Players) spawn(p *Player) bool {
	id := ps.spawner.CreatePlayerEntity(ps.state, p)
	if id == 0 {
		return false
	}
	if !ps.state.Scene.Alive(id) {
		ps.log.DPanic("spawner returned a dead entity", zap.Uint32("entity", uint32(id)))
		return false
	}
	if other, taken := ps.controllers[id]; taken {
		ps.log.DPanic("entity already controlled",
			zap.Uint32("entity", uint32(id)),
			zap.Uint64("conn", other.Conn.ID()),
		)
		return false
	}

	ps.controllers[id] = p
	p.ControlledID = id
	ps.state.Scene.SetOwner(id, p.Conn.ID())
	p.Conn.Send(controlledNodePacket(id))

	ps.log.Debug("player bound",
		zap.Uint64("conn", p.Conn.ID()),
		zap.Uint32("entity", uint32(id)),
	)
	return true
}

// Verify checks that the player set and the binding table agree.
func (ps *Players) Verify() error {
	bound := 0
	for connID, p := range ps.byConn {
		if p.ControlledID == 0 {
			continue
		}
		bound++
		if ps.controllers[p.ControlledID] != p {
			return fmt.Errorf("player %d controls entity %d without a binding", connID, p.ControlledID)
		}
	}
	if bound != len(ps.controllers) {
		return fmt.Errorf("binding table has %d entries for %d bound players", len(ps.controllers), bound)
	}
	for id, p := range ps.controllers {
		if ps.byConn[p.Conn.ID()] != p {
			return fmt.Errorf("entity %d bound to a disconnected player", id)
		}
		if p.ControlledID != id {
			return fmt.Errorf("entity %d bound to player %d controlling %d", id, p.Conn.ID(), p.ControlledID)
		}
	}
	return nil
}

func controlledNodePacket(id ecs.EntityID) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SET_CONTROLLED_NODE)
	w.WriteDU(uint32(id))
	return w.Bytes()
}
