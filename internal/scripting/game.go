package scripting

import (
	"fmt"

	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/handler"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/sim"
	"github.com/gamelib/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Game implements the game hooks with Lua scripts. Hooks a script does not
// define fall back to another Game.
//
// Scripts may define:
//
//	init_server_scene()
//	create_player_entity(player) -> entity id | {type=, x=, y=, z=, yaw=} | nil
//	messages[opcode] = function(player, payload) -> reply | nil
//
// and may call spawn, remove, position, set_position, entity_type and log.
type Game struct {
	engine   *Engine
	fallback sim.Game
	physics  bool
	state    *world.State // scene of the hook being run
	log      *zap.Logger
}

func NewGame(engine *Engine, fallback sim.Game, enablePhysics bool, log *zap.Logger) *Game {
	g := &Game{engine: engine, fallback: fallback, physics: enablePhysics, log: log}
	engine.Register("spawn", g.luaSpawn)
	engine.Register("remove", g.luaRemove)
	engine.Register("position", g.luaPosition)
	engine.Register("set_position", g.luaSetPosition)
	engine.Register("entity_type", g.luaEntityType)
	engine.Register("log", g.luaLog)
	return g
}

func (g *Game) InitServerScene(st *world.State) error {
	if !g.engine.HasFunction("init_server_scene") {
		return g.fallback.InitServerScene(st)
	}
	g.state = st
	_, err := g.engine.CallGlobal("init_server_scene")
	return err
}

func (g *Game) CreatePlayerEntity(st *world.State, p *world.Player) ecs.EntityID {
	if !g.engine.HasFunction("create_player_entity") {
		return g.fallback.CreatePlayerEntity(st, p)
	}
	g.state = st
	result, err := g.engine.CallGlobal("create_player_entity", g.playerTable(p))
	if err != nil {
		g.log.Error("player entity script failed", zap.String("player", p.Name), zap.Error(err))
		return 0
	}
	switch v := result.(type) {
	case lua.LNumber:
		return ecs.EntityID(v)
	case *lua.LTable:
		id, err := g.spawn(lStr(v, "type"), mathx.Vector3{X: lNum(v, "x"), Y: lNum(v, "y"), Z: lNum(v, "z")}, lNum(v, "yaw"))
		if err != nil {
			g.log.Error("player entity not created", zap.String("player", p.Name), zap.Error(err))
			return 0
		}
		return id
	default:
		return 0
	}
}

// CustomMessages collects the handlers of the global messages table merged
// over the fallback's. A handler's string result is sent back to the player
// under the same opcode.
func (g *Game) CustomMessages() map[byte]handler.CustomHandler {
	out := make(map[byte]handler.CustomHandler)
	for op, fn := range g.fallback.CustomMessages() {
		out[op] = fn
	}
	tbl, ok := g.engine.Global("messages").(*lua.LTable)
	if !ok {
		return out
	}
	tbl.ForEach(func(k, v lua.LValue) {
		n, isNum := k.(lua.LNumber)
		fn, isFn := v.(*lua.LFunction)
		if !isNum || !isFn || n < 0 || n > 255 {
			g.log.Warn("ignoring messages entry", zap.String("key", k.String()))
			return
		}
		op := byte(n)
		out[op] = func(p *world.Player, r *packet.Reader) {
			payload := r.ReadBytes(r.Remaining())
			reply, err := g.engine.Call(fn, g.playerTable(p), lua.LString(payload))
			if err != nil {
				g.log.Error("message script failed", zap.Uint8("opcode", op), zap.Error(err))
				return
			}
			if s, ok := reply.(lua.LString); ok && p.Conn != nil {
				w := packet.NewWriterWithOpcode(op)
				w.WriteBytes([]byte(s))
				p.Conn.Send(w.Bytes())
			}
		}
	})
	return out
}

func (g *Game) playerTable(p *world.Player) *lua.LTable {
	t := g.engine.NewTable()
	if p.Conn != nil {
		t.RawSetString("conn", lua.LNumber(p.Conn.ID()))
	}
	t.RawSetString("name", lua.LString(p.Name))
	t.RawSetString("entity", lua.LNumber(p.ControlledID))
	return t
}

func (g *Game) spawn(typeName string, pos mathx.Vector3, yaw float32) (ecs.EntityID, error) {
	if g.state == nil {
		return 0, fmt.Errorf("spawn %q: no scene", typeName)
	}
	return g.state.SpawnByName(typeName, 0, mathx.NewTransform(pos, mathx.YawPitch(yaw, 0)), g.physics, nil)
}

// spawn(type, x, y, z, yaw) -> id | nil, err
func (g *Game) luaSpawn(L *lua.LState) int {
	name := L.CheckString(1)
	pos := mathx.Vector3{
		X: float32(L.OptNumber(2, 0)),
		Y: float32(L.OptNumber(3, 0)),
		Z: float32(L.OptNumber(4, 0)),
	}
	id, err := g.spawn(name, pos, float32(L.OptNumber(5, 0)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(id))
	return 1
}

// remove(id) -> bool
func (g *Game) luaRemove(L *lua.LState) int {
	id := ecs.EntityID(L.CheckInt(1))
	ok := g.state != nil && len(g.state.Remove(id)) > 0
	L.Push(lua.LBool(ok))
	return 1
}

// position(id) -> x, y, z | nil
func (g *Game) luaPosition(L *lua.LState) int {
	id := ecs.EntityID(L.CheckInt(1))
	if g.state == nil || !g.state.Scene.Alive(id) {
		L.Push(lua.LNil)
		return 1
	}
	p := g.state.Scene.Transform(id).Position
	L.Push(lua.LNumber(p.X))
	L.Push(lua.LNumber(p.Y))
	L.Push(lua.LNumber(p.Z))
	return 3
}

// set_position(id, x, y, z)
func (g *Game) luaSetPosition(L *lua.LState) int {
	id := ecs.EntityID(L.CheckInt(1))
	if g.state != nil && g.state.Scene.Alive(id) {
		g.state.Scene.Node(id).SetPosition(mathx.Vector3{
			X: float32(L.CheckNumber(2)),
			Y: float32(L.CheckNumber(3)),
			Z: float32(L.CheckNumber(4)),
		})
	}
	return 0
}

// entity_type(id) -> name | nil
func (g *Game) luaEntityType(L *lua.LState) int {
	id := ecs.EntityID(L.CheckInt(1))
	if g.state != nil {
		if s := g.state.BehaviorOf(id); s != nil {
			L.Push(lua.LString(s.Type.Name))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

// log(msg)
func (g *Game) luaLog(L *lua.LState) int {
	g.log.Info("lua: " + L.CheckString(1))
	return 0
}
