package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/sim"
	"github.com/gamelib/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	id   uint64
	sent [][]byte
}

func (c *fakeConn) ID() uint64                      { return c.id }
func (c *fakeConn) Controls() (control.Frame, bool) { return control.Frame{}, false }
func (c *fakeConn) Send(data []byte)                { c.sent = append(c.sent, data) }

func newGame(t *testing.T, src string) (*Game, *world.State) {
	t.Helper()
	cfg, err := config.Load("testdata/none.toml")
	require.NoError(t, err)
	cfg.Server.SpawnPoint = [3]float32{0, 5, 0}

	e, err := NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	require.NoError(t, e.LoadString(src))

	types := behavior.NewRegistry()
	require.NoError(t, behavior.RegisterBuiltins(types))
	g := NewGame(e, sim.DefaultGame{Config: cfg, Log: zap.NewNop()}, false, zap.NewNop())
	return g, world.NewState(types, zap.NewNop())
}

func TestMissingHooksFallBack(t *testing.T) {
	g, st := newGame(t, `x = 1`)
	require.NoError(t, g.InitServerScene(st))
	assert.Zero(t, st.Scene.Len())

	id := g.CreatePlayerEntity(st, &world.Player{Conn: &fakeConn{id: 1}, Name: "a"})
	require.NotZero(t, id)
	assert.Equal(t, float32(5), st.Scene.Transform(id).Position.Y)
	assert.Empty(t, g.CustomMessages())
}

func TestCreatePlayerEntityFromTable(t *testing.T) {
	g, st := newGame(t, `
function create_player_entity(player)
  return { type = "SpectatorGhost", x = 1, y = 2, z = player.conn, yaw = 90 }
end`)
	id := g.CreatePlayerEntity(st, &world.Player{Conn: &fakeConn{id: 7}, Name: "a"})
	require.NotZero(t, id)
	tr := st.Scene.Transform(id)
	assert.Equal(t, mathx.Vector3{X: 1, Y: 2, Z: 7}, tr.Position)
	assert.InDelta(t, 90, tr.Rotation.YawAngle(), 1e-3)
}

func TestCreatePlayerEntityWithSpawnAndDecline(t *testing.T) {
	g, st := newGame(t, `
function create_player_entity(player)
  if player.name == "nobody" then
    return nil
  end
  local id = spawn("SpectatorGhost", 0, 0, 3)
  local x, y, z = position(id)
  set_position(id, x, y + 1, z)
  return id
end`)
	id := g.CreatePlayerEntity(st, &world.Player{Conn: &fakeConn{id: 1}, Name: "a"})
	require.NotZero(t, id)
	assert.Equal(t, mathx.Vector3{Y: 1, Z: 3}, st.Scene.Transform(id).Position)

	assert.Zero(t, g.CreatePlayerEntity(st, &world.Player{Conn: &fakeConn{id: 2}, Name: "nobody"}))
}

func TestScriptErrorsDeclineOrFail(t *testing.T) {
	g, st := newGame(t, `
function init_server_scene() error("no level") end
function create_player_entity(player) error("broken") end`)
	assert.Error(t, g.InitServerScene(st))
	assert.Zero(t, g.CreatePlayerEntity(st, &world.Player{Conn: &fakeConn{id: 1}}))
}

func TestInitServerSceneBuildsScene(t *testing.T) {
	g, st := newGame(t, `
function init_server_scene()
  local a = spawn("SpectatorGhost", 1, 0, 0)
  local b = spawn("SpectatorGhost", 2, 0, 0)
  local missing, err = spawn("NoSuchType")
  assert(missing == nil and err ~= nil)
  assert(entity_type(a) == "SpectatorGhost")
  assert(entity_type(999) == nil)
  assert(remove(b))
  assert(not remove(b))
  log("scene ready")
end`)
	require.NoError(t, g.InitServerScene(st))
	assert.Equal(t, 1, st.Scene.Len())
}

func TestMessagesReplyUnderSameOpcode(t *testing.T) {
	g, _ := newGame(t, `
messages = {}
messages[130] = function(player, payload)
  if payload == "ping" then return "pong " .. player.name end
end
messages["bad"] = function() end`)
	handlers := g.CustomMessages()
	require.Len(t, handlers, 1)
	fn, ok := handlers[130]
	require.True(t, ok)

	conn := &fakeConn{id: 3}
	p := &world.Player{Conn: conn, Name: "zed"}

	w := packet.NewWriterWithOpcode(130)
	w.WriteBytes([]byte("ping"))
	fn(p, packet.NewReader(w.Bytes()))
	require.Len(t, conn.sent, 1)
	assert.Equal(t, byte(130), conn.sent[0][0])
	assert.Equal(t, "pong zed", string(conn.sent[0][1:]))

	w = packet.NewWriterWithOpcode(130)
	w.WriteBytes([]byte("other"))
	fn(p, packet.NewReader(w.Bytes()))
	assert.Len(t, conn.sent, 1, "nil result sends nothing")
}

func TestNewEngineLoadsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "game"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base = 1`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game", "b.lua"), []byte(`function create_player_entity() return base end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o644))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.HasFunction("create_player_entity"))
	v, err := e.CallGlobal("create_player_entity")
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	_, err = e.CallGlobal("missing")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.lua"), []byte(`this is not lua`), 0o644))
	_, err = NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}
