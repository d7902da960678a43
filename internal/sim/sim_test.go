package sim

import (
	stdnet "net"
	"testing"
	"time"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/config"
	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/core/event"
	"github.com/gamelib/server/internal/handler"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/net"
	"github.com/gamelib/server/internal/net/packet"
	"github.com/gamelib/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fragile struct {
	behavior.Base
	breakNow bool
	bumps    int
	frames   int
}

func (f *fragile) OnServerTick(_ time.Duration, frame *control.Frame) behavior.Status {
	if frame != nil {
		f.frames++
	}
	if f.breakNow {
		return behavior.Destroy
	}
	return behavior.Continue
}

func (f *fragile) OnPhysicsCollision(behavior.Collision) { f.bumps++ }

type testGame struct {
	decline bool
	custom  map[byte]handler.CustomHandler
	inits   int
}

func (g *testGame) InitServerScene(st *world.State) error {
	g.inits++
	_, err := st.SpawnByName("SpectatorGhost", 0, mathx.IdentityTransform, false, nil)
	return err
}

func (g *testGame) CreatePlayerEntity(st *world.State, _ *world.Player) ecs.EntityID {
	if g.decline {
		return 0
	}
	id, _ := st.SpawnByName("Fragile", 0, mathx.IdentityTransform, false, nil)
	return id
}

func (g *testGame) CustomMessages() map[byte]handler.CustomHandler { return g.custom }

type fakeSource struct {
	newCh  chan *net.Session
	deadCh chan uint64
}

func (s *fakeSource) NewSessions() <-chan *net.Session { return s.newCh }
func (s *fakeSource) DeadSessions() <-chan uint64      { return s.deadCh }
func (s *fakeSource) NotifyDead(uint64)                {}

type harness struct {
	sim  *Simulation
	game *testGame
	src  *fakeSource
	now  time.Time
}

func newHarness(t *testing.T, game *testGame) *harness {
	t.Helper()
	consumeStop()
	cfg, err := config.Load("testdata/none.toml")
	require.NoError(t, err)

	types := behavior.NewRegistry()
	require.NoError(t, behavior.RegisterBuiltins(types))
	types.MustRegister(behavior.Type{Name: "Fragile", HandlesPhysicsCollisions: true, New: func() behavior.Behavior { return &fragile{} }})

	h := &harness{
		game: game,
		src:  &fakeSource{newCh: make(chan *net.Session, 4), deadCh: make(chan uint64, 4)},
		now:  time.Unix(10_000, 0),
	}
	h.sim, err = New(Options{
		Config: cfg,
		Log:    zap.NewNop(),
		Game:   game,
		Types:  types,
		Source: h.src,
		Clock:  func() time.Time { return h.now },
	})
	require.NoError(t, err)
	return h
}

func (h *harness) join(t *testing.T, id uint64, name string) *net.Session {
	t.Helper()
	a, b := stdnet.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	sess := net.NewSession(a, id, 16, 256, 0, zap.NewNop())
	h.src.newCh <- sess
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_HELLO)
	w.WriteS(name)
	w.WriteS("")
	sess.InQueue <- w.Bytes()
	return sess
}

// controlled returns the entity ids announced to sess, in order.
func controlled(sess *net.Session) []ecs.EntityID {
	var out []ecs.EntityID
	for {
		select {
		case data := <-sess.OutQueue:
			r := packet.NewReader(data)
			if r.Opcode() == packet.S_OPCODE_SET_CONTROLLED_NODE {
				out = append(out, ecs.EntityID(r.ReadDU()))
			}
		default:
			return out
		}
	}
}

func (h *harness) fragileOf(id ecs.EntityID) *fragile {
	return h.sim.State.BehaviorOf(id).Impl.(*fragile)
}

func TestInitServerSceneRunsOnce(t *testing.T) {
	h := newHarness(t, &testGame{})
	assert.Equal(t, 1, h.game.inits)
	assert.Equal(t, 1, h.sim.State.Scene.Len())
}

func TestPlayerLifecycle(t *testing.T) {
	h := newHarness(t, &testGame{})
	sess := h.join(t, 1, "alice")

	require.True(t, h.sim.Tick())
	p := h.sim.Players.Get(1)
	require.NotNil(t, p)
	require.True(t, p.Bound())
	first := p.ControlledID
	assert.Equal(t, []ecs.EntityID{first}, controlled(sess))
	assert.Equal(t, uint64(1), h.sim.State.Scene.Owner(first))

	// controls reach the controlled behavior on the next tick
	frame := control.Frame{Buttons: control.Forward}
	in := packet.NewWriterWithOpcode(packet.C_OPCODE_CONTROLS)
	frame.Encode(in)
	sess.InQueue <- in.Bytes()
	require.True(t, h.sim.Tick())
	assert.Equal(t, 1, h.fragileOf(first).frames)

	h.fragileOf(first).breakNow = true
	require.True(t, h.sim.Tick())
	assert.False(t, h.sim.State.Scene.Alive(first))
	assert.False(t, p.Bound())
	assert.True(t, p.RespawnPending())
	assert.Equal(t, []ecs.EntityID{0}, controlled(sess))

	h.now = h.now.Add(4 * time.Second)
	require.True(t, h.sim.Tick())
	assert.False(t, p.Bound(), "deadline not yet exceeded")

	h.now = h.now.Add(time.Millisecond)
	require.True(t, h.sim.Tick())
	require.True(t, p.Bound())
	assert.False(t, p.RespawnPending())
	assert.Equal(t, []ecs.EntityID{p.ControlledID}, controlled(sess))

	second := p.ControlledID
	sess.Close()
	require.True(t, h.sim.Tick())
	assert.Nil(t, h.sim.Players.Get(1))
	assert.Zero(t, h.sim.SessionCount())
	assert.True(t, h.sim.State.Scene.Alive(second))
	assert.NoError(t, h.sim.Players.Verify())
}

func TestDeclinedPlayerStaysUnbound(t *testing.T) {
	h := newHarness(t, &testGame{decline: true})
	sess := h.join(t, 2, "bob")

	require.True(t, h.sim.Tick())
	p := h.sim.Players.Get(2)
	require.NotNil(t, p)
	assert.False(t, p.Bound())
	assert.False(t, p.RespawnPending())
	assert.Empty(t, controlled(sess))

	h.now = h.now.Add(time.Hour)
	require.True(t, h.sim.Tick())
	assert.False(t, p.Bound())
}

func TestReportCollisionDeliveredNextTick(t *testing.T) {
	h := newHarness(t, &testGame{})
	h.join(t, 3, "carol")
	require.True(t, h.sim.Tick())
	id := h.sim.Players.Get(3).ControlledID
	ghost := h.sim.State.Scene.Children(0)[0]

	h.sim.ReportCollision(event.PhysicsCollision{A: id, B: ghost, Normal: mathx.Up})
	assert.Zero(t, h.fragileOf(id).bumps)
	require.True(t, h.sim.Tick())
	assert.Equal(t, 1, h.fragileOf(id).bumps)
}

func TestCustomMessagesReachGameHandler(t *testing.T) {
	var got []string
	game := &testGame{custom: map[byte]handler.CustomHandler{
		packet.CustomOpcodeBase + 1: func(p *world.Player, r *packet.Reader) {
			got = append(got, p.Name+":"+r.ReadS())
		},
	}}
	h := newHarness(t, game)
	sess := h.join(t, 4, "dave")
	require.True(t, h.sim.Tick())

	w := packet.NewWriterWithOpcode(packet.CustomOpcodeBase + 1)
	w.WriteS("wave")
	sess.InQueue <- w.Bytes()
	require.True(t, h.sim.Tick())
	assert.Equal(t, []string{"dave:wave"}, got)
}

func TestReservedCustomOpcodeFailsStartup(t *testing.T) {
	consumeStop()
	cfg, err := config.Load("testdata/none.toml")
	require.NoError(t, err)
	_, err = New(Options{
		Config: cfg,
		Log:    zap.NewNop(),
		Game: &testGame{custom: map[byte]handler.CustomHandler{
			packet.C_OPCODE_CONTROLS: func(*world.Player, *packet.Reader) {},
		}},
	})
	assert.Error(t, err)
}

func TestStopRequestRunsHooksOnce(t *testing.T) {
	h := newHarness(t, &testGame{})
	sess := h.join(t, 5, "erin")
	require.True(t, h.sim.Tick())

	hooks := 0
	h.sim.OnShutdown(func() { hooks++ })

	RequestStop()
	assert.True(t, StopRequested())
	assert.False(t, h.sim.Tick())
	assert.False(t, StopRequested(), "request is consumed")
	assert.False(t, h.sim.Tick())
	assert.Equal(t, 1, hooks)
	assert.True(t, sess.IsClosed())
}

func TestDefaultGameSpawnsConfiguredTypeAtSpawnPoint(t *testing.T) {
	cfg, err := config.Load("testdata/none.toml")
	require.NoError(t, err)
	cfg.Server.SpawnPoint = [3]float32{1, 2, 3}

	types := behavior.NewRegistry()
	require.NoError(t, behavior.RegisterBuiltins(types))
	st := world.NewState(types, zap.NewNop())
	g := DefaultGame{Config: cfg, Log: zap.NewNop()}

	id := g.CreatePlayerEntity(st, &world.Player{Name: "x"})
	require.NotZero(t, id)
	assert.Equal(t, "SpectatorGhost", st.BehaviorOf(id).Type.Name)
	assert.Equal(t, mathx.Vector3{X: 1, Y: 2, Z: 3}, st.Scene.Transform(id).Position)

	cfg.Server.SpawnType = "Missing"
	assert.Zero(t, g.CreatePlayerEntity(st, &world.Player{Name: "y"}))
}
