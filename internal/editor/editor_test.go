package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gamelib/server/internal/behavior"
	"github.com/gamelib/server/internal/mathx"
	"github.com/gamelib/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type crate struct{ behavior.Base }

func (c *crate) PlacementShape() behavior.Shape {
	return behavior.BoxShape(mathx.Vector3{X: 2, Y: 2, Z: 2})
}

func testTypes(t *testing.T) *behavior.Registry {
	t.Helper()
	types := behavior.NewRegistry()
	require.NoError(t, behavior.RegisterBuiltins(types))
	types.MustRegister(behavior.Type{Name: "Crate", Editable: true, New: func() behavior.Behavior { return &crate{} }})
	types.MustRegister(behavior.Type{Name: "Hidden", New: func() behavior.Behavior { return &crate{} }})
	return types
}

type rays []world.RayHit

func (r rays) Raycast(mathx.Vector3, mathx.Vector3, float32) []world.RayHit {
	return append([]world.RayHit(nil), r...)
}

func TestScrollCyclesThroughNone(t *testing.T) {
	e, err := Open(filepath.Join(t.TempDir(), "x.scene"), testTypes(t), nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, e.Brushes(), 2)
	assert.Equal(t, "Crate", e.Brushes()[0].Name)

	assert.Equal(t, -1, e.Selection())
	_, ok := e.Selected()
	assert.False(t, ok)

	steps := []struct {
		wheel int
		want  int
	}{{1, 0}, {1, 1}, {1, -1}, {-1, 1}, {-1, 0}, {-1, -1}, {5, 1}, {-7, 0}}
	for _, s := range steps {
		e.Scroll(s.wheel)
		assert.Equal(t, s.want, e.Selection(), "after scrolling %d", s.wheel)
	}
}

func TestAimShowsPreviewOnGround(t *testing.T) {
	e, err := Open(filepath.Join(t.TempDir(), "x.scene"), testTypes(t), nil, zap.NewNop())
	require.NoError(t, err)
	origin := mathx.Vector3{Y: 10}
	down := mathx.Vector3{Y: -1, Z: 1}

	assert.True(t, e.Aim(origin, down))
	assert.Zero(t, e.Brush(), "nothing selected")
	assert.Zero(t, e.Place())

	e.Scroll(1)
	require.True(t, e.Aim(origin, down))
	require.NotZero(t, e.Brush())
	pos := e.State.Scene.Transform(e.Brush()).Position
	assert.True(t, pos.ApproxEqual(mathx.Vector3{Y: 1, Z: 10}, 1e-4), "got %+v", pos)

	// pointing at the sky hides the preview
	assert.False(t, e.Aim(origin, mathx.Up))
	assert.Zero(t, e.Brush())

	// the ground is only hit from above
	assert.False(t, e.Aim(mathx.Vector3{Y: -1}, down))
}

func TestAimSkipsPreviewInRaycast(t *testing.T) {
	e, err := Open(filepath.Join(t.TempDir(), "x.scene"), testTypes(t), nil, zap.NewNop())
	require.NoError(t, err)
	e.Scroll(1)
	require.True(t, e.Aim(mathx.Vector3{Y: 10}, mathx.Vector3{Y: -1}))
	brush := e.Brush()

	e.rays = rays{
		{Entity: 99, Position: mathx.Vector3{X: 3}, Normal: mathx.Right, Distance: 5},
		{Entity: brush, Position: mathx.Vector3{}, Normal: mathx.Up, Distance: 1},
	}
	require.True(t, e.Aim(mathx.Vector3{Y: 10}, mathx.Vector3{Y: -1}))
	pos := e.State.Scene.Transform(brush).Position
	assert.True(t, pos.ApproxEqual(mathx.Vector3{X: 4}, 1e-4), "got %+v", pos)
}

func TestPlaceAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes", "level.scene")
	types := testTypes(t)
	e, err := Open(path, types, nil, zap.NewNop())
	require.NoError(t, err)

	e.Scroll(1)
	require.True(t, e.Aim(mathx.Vector3{Y: 10}, mathx.Vector3{Y: -1, Z: 1}))
	placed := e.Place()
	require.NotZero(t, placed)
	assert.NotEqual(t, e.Brush(), placed)
	assert.Equal(t, e.State.Scene.Transform(e.Brush()), e.State.Scene.Transform(placed))
	require.NoError(t, e.Close())
	assert.Zero(t, e.Brush())

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Open(path, types, nil, zap.NewNop())
	require.NoError(t, err)
	ids := again.State.WithBehavior()
	require.Len(t, ids, 1, "preview is not saved")
	assert.Equal(t, "Crate", again.State.BehaviorOf(ids[0]).Type.Name)
	pos := again.State.Scene.Transform(ids[0]).Position
	assert.True(t, pos.ApproxEqual(mathx.Vector3{Y: 1, Z: 10}, 1e-4), "got %+v", pos)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.scene")
	require.NoError(t, os.WriteFile(path, []byte("not a scene at all"), 0o644))
	_, err := Open(path, testTypes(t), nil, zap.NewNop())
	assert.Error(t, err)
}
