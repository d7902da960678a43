package ecs

import (
	"testing"

	"github.com/gamelib/server/internal/mathx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolNeverHandsOutZeroAndReusesIDs(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, p.Len())

	p.Destroy(a)
	assert.False(t, p.Alive(a))
	p.Destroy(a) // double destroy is a no-op
	assert.Equal(t, 1, p.Len())

	c := p.Create()
	assert.Equal(t, a, c)
	assert.True(t, p.Alive(c))
	assert.False(t, p.Alive(0))
}

func TestSceneSnapshotIsPreOrder(t *testing.T) {
	s := NewScene()
	a := s.CreateChild(0)
	a1 := s.CreateChild(a)
	a2 := s.CreateChild(a)
	b := s.CreateChild(0)
	a1x := s.CreateChild(a1)

	assert.Equal(t, []EntityID{a, a1, a1x, a2, b}, s.Snapshot())
	assert.Equal(t, []EntityID{a, b}, s.Children(0))
	assert.Equal(t, a, s.Parent(a2))
}

func TestSceneRemoveTakesSubtreeAndClearsStores(t *testing.T) {
	s := NewScene()
	tags := NewPtrComponentStore[string]()
	s.Registry().Register(tags)
	var notified []EntityID
	s.Registry().OnRemove(func(id EntityID) { notified = append(notified, id) })

	root := s.CreateChild(0)
	child := s.CreateChild(root)
	other := s.CreateChild(0)
	name := "x"
	tags.Set(child, &name)

	removed := s.Remove(root)
	assert.Equal(t, []EntityID{root, child}, removed)
	assert.Equal(t, removed, notified)
	assert.False(t, s.Alive(root))
	assert.False(t, s.Alive(child))
	assert.False(t, tags.Has(child))
	assert.Equal(t, []EntityID{other}, s.Snapshot())
	assert.Nil(t, s.Remove(root))
}

func TestNodeHandleTransform(t *testing.T) {
	s := NewScene()
	id := s.CreateChild(0)
	n := s.Node(id)
	require.True(t, n.Valid())

	n.SetPosition(mathx.Vector3{X: 1, Y: 2, Z: 3})
	n.SetRotation(mathx.AxisAngle(90, mathx.Up))
	assert.Equal(t, mathx.Vector3{X: 1, Y: 2, Z: 3}, s.Transform(id).Position)
	assert.Equal(t, mathx.One, s.Transform(id).Scale)

	s.SetOwner(id, 42)
	assert.Equal(t, uint64(42), s.Owner(id))

	s.Remove(id)
	assert.False(t, n.Valid())
}

func TestWorldMatrixFollowsParents(t *testing.T) {
	s := NewScene()
	parent := s.CreateChild(0)
	child := s.CreateChild(parent)
	s.Node(parent).SetPosition(mathx.Vector3{X: 5})
	s.Node(child).SetPosition(mathx.Vector3{Y: 2})

	got := s.WorldMatrix(child).Translation()
	assert.True(t, got.ApproxEqual(mathx.Vector3{X: 5, Y: 2}, 1e-6), "got %+v", got)
}
