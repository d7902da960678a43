package ecs

import "github.com/gamelib/server/internal/mathx"

// Node is a weak handle to one entity in a Scene. It stays valid as a value
// after the entity is removed; accessors then return zero values.
type Node struct {
	id    EntityID
	scene *Scene
}

func (n Node) ID() EntityID { return n.id }

func (n Node) Valid() bool { return n.scene != nil && n.scene.Alive(n.id) }

func (n Node) Transform() mathx.Transform { return n.scene.Transform(n.id) }

func (n Node) SetTransform(t mathx.Transform) { n.scene.SetTransform(n.id, t) }

func (n Node) Position() mathx.Vector3 { return n.scene.Transform(n.id).Position }

func (n Node) SetPosition(p mathx.Vector3) {
	t := n.scene.Transform(n.id)
	t.Position = p
	n.scene.SetTransform(n.id, t)
}

func (n Node) Rotation() mathx.Quaternion { return n.scene.Transform(n.id).Rotation }

func (n Node) SetRotation(q mathx.Quaternion) {
	t := n.scene.Transform(n.id)
	t.Rotation = q
	n.scene.SetTransform(n.id, t)
}
