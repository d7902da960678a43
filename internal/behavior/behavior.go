// Package behavior defines the simulation logic attached to entities: the
// Behavior contract every variant implements, the type registry used to
// create variants by name or persisted type-id, and the built-in variants.
package behavior

import (
	"time"

	"github.com/gamelib/server/internal/control"
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/mathx"
)

// Status is returned from the tick callbacks.
type Status int

const (
	Continue Status = iota
	Destroy         // remove the entity this tick
)

// InitData carries variant-specific initial configuration to OnCreated.
type InitData map[string]any

// Collision is a contact reported by the physics collaborator.
type Collision struct {
	Position      mathx.Vector3
	Normal        mathx.Vector3
	Distance      float32
	Other         ecs.EntityID
	OtherBehavior Behavior // nil if the other entity has none
}

// Behavior is the contract every simulated entity implements. None of the
// methods may fail: they are total over their inputs. A nil frame means no
// controlling connection.
type Behavior interface {
	// Attach hands the behavior its entity. Called once, before OnCreated.
	Attach(node ecs.Node)

	// OnServerTick advances authoritative state. frame is non-nil only while
	// a connected player controls the entity.
	OnServerTick(dt time.Duration, frame *control.Frame) Status

	// OnClientTick advances observer-side state (interpolation, effects).
	OnClientTick(dt time.Duration) Status

	// OnCreated runs once on the authoritative side after attachment.
	OnCreated(enablePhysics bool, init InitData)

	// OnAddedToClient runs once the first time a client observes the entity.
	OnAddedToClient()

	// OnHitscan reports whether the entity absorbs a traced ray.
	OnHitscan(hitPos, dir mathx.Vector3) bool

	OnExplosion(center mathx.Vector3)

	// OnPhysicsCollision is delivered only to types registered with
	// HandlesPhysicsCollisions.
	OnPhysicsCollision(c Collision)

	ReceivesDecals() bool

	// ModifyControlFrame adjusts the controller's input before use.
	ModifyControlFrame(frame *control.Frame)

	// CameraTransform is the viewpoint when this entity is the locally
	// controlled one.
	CameraTransform(frame *control.Frame) mathx.Matrix3x4

	PlacementShape() Shape
}

// Base implements every Behavior method with the default behavior. Variants
// embed it and override what they need.
type Base struct {
	node ecs.Node
}

func (b *Base) Attach(node ecs.Node) { b.node = node }

// Node returns the entity this behavior is attached to.
func (b *Base) Node() ecs.Node { return b.node }

func (b *Base) OnServerTick(time.Duration, *control.Frame) Status { return Continue }
func (b *Base) OnClientTick(time.Duration) Status                 { return Continue }
func (b *Base) OnCreated(bool, InitData)                          {}
func (b *Base) OnAddedToClient()                                  {}
func (b *Base) OnHitscan(mathx.Vector3, mathx.Vector3) bool       { return false }
func (b *Base) OnExplosion(mathx.Vector3)                         {}
func (b *Base) OnPhysicsCollision(Collision)                      {}
func (b *Base) ReceivesDecals() bool                              { return false }
func (b *Base) ModifyControlFrame(*control.Frame)                 {}

func (b *Base) CameraTransform(*control.Frame) mathx.Matrix3x4 {
	return mathx.IdentityMatrix
}

func (b *Base) PlacementShape() Shape { return Shape{} }
