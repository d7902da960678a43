package event

import (
	"github.com/gamelib/server/internal/core/ecs"
	"github.com/gamelib/server/internal/mathx"
)

// PhysicsCollision is reported by the physics collaborator for a contact
// between two entities.
type PhysicsCollision struct {
	A, B     ecs.EntityID
	Position mathx.Vector3
	Normal   mathx.Vector3 // points from B towards A
	Distance float32
}
