package behavior

import "github.com/gamelib/server/internal/mathx"

// ShapeKind selects the bounding primitive of a Shape.
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapePoint
	ShapeCylinder
	ShapeBox
)

// Shape is the coarse bounding primitive used to push a to-be-placed instance
// out of the surface it is placed on. Cylinders stand upright along Y.
type Shape struct {
	Kind     ShapeKind
	Height   float32
	Diameter float32
	Size     mathx.Vector3
}

func PointShape() Shape { return Shape{Kind: ShapePoint} }

func CylinderShape(height, diameter float32) Shape {
	return Shape{Kind: ShapeCylinder, Height: height, Diameter: diameter}
}

func BoxShape(size mathx.Vector3) Shape {
	return Shape{Kind: ShapeBox, Size: size}
}

// PositionAtNormal returns the offset from a surface point to the origin of an
// instance resting on a surface with the given normal.
func (s Shape) PositionAtNormal(normal mathx.Vector3) mathx.Vector3 {
	dir := normal.Normalized()

	switch s.Kind {
	case ShapeCylinder:
		halfH, radius := s.Height/2, s.Diameter/2
		switch {
		case dir.Y > mathx.Sin(89):
			return mathx.Up.Scale(halfH)
		case dir.Y < mathx.Sin(-89):
			return mathx.Up.Scale(-halfH)
		case dir.Y >= mathx.Sin(-1) && dir.Y <= mathx.Sin(1):
			flat := mathx.Vector3{X: dir.X, Z: dir.Z}.Normalized()
			return flat.Scale(radius)
		}
		// Slanted surface: rest on the rim facing it.
		flat := mathx.Vector3{X: dir.X, Z: dir.Z}.Normalized()
		y := halfH
		if dir.Y < 0 {
			y = -halfH
		}
		return mathx.Vector3{X: flat.X * radius, Y: y, Z: flat.Z * radius}

	case ShapeBox:
		// Distance from the center to the supporting face, edge or corner.
		d := abs(dir.X)*s.Size.X/2 + abs(dir.Y)*s.Size.Y/2 + abs(dir.Z)*s.Size.Z/2
		return dir.Scale(d)
	}

	return mathx.Zero
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
