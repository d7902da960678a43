// Package decal keeps the decal impressions projected onto scene geometry
// within a fixed budget. When the running total passes the budget, one sweep
// removes the oldest impression of every batch at once.
package decal

import (
	"errors"
	"math"

	"github.com/gamelib/server/internal/mathx"
)

// DefaultMax is the impression budget.
const DefaultMax = 10000

var ErrMaterialMismatch = errors.New("node already has a decal batch with another material")

// Decal is one projected impression. The projection volume is a box of
// Size*Aspect by Size by Depth, centered on Position and oriented by Rotation.
type Decal struct {
	Position mathx.Vector3
	Rotation mathx.Quaternion
	Size     float32
	Aspect   float32
	Depth    float32
	UVBegin  [2]float32
	UVEnd    [2]float32
}

// AABB is an axis-aligned box.
type AABB struct {
	Min, Max mathx.Vector3
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Transformed returns the box enclosing b after applying m.
func (b AABB) Transformed(m mathx.Matrix3x4) AABB {
	out := AABB{
		Min: mathx.Vector3{X: math.MaxFloat32, Y: math.MaxFloat32, Z: math.MaxFloat32},
		Max: mathx.Vector3{X: -math.MaxFloat32, Y: -math.MaxFloat32, Z: -math.MaxFloat32},
	}
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out = out.extend(m.TransformPoint(c))
	}
	return out
}

func (b AABB) extend(p mathx.Vector3) AABB {
	b.Min = mathx.Vector3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
	b.Max = mathx.Vector3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
	return b
}

// Bounds returns a world box enclosing the projection volume.
func (d Decal) Bounds() AABB {
	half := mathx.Vector3{X: d.Size * d.Aspect / 2, Y: d.Size / 2, Z: d.Depth / 2}
	local := AABB{Min: half.Scale(-1), Max: half}
	return local.Transformed(mathx.NewTransform(d.Position, d.Rotation).Matrix())
}

// Drawable marks an entity as carrying renderable geometry with the given
// local bounds.
type Drawable struct {
	Bounds AABB
}

// Batch holds the impressions of one node, oldest first.
type Batch struct {
	Material string
	decals   []Decal
}

func (b *Batch) Len() int { return len(b.decals) }

// Decals returns the impressions oldest first.
func (b *Batch) Decals() []Decal { return b.decals }

// removeOldest drops up to n impressions.
func (b *Batch) removeOldest(n int) {
	if n > len(b.decals) {
		n = len(b.decals)
	}
	b.decals = append(b.decals[:0], b.decals[n:]...)
}
