// Package mathx holds the small amount of 3D math the simulation core needs:
// vectors, quaternions and the 3x4 affine matrices stored in scene files.
// Angles are in degrees and the coordinate system is left-handed, Y up, Z forward.
package mathx

import "math"

const degToRad = math.Pi / 180

// Infinity is used as an unbounded ray length.
const Infinity float32 = math.MaxFloat32

// Vector3 is a 3-component float vector.
type Vector3 struct {
	X, Y, Z float32
}

var (
	Zero    = Vector3{}
	One     = Vector3{1, 1, 1}
	Up      = Vector3{0, 1, 0}
	Right   = Vector3{1, 0, 0}
	Forward = Vector3{0, 0, 1}
)

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float32) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}
func (v Vector3) Dot(o Vector3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalized returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vector3) Normalized() Vector3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// ApproxEqual reports whether every component differs by at most eps.
func (v Vector3) ApproxEqual(o Vector3, eps float32) bool {
	return approx(v.X, o.X, eps) && approx(v.Y, o.Y, eps) && approx(v.Z, o.Z, eps)
}

// Sin and Cos take degrees.
func Sin(deg float32) float32 { return float32(math.Sin(float64(deg) * degToRad)) }
func Cos(deg float32) float32 { return float32(math.Cos(float64(deg) * degToRad)) }

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func approx(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
