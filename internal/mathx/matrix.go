package mathx

import "math"

// Matrix3x4 is an affine transform stored as three rows of four floats;
// column 3 is the translation. This is the 12-float layout written to scene files.
type Matrix3x4 [3][4]float32

var IdentityMatrix = Matrix3x4{
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
}

// Transform is the decomposed position/rotation/scale of an entity.
type Transform struct {
	Position Vector3
	Rotation Quaternion
	Scale    Vector3
}

// NewTransform returns a unit-scale transform.
func NewTransform(pos Vector3, rot Quaternion) Transform {
	return Transform{Position: pos, Rotation: rot, Scale: One}
}

// IdentityTransform sits at the origin with no rotation and unit scale.
var IdentityTransform = Transform{Rotation: Identity, Scale: One}

// Matrix composes the transform into a 3x4 matrix.
func (t Transform) Matrix() Matrix3x4 {
	r := t.Rotation.rotationMatrix()
	s := [3]float32{t.Scale.X, t.Scale.Y, t.Scale.Z}
	p := [3]float32{t.Position.X, t.Position.Y, t.Position.Z}
	var m Matrix3x4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = r[i][j] * s[j]
		}
		m[i][3] = p[i]
	}
	return m
}

// Translation returns column 3.
func (m Matrix3x4) Translation() Vector3 {
	return Vector3{m[0][3], m[1][3], m[2][3]}
}

// TransformPoint applies m to v.
func (m Matrix3x4) TransformPoint(v Vector3) Vector3 {
	return Vector3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z + m[0][3],
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z + m[1][3],
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z + m[2][3],
	}
}

// Mul returns m*o: o is applied first.
func (m Matrix3x4) Mul(o Matrix3x4) Matrix3x4 {
	var out Matrix3x4
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			v := m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
			if j == 3 {
				v += m[i][3]
			}
			out[i][j] = v
		}
	}
	return out
}

// Decompose splits m back into position, rotation and scale. Shear is discarded.
func (m Matrix3x4) Decompose() Transform {
	var scale [3]float32
	for j := 0; j < 3; j++ {
		scale[j] = float32(math.Sqrt(float64(m[0][j]*m[0][j] + m[1][j]*m[1][j] + m[2][j]*m[2][j])))
	}
	var r [3][3]float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if scale[j] != 0 {
				r[i][j] = m[i][j] / scale[j]
			}
		}
	}
	return Transform{
		Position: m.Translation(),
		Rotation: quaternionFromRotation(r),
		Scale:    Vector3{scale[0], scale[1], scale[2]},
	}
}

// Floats flattens the matrix row by row.
func (m Matrix3x4) Floats() [12]float32 {
	var out [12]float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = m[i][j]
		}
	}
	return out
}

// MatrixFromFloats is the inverse of Floats.
func MatrixFromFloats(f [12]float32) Matrix3x4 {
	var m Matrix3x4
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] = f[i*4+j]
		}
	}
	return m
}
