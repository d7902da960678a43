package mathx

import "math"

// Quaternion is a unit rotation quaternion.
type Quaternion struct {
	W, X, Y, Z float32
}

var Identity = Quaternion{W: 1}

// AxisAngle builds a rotation of deg degrees around axis.
func AxisAngle(deg float32, axis Vector3) Quaternion {
	axis = axis.Normalized()
	half := float64(deg) * degToRad * 0.5
	s := float32(math.Sin(half))
	return Quaternion{
		W: float32(math.Cos(half)),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// YawPitch is the mouse-look rotation: yaw around Up, then pitch around Right.
func YawPitch(yaw, pitch float32) Quaternion {
	return AxisAngle(yaw, Up).Mul(AxisAngle(pitch, Right))
}

// Mul returns q*o (o is applied first).
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y + q.Y*o.W + q.Z*o.X - q.X*o.Z,
		Z: q.W*o.Z + q.Z*o.W + q.X*o.Y - q.Y*o.X,
	}
}

// Rotate applies q to v.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	qv := Vector3{q.X, q.Y, q.Z}
	t := qv.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(qv.Cross(t))
}

func (q Quaternion) Normalized() Quaternion {
	l := float32(math.Sqrt(float64(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)))
	if l == 0 {
		return Identity
	}
	return Quaternion{q.W / l, q.X / l, q.Y / l, q.Z / l}
}

// YawAngle returns the heading around the Up axis in degrees.
func (q Quaternion) YawAngle() float32 {
	f := q.Rotate(Forward)
	return float32(math.Atan2(float64(f.X), float64(f.Z)) / degToRad)
}

// ApproxEqual treats q and -q as the same rotation.
func (q Quaternion) ApproxEqual(o Quaternion, eps float32) bool {
	same := approx(q.W, o.W, eps) && approx(q.X, o.X, eps) && approx(q.Y, o.Y, eps) && approx(q.Z, o.Z, eps)
	flipped := approx(q.W, -o.W, eps) && approx(q.X, -o.X, eps) && approx(q.Y, -o.Y, eps) && approx(q.Z, -o.Z, eps)
	return same || flipped
}

// rotationMatrix returns the 3x3 rotation as rows.
func (q Quaternion) rotationMatrix() [3][3]float32 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [3][3]float32{
		{1 - 2*y*y - 2*z*z, 2*x*y - 2*w*z, 2*x*z + 2*w*y},
		{2*x*y + 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z - 2*w*x},
		{2*x*z - 2*w*y, 2*y*z + 2*w*x, 1 - 2*x*x - 2*y*y},
	}
}

// quaternionFromRotation converts an orthonormal rotation matrix (rows) to a quaternion.
func quaternionFromRotation(m [3][3]float32) Quaternion {
	var q Quaternion
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace)+1)) * 2
		q.W = 0.25 * s
		q.X = (m[2][1] - m[1][2]) / s
		q.Y = (m[0][2] - m[2][0]) / s
		q.Z = (m[1][0] - m[0][1]) / s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := float32(math.Sqrt(float64(1+m[0][0]-m[1][1]-m[2][2]))) * 2
		q.W = (m[2][1] - m[1][2]) / s
		q.X = 0.25 * s
		q.Y = (m[0][1] + m[1][0]) / s
		q.Z = (m[0][2] + m[2][0]) / s
	case m[1][1] > m[2][2]:
		s := float32(math.Sqrt(float64(1+m[1][1]-m[0][0]-m[2][2]))) * 2
		q.W = (m[0][2] - m[2][0]) / s
		q.X = (m[0][1] + m[1][0]) / s
		q.Y = 0.25 * s
		q.Z = (m[1][2] + m[2][1]) / s
	default:
		s := float32(math.Sqrt(float64(1+m[2][2]-m[0][0]-m[1][1]))) * 2
		q.W = (m[1][0] - m[0][1]) / s
		q.X = (m[0][2] + m[2][0]) / s
		q.Y = (m[1][2] + m[2][1]) / s
		q.Z = 0.25 * s
	}
	return q.Normalized()
}
