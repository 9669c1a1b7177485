package ahrs

import (
	"math"

	"github.com/westphae/quaternion"
)

// Quaternion is a rotation quaternion stored scalar-last: W is the real part.
// Filter estimates rotate the body frame into the reference frame.
type Quaternion struct {
	X, Y, Z, W float64
}

// Identity is the null rotation.
var Identity = Quaternion{0, 0, 0, 1}

// FromQuat converts from the scalar-first quaternion library type.
func FromQuat(q quaternion.Quaternion) Quaternion {
	return Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

// Quat converts q to the scalar-first quaternion library type.
func (q Quaternion) Quat() quaternion.Quaternion {
	return quaternion.Quaternion{W: q.W, X: q.X, Y: q.Y, Z: q.Z}
}

// Prod returns the Hamilton product a⊗b.
func Prod(a, b Quaternion) Quaternion {
	return FromQuat(quaternion.Prod(a.Quat(), b.Quat()))
}

// Conj returns the conjugate of q.
func (q Quaternion) Conj() Quaternion {
	return FromQuat(q.Quat().Conj())
}

// Add returns q+p componentwise.
func (q Quaternion) Add(p Quaternion) Quaternion {
	return Quaternion{q.X + p.X, q.Y + p.Y, q.Z + p.Z, q.W + p.W}
}

// Sub returns q-p componentwise.
func (q Quaternion) Sub(p Quaternion) Quaternion {
	return Quaternion{q.X - p.X, q.Y - p.Y, q.Z - p.Z, q.W - p.W}
}

// Scale returns k*q.
func (q Quaternion) Scale(k float64) Quaternion {
	return Quaternion{k * q.X, k * q.Y, k * q.Z, k * q.W}
}

// Norm returns the magnitude of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize returns q scaled to unit magnitude, or q itself if its magnitude is zero.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return q.Scale(1 / n)
}

// IsFinite reports whether no component of q is NaN or infinite.
func (q Quaternion) IsFinite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

// AxisAngle returns the unit quaternion rotating by angle radians around axis.
// A zero axis yields Identity.
func AxisAngle(axis Vector3, angle float64) Quaternion {
	n := axis.Norm()
	if n == 0 {
		return Identity
	}
	s := math.Sin(angle/2) / n
	return Quaternion{axis.X * s, axis.Y * s, axis.Z * s, math.Cos(angle / 2)}
}

// EulerAngles returns the yaw, pitch and roll of q in degrees, packed into
// the X, Y and Z of a Vector3.
// The pitch sine is clamped to [-1, 1] so that round-off at ±90° pitch
// cannot produce NaN.
func EulerAngles(q Quaternion) Vector3 {
	yaw := math.Atan2(2*(q.X*q.Y-q.W*q.Z), 2*q.W*q.W+2*q.X*q.X)
	pitch := -math.Asin(clamp(2*(q.X*q.Z+q.W*q.Y), -1, 1))
	roll := math.Atan2(2*(q.Y*q.Z-q.W*q.X), 2*q.W*q.W+2*q.Z*q.Z-1)
	return Vector3{yaw / Deg, pitch / Deg, roll / Deg}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
