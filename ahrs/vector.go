package ahrs

import "math"

// Vector3 holds a raw sensor triple (gyro rates in rad/s, accelerations in any
// consistent unit) or an Euler angle triple in degrees, stored yaw, pitch, roll
// in X, Y, Z.
type Vector3 struct {
	X, Y, Z float64
}

// NewVector3 returns the Vector3 (x, y, z).
func NewVector3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Add returns v+w.
func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v-w.
func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns k*v.
func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{k * v.X, k * v.Y, k * v.Z}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsFinite reports whether no component of v is NaN or infinite.
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
