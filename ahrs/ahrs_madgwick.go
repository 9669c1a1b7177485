package ahrs

import (
	"github.com/pkg/errors"
	"github.com/skelterjohn/go.matrix"
)

// MadgwickState holds a gradient-descent orientation filter.
// Only Update mutates the estimate; the filter is meant to be owned by a
// single sampling loop and is not safe for concurrent use.
type MadgwickState struct {
	cfg   MadgwickConfig
	beta  float64
	q     Quaternion // Current estimate, always unit
	stats Stats
}

// NewMadgwick returns a filter at the identity orientation.
func NewMadgwick(cfg MadgwickConfig) (*MadgwickState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MadgwickState{cfg: cfg, beta: cfg.Gain(), q: Identity}, nil
}

// Config returns the tuning the filter was built with.
func (s *MadgwickState) Config() MadgwickConfig {
	return s.cfg
}

// Beta returns the effective filter gain.
func (s *MadgwickState) Beta() float64 {
	return s.beta
}

// Orientation returns the current estimate.
func (s *MadgwickState) Orientation() Quaternion {
	return s.q
}

// Stats returns the sample counters accumulated since construction or Reset.
func (s *MadgwickState) Stats() Stats {
	return s.stats
}

// Reset puts the filter back at the identity orientation and clears its counters.
func (s *MadgwickState) Reset() {
	s.q = Identity
	s.stats = Stats{}
}

// SetOrientation seeds the estimate, e.g. from a previous session.
func (s *MadgwickState) SetOrientation(q Quaternion) error {
	if !q.IsFinite() {
		return errors.Wrapf(ErrNonFiniteInput, "orientation %v", q)
	}
	if q.Norm() < Small {
		return errors.Wrapf(ErrInvalidConfig, "orientation %v has no direction", q)
	}
	s.q = q.Normalize()
	return nil
}

// Update advances the estimate by one sample period using accelerometer
// reading accel (any unit) and gyro rates gyro (rad/s), and returns the new
// estimate.
//
// Non-finite samples are rejected with ErrNonFiniteInput and the previous
// estimate is returned. A zero accelerometer reading integrates the gyro alone
// and returns the new estimate together with ErrDegenerateAccel.
func (s *MadgwickState) Update(accel, gyro Vector3) (Quaternion, error) {
	if !accel.IsFinite() || !gyro.IsFinite() {
		s.stats.Rejected++
		return s.q, errors.Wrapf(ErrNonFiniteInput, "accel %v, gyro %v", accel, gyro)
	}

	qPrev := s.q

	// Rate of change of orientation implied by the gyro alone
	qDot := Prod(Quaternion{X: gyro.X, Y: gyro.Y, Z: gyro.Z}.Scale(0.5), qPrev)

	var warn error
	if an := accel.Norm(); an < AccelEpsilon {
		s.stats.DegenerateAccel++
		warn = ErrDegenerateAccel
	} else {
		grad := gradient(qPrev, accel.Scale(1/an))
		if grad.Norm() == 0 {
			s.stats.DegenerateGradient++
		} else {
			qDot = qDot.Sub(grad.Normalize().Scale(s.beta))
		}
	}

	s.q = qPrev.Add(qDot.Scale(s.cfg.DeltaT)).Normalize()
	s.stats.Updates++
	return s.q, warn
}

// objective returns the difference between the gravity direction predicted by
// q and the measured unit accelerometer direction a, as a 3x1 matrix.
func objective(q Quaternion, a Vector3) *matrix.DenseMatrix {
	return matrix.MakeDenseMatrix([]float64{
		2*(q.X*q.Z-q.W*q.Y) - a.X,
		2*(q.W*q.X+q.Y*q.Z) - a.Y,
		2*(0.5-q.X*q.X-q.Y*q.Y) - a.Z,
	}, 3, 1)
}

// jacobian returns the 3x4 Jacobian of the objective with columns in w, x, y, z order.
// Row 1, column 2 is 2y, not the analytic 2z. Changing it changes the
// filter's converged output.
func jacobian(q Quaternion) *matrix.DenseMatrix {
	return matrix.MakeDenseMatrix([]float64{
		-2 * q.Y, 2 * q.Z, -2 * q.W, 2 * q.X,
		2 * q.X, 2 * q.W, 2 * q.Y, 2 * q.Y,
		0, -4 * q.X, -4 * q.Y, 0,
	}, 3, 4)
}

// gradient returns J'F as an unnormalized quaternion.
func gradient(q Quaternion, a Vector3) Quaternion {
	g := matrix.Product(jacobian(q).Transpose(), objective(q, a))
	return Quaternion{W: g.Get(0, 0), X: g.Get(1, 0), Y: g.Get(2, 0), Z: g.Get(3, 0)}
}
