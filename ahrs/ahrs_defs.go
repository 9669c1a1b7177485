// Package ahrs implements a gradient-descent (Madgwick) attitude filter that
// fuses gyro rates with the accelerometer's gravity reference into a unit
// orientation quaternion.
package ahrs

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	Pi    = math.Pi
	Deg   = Pi / 180
	Small = 1e-9

	// AccelEpsilon is the accelerometer magnitude below which a sample
	// carries no usable gravity direction.
	AccelEpsilon = 1e-9

	DefaultDeltaT           = 0.01 // s
	DefaultGyroMeanErrorDeg = 5.0  // °/s
)

var (
	// ErrDegenerateAccel is a warning: the accelerometer sample had no
	// direction, so only the gyro was integrated for this tick.
	ErrDegenerateAccel = errors.New("ahrs: degenerate accelerometer sample, gyro-only update")
	// ErrNonFiniteInput means the sample held NaN or Inf and was rejected;
	// the estimate is unchanged.
	ErrNonFiniteInput = errors.New("ahrs: non-finite sensor sample rejected")
	// ErrInvalidConfig is returned by constructors given unusable tuning.
	ErrInvalidConfig = errors.New("ahrs: invalid filter configuration")
)

// IsWarning reports whether err still left the filter with an advanced,
// valid estimate.
func IsWarning(err error) bool {
	return errors.Is(err, ErrDegenerateAccel)
}

// MadgwickConfig holds the tuning constants of a Madgwick filter.
type MadgwickConfig struct {
	DeltaT        float64 // Integration step, s
	GyroMeanError float64 // Expected gyro measurement error, rad/s
	Beta          float64 // Filter gain; 0 derives it from GyroMeanError
}

// DefaultMadgwickConfig returns a 100 Hz configuration with a 5°/s gyro error.
func DefaultMadgwickConfig() MadgwickConfig {
	return MadgwickConfig{
		DeltaT:        DefaultDeltaT,
		GyroMeanError: Pi * DefaultGyroMeanErrorDeg / 180,
	}
}

// Gain returns the filter gain: Beta if set, else sqrt(3/4)*GyroMeanError.
func (c MadgwickConfig) Gain() float64 {
	if c.Beta > 0 {
		return c.Beta
	}
	return math.Sqrt(0.75) * c.GyroMeanError
}

// Validate checks the configuration for values the filter can't run with.
func (c MadgwickConfig) Validate() error {
	switch {
	case !isFinite(c.DeltaT) || c.DeltaT <= 0:
		return errors.Wrapf(ErrInvalidConfig, "delta_t must be positive, got %v", c.DeltaT)
	case !isFinite(c.GyroMeanError) || c.GyroMeanError < 0:
		return errors.Wrapf(ErrInvalidConfig, "gyro mean error must be non-negative, got %v", c.GyroMeanError)
	case !isFinite(c.Beta) || c.Beta < 0:
		return errors.Wrapf(ErrInvalidConfig, "beta must be non-negative, got %v", c.Beta)
	}
	return nil
}

// Stats counts what happened to the samples a filter has seen.
type Stats struct {
	Updates            uint64 // Samples that advanced the estimate
	DegenerateAccel    uint64 // Gyro-only updates
	DegenerateGradient uint64 // Updates where the estimate already matched gravity
	Rejected           uint64 // Non-finite samples
}

// Provider defines an AHRS algorithm driven by one accel/gyro pair per tick.
type Provider interface {
	Update(accel, gyro Vector3) (Quaternion, error)
	Orientation() Quaternion
	Stats() Stats
}

// Record is one processed tick: inputs, resulting orientation and any warning.
type Record struct {
	T     time.Duration
	Accel Vector3
	Gyro  Vector3
	Q     Quaternion
	Euler Vector3 // Yaw, pitch, roll, °
	Err   error
}
