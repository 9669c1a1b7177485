package sensors

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

// Static generates a fixed accel/gyro pair with optional Gaussian noise.
// Equal seeds produce equal sequences.
type Static struct {
	Accel, Gyro           ahrs.Vector3
	AccelNoise, GyroNoise float64 // Standard deviation per axis
	DT                    time.Duration
	N                     int // Samples to produce; 0 means unlimited
	Seed                  int64

	r *rand.Rand
	i int
}

// NewStatic returns a noiseless source of n identical samples at period dt.
func NewStatic(accel, gyro ahrs.Vector3, dt time.Duration, n int) *Static {
	s := &Static{Accel: accel, Gyro: gyro, DT: dt, N: n}
	s.Rewind()
	return s
}

func (s *Static) noise(sd float64) ahrs.Vector3 {
	if sd == 0 {
		return ahrs.Vector3{}
	}
	return ahrs.NewVector3(sd*s.r.NormFloat64(), sd*s.r.NormFloat64(), sd*s.r.NormFloat64())
}

// Next returns the next synthetic sample.
func (s *Static) Next(ctx context.Context) (*IMUData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.r == nil {
		s.Rewind()
	}
	if s.N > 0 && s.i >= s.N {
		return nil, io.EOF
	}
	d := &IMUData{
		T:     time.Duration(s.i) * s.DT,
		Accel: s.Accel.Add(s.noise(s.AccelNoise)),
		Gyro:  s.Gyro.Add(s.noise(s.GyroNoise)),
	}
	s.i++
	return d, nil
}

// Rewind restarts the sequence, reseeding the noise generator.
func (s *Static) Rewind() error {
	s.r = rand.New(rand.NewSource(s.Seed))
	s.i = 0
	return nil
}
