package sensors

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

// DefaultCalDataLocation is where the CLI keeps its calibration between runs.
const DefaultCalDataLocation = "imu_cal.json"

// MaxGyroStillVariance bounds the gyro variance, (rad/s)², accepted as "still".
const MaxGyroStillVariance = 1e-3

// IMUCalData holds the hardware biases removed from each sample.
type IMUCalData struct {
	AccelBias ahrs.Vector3 `json:"accel_bias"`
	GyroBias  ahrs.Vector3 `json:"gyro_bias"`
}

func (d *IMUCalData) Reset() {
	*d = IMUCalData{}
}

// Apply removes the biases from m in place.
func (d *IMUCalData) Apply(m *IMUData) {
	m.Accel = m.Accel.Sub(d.AccelBias)
	m.Gyro = m.Gyro.Sub(d.GyroBias)
}

// Save writes the calibration to fn as JSON.
func (d *IMUCalData) Save(fn string) error {
	calData, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrap(err, "sensors: marshaling imu calibration data")
	}
	if err = os.WriteFile(fn, calData, 0644); err != nil {
		return errors.Wrapf(err, "sensors: saving imu calibration data to %s", fn)
	}
	return nil
}

// Load reads a calibration previously written by Save.
func (d *IMUCalData) Load(fn string) error {
	calData, err := os.ReadFile(fn)
	if err != nil {
		return errors.Wrapf(err, "sensors: reading imu calibration data from %s", fn)
	}
	if err = json.Unmarshal(calData, d); err != nil {
		return errors.Wrapf(err, "sensors: parsing imu calibration data from %s", fn)
	}
	return nil
}

// EstimateGyroBias averages n gyro samples from a still sensor.
// It returns ErrNotStill if any axis varied more than MaxGyroStillVariance.
func EstimateGyroBias(ctx context.Context, src Source, n int) (ahrs.Vector3, error) {
	if n < 2 {
		return ahrs.Vector3{}, errors.Errorf("sensors: need at least 2 samples to estimate bias, got %d", n)
	}

	var (
		acc     [3]func(float64) (float64, float64, float64)
		m, v    [3]float64
		decay   = 1 - 1/float64(n)
		started bool
	)
	for i := 0; i < n; i++ {
		d, err := src.Next(ctx)
		if err == io.EOF {
			return ahrs.Vector3{}, errors.Wrapf(io.ErrUnexpectedEOF, "sensors: source ended after %d of %d calibration samples", i, n)
		}
		if err != nil {
			return ahrs.Vector3{}, errors.WithMessage(err, "sensors: calibration sample")
		}
		g := [3]float64{d.Gyro.X, d.Gyro.Y, d.Gyro.Z}
		if !started {
			for j := range acc {
				acc[j] = ahrs.NewVarianceAccumulator(g[j], 0, decay)
			}
			started = true
		}
		for j := range acc {
			_, m[j], v[j] = acc[j](g[j])
		}
	}

	bias := ahrs.NewVector3(m[0], m[1], m[2])
	for j := range v {
		if v[j] > MaxGyroStillVariance {
			return bias, errors.Wrapf(ErrNotStill, "gyro axis %d variance %g", j, v[j])
		}
	}
	return bias, nil
}
