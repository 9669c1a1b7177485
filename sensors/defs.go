// Package sensors supplies paired accelerometer/gyro samples to the attitude
// filter, from recorded files, synthetic generators or raw motion frames.
package sensors

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

var (
	// ErrShortFrame is returned when a raw motion frame is too small to hold a vector.
	ErrShortFrame = errors.New("sensors: motion frame too short")
	// ErrNotStill is returned by EstimateGyroBias when the sensor moved during sampling.
	ErrNotStill = errors.New("sensors: sensor not still during calibration")
	// ErrMissingColumn is returned when a replay file lacks a required column.
	ErrMissingColumn = errors.New("sensors: replay file missing column")
)

// IMUData is one accelerometer/gyro pair taken at the same tick.
type IMUData struct {
	T     time.Duration // Since the start of the stream
	Accel ahrs.Vector3  // Any consistent unit
	Gyro  ahrs.Vector3  // rad/s
}

// Source delivers IMUData one tick at a time.
// Next returns io.EOF once the sequence is exhausted.
type Source interface {
	Next(ctx context.Context) (*IMUData, error)
	Rewind() error
}
