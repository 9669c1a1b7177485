package ahrsweb

import (
	"math"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

const Port = 8000

// AHRSData is the JSON message published to the room for each filter tick.
type AHRSData struct {
	T float64 // Sample time, s

	QX, QY, QZ, QW float64 // Orientation quaternion, scalar last

	A1, A2, A3 float64 // Accelerometer reading, sensor frame
	B1, B2, B3 float64 // Gyro rates, sensor frame, rad/s

	Warning string `json:",omitempty"` // Set when the tick was gyro-only or rejected

	// Final output, °
	Yaw, Pitch, Roll float64
}

// NewAHRSData fills an AHRSData from a processed record.
func NewAHRSData(rec *ahrs.Record) *AHRSData {
	d := new(AHRSData)
	d.update(rec)
	return d
}

func (d *AHRSData) update(rec *ahrs.Record) {
	d.T = rec.T.Seconds()
	d.QX, d.QY, d.QZ, d.QW = rec.Q.X, rec.Q.Y, rec.Q.Z, rec.Q.W
	d.A1, d.A2, d.A3 = finite(rec.Accel.X), finite(rec.Accel.Y), finite(rec.Accel.Z)
	d.B1, d.B2, d.B3 = finite(rec.Gyro.X), finite(rec.Gyro.Y), finite(rec.Gyro.Z)
	d.Yaw, d.Pitch, d.Roll = rec.Euler.X, rec.Euler.Y, rec.Euler.Z
	d.Warning = ""
	if rec.Err != nil {
		d.Warning = rec.Err.Error()
	}
}

// finite maps NaN and Inf to 0, which JSON cannot carry.
// Rejected samples still publish their warning.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
