package sensors

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

// VectorFrameSize is the byte length of one motion vector: three little-endian float32.
const VectorFrameSize = 12

// DecodeVector reads a motion vector from the start of b.
func DecodeVector(b []byte) (ahrs.Vector3, error) {
	if len(b) < VectorFrameSize {
		return ahrs.Vector3{}, errors.Wrapf(ErrShortFrame, "got %d bytes, need %d", len(b), VectorFrameSize)
	}
	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}
	return ahrs.NewVector3(f(0), f(1), f(2)), nil
}

// DecodeMotionFrame pairs a gyro frame and an accel frame into one sample.
func DecodeMotionFrame(gyro, accel []byte, t time.Duration) (*IMUData, error) {
	g, err := DecodeVector(gyro)
	if err != nil {
		return nil, errors.WithMessage(err, "gyro frame")
	}
	a, err := DecodeVector(accel)
	if err != nil {
		return nil, errors.WithMessage(err, "accel frame")
	}
	return &IMUData{T: t, Accel: a, Gyro: g}, nil
}

// EncodeVector is the inverse of DecodeVector, used to build test and replay frames.
func EncodeVector(v ahrs.Vector3) []byte {
	b := make([]byte, VectorFrameSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
	return b
}
