package ahrs

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LogHeader lists the columns AHRSLogger writes, in order.
var LogHeader = []string{
	"t",
	"qx", "qy", "qz", "qw",
	"yaw", "pitch", "roll",
	"ax", "ay", "az",
	"gx", "gy", "gz",
}

// AHRSLogger writes one CSV row per processed Record.
type AHRSLogger struct {
	w    io.Writer
	c    io.Closer
	fmt  string
	vals []interface{}
}

// NewAHRSLogger creates filename and writes the header row.
func NewAHRSLogger(filename string) (*AHRSLogger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, "ahrs: creating attitude log")
	}
	l, err := NewAHRSWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.c = f
	return l, nil
}

// NewAHRSWriter writes the header row to w and returns a logger on it.
func NewAHRSWriter(w io.Writer) (*AHRSLogger, error) {
	l := &AHRSLogger{w: w}
	if _, err := fmt.Fprint(l.w, strings.Join(LogHeader, ","), "\n"); err != nil {
		return nil, errors.Wrap(err, "ahrs: writing attitude log header")
	}
	s := strings.Repeat("%f,", len(LogHeader))
	l.fmt = strings.Join([]string{s[:len(s)-1], "\n"}, "")
	l.vals = make([]interface{}, len(LogHeader))
	return l, nil
}

// Log appends rec as a row.
func (l *AHRSLogger) Log(rec *Record) error {
	l.vals[0] = rec.T.Seconds()
	l.vals[1], l.vals[2], l.vals[3], l.vals[4] = rec.Q.X, rec.Q.Y, rec.Q.Z, rec.Q.W
	l.vals[5], l.vals[6], l.vals[7] = rec.Euler.X, rec.Euler.Y, rec.Euler.Z
	l.vals[8], l.vals[9], l.vals[10] = rec.Accel.X, rec.Accel.Y, rec.Accel.Z
	l.vals[11], l.vals[12], l.vals[13] = rec.Gyro.X, rec.Gyro.Y, rec.Gyro.Z
	_, err := fmt.Fprintf(l.w, l.fmt, l.vals...)
	return err
}

// Close closes the underlying file, if the logger opened one.
// Later calls do nothing.
func (l *AHRSLogger) Close() error {
	if l.c == nil {
		return nil
	}
	c := l.c
	l.c = nil
	return c.Close()
}
