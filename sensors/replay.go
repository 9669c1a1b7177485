package sensors

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

// ReplayColumns are the columns a replay file must carry, in any order.
var ReplayColumns = []string{"t", "ax", "ay", "az", "gx", "gy", "gz"}

// Replay plays back samples recorded in a CSV file.
type Replay struct {
	data    []IMUData
	ix      int
	Skipped int // Rows dropped for bad data
}

// NewReplayFromFile reads the whole of fn into memory.
func NewReplayFromFile(fn string) (*Replay, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrap(err, "sensors: opening replay file")
	}
	defer f.Close()
	r, err := NewReplay(bufio.NewReader(f))
	if err != nil {
		return nil, errors.WithMessage(err, fn)
	}
	return r, nil
}

// NewReplay reads CSV from rd. The first row is the header; t is in seconds.
// Rows that fail to parse are logged and skipped.
func NewReplay(rd io.Reader) (*Replay, error) {
	log := logrus.WithField("component", "replay")
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rec, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "sensors: reading replay header")
	}
	fields := make(map[string]int)
	for i, k := range rec {
		fields[strings.ToLower(strings.TrimSpace(k))] = i
	}
	cols := make([]int, len(ReplayColumns))
	for i, k := range ReplayColumns {
		ix, ok := fields[k]
		if !ok {
			return nil, errors.Wrapf(ErrMissingColumn, "%q", k)
		}
		cols[i] = ix
	}

	s := new(Replay)
	vals := make([]float64, len(cols))
	for line := 2; ; line++ {
		rec, err = r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Warnf("line %d: skipping", line)
			s.Skipped++
			continue
		}
		if err = parseRow(rec, cols, vals); err != nil {
			log.WithError(err).Warnf("line %d: bad data, skipping", line)
			s.Skipped++
			continue
		}
		s.data = append(s.data, IMUData{
			T:     time.Duration(vals[0] * float64(time.Second)),
			Accel: ahrs.NewVector3(vals[1], vals[2], vals[3]),
			Gyro:  ahrs.NewVector3(vals[4], vals[5], vals[6]),
		})
	}
	return s, nil
}

func parseRow(rec []string, cols []int, vals []float64) error {
	for i, c := range cols {
		if c >= len(rec) {
			return errors.Errorf("no value for %s", ReplayColumns[i])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	return nil
}

// Len returns the number of samples held.
func (s *Replay) Len() int {
	return len(s.data)
}

// Next returns the next recorded sample.
func (s *Replay) Next(ctx context.Context) (*IMUData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ix >= len(s.data) {
		return nil, io.EOF
	}
	d := s.data[s.ix]
	s.ix++
	return &d, nil
}

// Rewind restarts playback from the first sample.
func (s *Replay) Rewind() error {
	s.ix = 0
	return nil
}
