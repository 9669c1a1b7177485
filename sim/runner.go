// Package sim drives an attitude filter from a sample source and fans each
// result out to logs, metrics and the live web feed.
package sim

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
	"github.com/podral3/Intel-Realsense-L515/sensors"
)

// Sink receives every processed record, including rejected samples (Err set,
// Q unchanged).
type Sink interface {
	Send(rec *ahrs.Record) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(rec *ahrs.Record) error

func (f SinkFunc) Send(rec *ahrs.Record) error {
	return f(rec)
}

// AcceptedOnly passes on records whose sample advanced the filter.
func AcceptedOnly(s Sink) Sink {
	return SinkFunc(func(rec *ahrs.Record) error {
		if rec.Err != nil && !ahrs.IsWarning(rec.Err) {
			return nil
		}
		return s.Send(rec)
	})
}

// Stats summarizes a Run.
type Stats struct {
	ahrs.Stats
	Samples    uint64 // Pulled from the source
	SinkErrors uint64
	Elapsed    time.Duration
}

// Runner is the sampling loop: one Source sample per filter tick.
type Runner struct {
	Source   sensors.Source
	Filter   ahrs.Provider
	Cal      *sensors.IMUCalData // Optional
	Sinks    []Sink
	Realtime bool // Pace samples by their time stamps
	Log      *logrus.Entry

	latest atomic.Pointer[ahrs.Quaternion]
}

// Latest returns the most recent estimate, safe to call while Run is active.
func (r *Runner) Latest() (ahrs.Quaternion, bool) {
	q := r.latest.Load()
	if q == nil {
		return ahrs.Identity, false
	}
	return *q, true
}

func (r *Runner) log() *logrus.Entry {
	if r.Log != nil {
		return r.Log
	}
	return logrus.WithField("component", "sim")
}

// Run pulls samples until the source is exhausted or ctx is cancelled.
// Cancellation returns ctx.Err() together with the stats so far.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var st Stats
	if r.Source == nil || r.Filter == nil {
		return st, errors.New("sim: runner needs a source and a filter")
	}
	log := r.log()

	t0 := time.Now()
	var (
		tFirst  time.Duration
		started bool
		timer   *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		d, err := r.Source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			st.Stats, st.Elapsed = r.Filter.Stats(), time.Since(t0)
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			return st, errors.Wrap(err, "sim: reading sample")
		}
		st.Samples++

		if r.Realtime {
			if !started {
				tFirst, started = d.T, true
			}
			if wait := d.T - tFirst - time.Since(t0); wait > 0 {
				if timer == nil {
					timer = time.NewTimer(wait)
				} else {
					timer.Reset(wait)
				}
				select {
				case <-timer.C:
				case <-ctx.Done():
					st.Stats, st.Elapsed = r.Filter.Stats(), time.Since(t0)
					return st, ctx.Err()
				}
			}
		}

		if r.Cal != nil {
			r.Cal.Apply(d)
		}

		q, err := r.Filter.Update(d.Accel, d.Gyro)
		switch {
		case err == nil:
		case ahrs.IsWarning(err):
			log.WithError(err).WithField("t", d.T).Debug("Gyro-only update")
		default:
			log.WithError(err).WithField("t", d.T).Warn("Sample rejected")
		}
		r.latest.Store(&q)

		rec := &ahrs.Record{
			T:     d.T,
			Accel: d.Accel,
			Gyro:  d.Gyro,
			Q:     q,
			Euler: ahrs.EulerAngles(q),
			Err:   err,
		}
		for _, s := range r.Sinks {
			if err := s.Send(rec); err != nil {
				st.SinkErrors++
				log.WithError(err).Warn("Sink failed")
			}
		}
	}

	st.Stats, st.Elapsed = r.Filter.Stats(), time.Since(t0)
	log.WithField("elapsed", st.Elapsed).Infof("Processed %s samples: %s updates, %s gyro-only, %s rejected",
		humanize.Comma(int64(st.Samples)),
		humanize.Comma(int64(st.Updates)),
		humanize.Comma(int64(st.DegenerateAccel)),
		humanize.Comma(int64(st.Rejected)),
	)
	return st, nil
}
