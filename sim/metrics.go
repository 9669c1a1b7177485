package sim

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

// Metrics is a Sink exporting filter activity to Prometheus.
type Metrics struct {
	updates    prometheus.Counter
	degenerate prometheus.Counter
	rejected   prometheus.Counter
	euler      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ahrs_updates_total",
			Help: "Samples that advanced the orientation estimate.",
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ahrs_degenerate_accel_total",
			Help: "Samples integrated from the gyro alone.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ahrs_rejected_samples_total",
			Help: "Non-finite samples dropped by the filter.",
		}),
		euler: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ahrs_euler_degrees",
				Help: "Current attitude.",
			},
			[]string{"axis"},
		),
	}
	for _, c := range []prometheus.Collector{m.updates, m.degenerate, m.rejected, m.euler} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "sim: registering metrics")
		}
	}
	return m, nil
}

func (m *Metrics) Send(rec *ahrs.Record) error {
	if rec.Err != nil && !ahrs.IsWarning(rec.Err) {
		m.rejected.Inc()
		return nil
	}
	m.updates.Inc()
	if rec.Err != nil {
		m.degenerate.Inc()
	}
	m.euler.With(prometheus.Labels{"axis": "yaw"}).Set(rec.Euler.X)
	m.euler.With(prometheus.Labels{"axis": "pitch"}).Set(rec.Euler.Y)
	m.euler.With(prometheus.Labels{"axis": "roll"}).Set(rec.Euler.Z)
	return nil
}
