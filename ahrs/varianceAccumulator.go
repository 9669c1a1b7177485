package ahrs

// NewVarianceAccumulator returns a function that, when passed an observation,
// accumulates an exponentially weighted mean and variance with decay constant
// decay.  The accumulator starts from mean m0 and variance v0 and returns the
// current estimates of the effective number of observations, the mean and the
// variance.
func NewVarianceAccumulator(m0, v0, decay float64) func(float64) (float64, float64, float64) {
	var (
		n = 1.0
		m = m0
		v = v0
	)

	return func(obs float64) (float64, float64, float64) {
		d := obs - m
		dm := (1 - decay) * d

		n = 1 + decay*n
		m += dm
		v = decay * (v + dm*d)
		return n, m, v
	}
}
