/*
Run the attitude filter over recorded or synthesized accel/gyro data.
Samples come from a replay CSV or a static generator with optional noise and
bias; the output goes to an attitude log, a PNG chart, the ahrsweb room and a
Prometheus endpoint, as configured.
*/

package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
	"github.com/podral3/Intel-Realsense-L515/ahrsweb"
	"github.com/podral3/Intel-Realsense-L515/sensors"
	"github.com/podral3/Intel-Realsense-L515/sim"
)

var log = logrus.WithField("component", "ahrs_sim")

func parseFloatArrayString(str string) (a []float64, err error) {
	for _, s := range strings.Split(str, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		a = append(a, v)
	}
	return a, nil
}

func main() {
	// Handle some shell arguments
	var (
		configFn              string
		dt, beta, gme         float64
		gyroNoise, accelNoise float64
		accelStr, gyroStr     string
		gyroBiasStr           string
		scenario              string
		samples               int
		seed                  int64
		logFn, plotFn         string
		webAddr, metricsAddr  string
		calFn                 string
		calibrate             int
		realtime, debug       bool
	)

	const (
		defaultConfig     = ""
		configUsage       = "YAML configuration file; flags given explicitly override it"
		defaultDt         = ahrs.DefaultDeltaT
		dtUsage           = "Filter sample period, seconds"
		defaultBeta       = 0.0
		betaUsage         = "Filter gain; 0 derives it from the gyro mean error"
		defaultGME        = ahrs.DefaultGyroMeanErrorDeg
		gmeUsage          = "Expected gyro measurement error, °/s"
		defaultGyroNoise  = 0.0
		gyroNoiseUsage    = "Amount of noise to add to gyro measurements, rad/s"
		defaultAccelNoise = 0.0
		accelNoiseUsage   = "Amount of noise to add to accel measurements"
		defaultAccel      = "0,0,1"
		accelUsage        = "Static accel reading, \"x,y,z\""
		defaultGyro       = "0,0,0"
		gyroUsage         = "Static gyro reading, \"x,y,z\" rad/s"
		defaultGyroBias   = "0,0,0"
		gyroBiasUsage     = "Amount of bias to add to static gyro measurements, \"x,y,z\" rad/s"
		defaultScenario   = "static"
		scenarioUsage     = "Scenario to use: filename of a replay CSV or \"static\""
		defaultSamples    = 1000
		samplesUsage      = "Number of static samples, 0 for unlimited"
		defaultSeed       = 0
		seedUsage         = "Noise generator seed"
		defaultLog        = ""
		logUsage          = "Write the attitude log to this CSV file"
		defaultPlot       = ""
		plotUsage         = "Render the attitude log to this PNG file after the run"
		defaultWeb        = ""
		webUsage          = "Publish to the ahrsweb room at this address, e.g. localhost:8000"
		defaultMetrics    = ""
		metricsUsage      = "Serve /metrics and /attitude on this address, e.g. :9100"
		defaultCal        = ""
		calUsage          = "Calibration file to load, or to save when calibrating"
		defaultCalibrate  = 0
		calibrateUsage    = "Estimate gyro bias from this many initial samples before running"
		defaultRealtime   = false
		realtimeUsage     = "Pace samples by their time stamps"
	)

	flag.StringVar(&configFn, "config", defaultConfig, configUsage)
	flag.StringVar(&configFn, "c", defaultConfig, configUsage)
	flag.Float64Var(&dt, "dt", defaultDt, dtUsage)
	flag.Float64Var(&beta, "beta", defaultBeta, betaUsage)
	flag.Float64Var(&gme, "gyro-error", defaultGME, gmeUsage)
	flag.Float64Var(&gyroNoise, "gyro-noise", defaultGyroNoise, gyroNoiseUsage)
	flag.Float64Var(&gyroNoise, "g", defaultGyroNoise, gyroNoiseUsage)
	flag.Float64Var(&accelNoise, "accel-noise", defaultAccelNoise, accelNoiseUsage)
	flag.Float64Var(&accelNoise, "a", defaultAccelNoise, accelNoiseUsage)
	flag.StringVar(&accelStr, "accel", defaultAccel, accelUsage)
	flag.StringVar(&gyroStr, "gyro", defaultGyro, gyroUsage)
	flag.StringVar(&gyroBiasStr, "gyro-bias", defaultGyroBias, gyroBiasUsage)
	flag.StringVar(&gyroBiasStr, "b", defaultGyroBias, gyroBiasUsage)
	flag.StringVar(&scenario, "scenario", defaultScenario, scenarioUsage)
	flag.StringVar(&scenario, "s", defaultScenario, scenarioUsage)
	flag.IntVar(&samples, "n", defaultSamples, samplesUsage)
	flag.Int64Var(&seed, "seed", defaultSeed, seedUsage)
	flag.StringVar(&logFn, "log", defaultLog, logUsage)
	flag.StringVar(&logFn, "l", defaultLog, logUsage)
	flag.StringVar(&plotFn, "plot", defaultPlot, plotUsage)
	flag.StringVar(&webAddr, "web", defaultWeb, webUsage)
	flag.StringVar(&metricsAddr, "metrics", defaultMetrics, metricsUsage)
	flag.StringVar(&calFn, "cal", defaultCal, calUsage)
	flag.IntVar(&calibrate, "calibrate", defaultCalibrate, calibrateUsage)
	flag.BoolVar(&realtime, "realtime", defaultRealtime, realtimeUsage)
	flag.BoolVar(&debug, "debug", false, "Log every gyro-only update")
	flag.Parse()

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := sim.DefaultConfig()
	if configFn != "" {
		var err error
		if cfg, err = sim.LoadConfig(configFn); err != nil {
			log.WithError(err).Fatal("Loading configuration")
		}
	}

	// Flags given on the command line win over the file
	var set []error
	flag.Visit(func(f *flag.Flag) {
		var err error
		switch f.Name {
		case "dt":
			cfg.Filter.DeltaT = dt
		case "beta":
			cfg.Filter.Beta = beta
		case "gyro-error":
			cfg.Filter.GyroMeanErrorDeg = gme
		case "gyro-noise", "g":
			cfg.Source.GyroNoise = gyroNoise
		case "accel-noise", "a":
			cfg.Source.AccelNoise = accelNoise
		case "accel":
			cfg.Source.Accel, err = parseFloatArrayString(accelStr)
		case "gyro":
			cfg.Source.Gyro, err = parseFloatArrayString(gyroStr)
		case "scenario", "s":
			if strings.ToLower(scenario) == "static" {
				cfg.Source.Kind = "static"
			} else {
				cfg.Source.Kind, cfg.Source.File = "replay", scenario
			}
		case "n":
			cfg.Source.Samples = samples
		case "seed":
			cfg.Source.Seed = seed
		case "log", "l":
			cfg.Output.CSV = logFn
		case "plot":
			cfg.Output.Plot = plotFn
		case "web":
			cfg.Output.Web = webAddr
		case "metrics":
			cfg.Output.Metrics = metricsAddr
		case "cal":
			cfg.Calibration = calFn
		case "realtime":
			cfg.Realtime = realtime
		}
		if err != nil {
			set = append(set, errors.Wrapf(err, "flag -%s", f.Name))
		}
	})
	for _, err := range set {
		log.WithError(err).Fatal("Parsing arguments")
	}

	gyroBias, err := parseFloatArrayString(gyroBiasStr)
	if err == nil && len(gyroBias) != 3 {
		err = errors.Errorf("need 3 components, got %d", len(gyroBias))
	}
	if err != nil {
		log.WithError(err).Fatalf("Parsing gyro bias %s", gyroBiasStr)
	}
	if len(cfg.Source.Gyro) == 3 {
		for i := range gyroBias {
			cfg.Source.Gyro[i] += gyroBias[i]
		}
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	// Catch interrupts from os so we can close everything nicely
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, calibrate); err != nil {
		log.WithError(err).Fatal("Simulation failed")
	}
}

func run(ctx context.Context, cfg *sim.Config, calibrate int) error {
	src, err := cfg.NewSource()
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"source":   cfg.Source.Kind,
		"delta_t":  cfg.Filter.DeltaT,
		"beta":     cfg.MadgwickConfig().Gain(),
		"realtime": cfg.Realtime,
	}).Info("Simulation parameters")

	var cal *sensors.IMUCalData
	switch {
	case calibrate > 0:
		bias, err := sensors.EstimateGyroBias(ctx, src, calibrate)
		if err != nil {
			return err
		}
		if err = src.Rewind(); err != nil {
			return err
		}
		cal = &sensors.IMUCalData{GyroBias: bias}
		log.WithField("gyro_bias", bias).Info("Calibrated")
		if cfg.Calibration != "" {
			if err = cal.Save(cfg.Calibration); err != nil {
				return err
			}
		}
	case cfg.Calibration != "":
		cal = new(sensors.IMUCalData)
		if err = cal.Load(cfg.Calibration); err != nil {
			return err
		}
	}

	f, err := ahrs.NewMadgwick(cfg.MadgwickConfig())
	if err != nil {
		return err
	}
	r := &sim.Runner{Source: src, Filter: f, Cal: cal, Realtime: cfg.Realtime, Log: log}

	var csvLog *ahrs.AHRSLogger
	if cfg.Output.CSV != "" {
		if csvLog, err = ahrs.NewAHRSLogger(cfg.Output.CSV); err != nil {
			return err
		}
		defer func() {
			if err := csvLog.Close(); err != nil {
				log.WithError(err).Error("Closing attitude log")
			}
		}()
		r.Sinks = append(r.Sinks, sim.AcceptedOnly(sim.SinkFunc(csvLog.Log)))
	}

	if cfg.Output.Web != "" {
		l, err := ahrsweb.NewListener(cfg.Output.Web)
		if err != nil {
			return err
		}
		defer l.Close()
		r.Sinks = append(r.Sinks, l)
	}

	if cfg.Output.Metrics != "" {
		reg := prometheus.NewRegistry()
		m, err := sim.NewMetrics(reg)
		if err != nil {
			return err
		}
		r.Sinks = append(r.Sinks, m)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/attitude", func(w http.ResponseWriter, req *http.Request) {
			q, _ := r.Latest()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(struct {
				Q     ahrs.Quaternion
				Euler ahrs.Vector3
			}{q, ahrs.EulerAngles(q)})
		})
		srv := &http.Server{Addr: cfg.Output.Metrics, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Metrics server")
			}
		}()
		defer srv.Close()
	}

	// This is where it all happens
	if _, err = r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if cfg.Output.Plot != "" {
		if err = csvLog.Close(); err != nil {
			return err
		}
		if err = sim.PlotEuler(cfg.Output.CSV, cfg.Output.Plot); err != nil {
			return err
		}
		log.Infof("Chart written to %s", cfg.Output.Plot)
	}
	return nil
}
