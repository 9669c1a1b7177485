package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/podral3/Intel-Realsense-L515/sim"
)

func main() {
	var (
		in  = flag.String("in", "ahrs.csv", "Attitude log written by ahrs_sim")
		out = flag.String("out", "ahrs.png", "PNG file to write")
	)
	flag.Parse()

	log := logrus.WithField("component", "ahrs_plot")
	if err := sim.PlotEuler(*in, *out); err != nil {
		log.WithError(err).Fatal("Plotting failed")
	}
	log.Infof("Chart written to %s", *out)
}
