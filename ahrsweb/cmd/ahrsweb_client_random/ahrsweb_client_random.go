/*
Client adapted from echo example in github.com/gorilla/websocket/examples/echo
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
	"github.com/podral3/Intel-Realsense-L515/ahrsweb"
)

var addr = flag.String("addr", fmt.Sprintf("localhost:%d", ahrsweb.Port), "ahrsweb server address")

// wander drifts the gyro rates randomly so the published attitude keeps moving.
func wander(gyro ahrs.Vector3) ahrs.Vector3 {
	return ahrs.NewVector3(
		0.9*gyro.X+0.1*(rand.Float64()-0.5),
		0.9*gyro.Y+0.1*(rand.Float64()-0.5),
		0.9*gyro.Z+0.1*(rand.Float64()-0.5),
	)
}

func main() {
	flag.Parse()
	log := logrus.WithField("component", "ahrsweb_client_random")

	// Catch interrupts from os so we can close everything nicely
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := ahrs.DefaultMadgwickConfig()
	cfg.DeltaT = 0.1
	s, err := ahrs.NewMadgwick(cfg)
	if err != nil {
		log.WithError(err).Fatal("Bad filter configuration")
	}

	log.Infof("Connecting to %s", *addr)
	l, err := ahrsweb.NewListener(*addr)
	if err != nil {
		log.WithError(err).Fatal("Dial error")
	}
	defer l.Close()

	ticker := time.NewTicker(time.Duration(cfg.DeltaT * float64(time.Second)))
	defer ticker.Stop()

	var (
		gyro  ahrs.Vector3
		accel = ahrs.NewVector3(0, 0, 1)
		t0    = time.Now()
	)
	for {
		select {
		case <-ticker.C:
			gyro = wander(gyro)
			q, err := s.Update(accel, gyro)
			rec := &ahrs.Record{T: time.Since(t0), Accel: accel, Gyro: gyro, Q: q, Euler: ahrs.EulerAngles(q), Err: err}
			if err := l.Send(rec); err != nil {
				log.WithError(err).Warn("Error sending AHRS data")
			}
		case <-ctx.Done():
			log.Info("Received interrupt")
			return
		}
	}
}
