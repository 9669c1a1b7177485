/*
Client-Server package adapted from Mat Ryer's Go Blueprints examples
see https://github.com/matryer/goblueprints
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/podral3/Intel-Realsense-L515/ahrsweb"
)

func main() {
	var (
		addr  = flag.String("addr", fmt.Sprintf(":%d", ahrsweb.Port), "The port for the AHRS data publication.")
		debug = flag.Bool("debug", false, "Log every client join and leave.")
	)
	flag.Parse() // parse the flags

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "ahrsweb_server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// get the room going
	r := ahrsweb.NewRoom()
	go r.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ahrsweb", r)
	mux.Handle("/latest", r.LatestHandler())
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting web server on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("ListenAndServe fatal error")
	}
	log.Info("Stopped")
}
