// Package monitor serves training metrics and health endpoints over HTTP.
package monitor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/styleshift/internal/metrics"
)

// ServiceData keeps data required for the monitoring service.
type ServiceData struct {
	Port      int
	Collector *metrics.Collector
	Health    healthcheck.Handler
	Log       *logrus.Entry
}

// NewServiceData creates service data with a health handler that reports
// live while fewer than maxGoroutines goroutines run.
func NewServiceData(port int, collector *metrics.Collector, log *logrus.Entry) *ServiceData {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(maxGoroutines))
	return &ServiceData{Port: port, Collector: collector, Health: health, Log: log}
}

const maxGoroutines = 1000

// NewRouter creates the router for the monitoring service.
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter()
	if data.Collector != nil {
		router.Methods("GET").Path("/metrics").Handler(data.Collector.Handler())
	}
	if data.Health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.Health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.Health.ReadyEndpoint)
	}
	return router
}

// StartWebServer serves until ctx is done, then shuts the server down.
func StartWebServer(ctx context.Context, data *ServiceData) error {
	portStr := strconv.Itoa(data.Port)
	srv := &http.Server{
		Addr:              ":" + portStr,
		Handler:           NewRouter(data),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if data.Log != nil {
		data.Log.Infof("Starting monitoring service at %d", data.Port)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "Can't start HTTP listener at port "+portStr)
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Wrap(srv.Shutdown(sctx), "can't stop monitoring service")
	}
}
