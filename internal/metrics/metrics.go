// Package metrics exposes training progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "styleshift"

// Collector records training metrics on its own registry. A nil *Collector
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	updates    *prometheus.CounterVec
	skipped    prometheus.Counter
	cost       *prometheus.GaugeVec
	classCost  prometheus.Gauge
	entropy    prometheus.Gauge
	validErr   prometheus.Gauge
	epoch      prometheus.Gauge
	updateDur  prometheus.Histogram
	checkpoint *prometheus.CounterVec
}

// NewCollector creates and registers all training metrics.
func NewCollector() (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.updates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Applied parameter updates per style decoder",
	}, []string{"style"})
	c.skipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "empty_batches_total",
		Help:      "Minibatches skipped because no example fit the length limit",
	})
	c.cost = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reconstruction_cost",
		Help:      "Last reconstruction cost per style decoder",
	}, []string{"style"})
	c.classCost = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "adversary_class_cost",
		Help:      "Last style classification cost of the adversary",
	})
	c.entropy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "adversary_neg_entropy",
		Help:      "Last mean negative entropy of the adversary prediction",
	})
	c.validErr = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_error",
		Help:      "Last validation error",
	})
	c.epoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "epoch",
		Help:      "Current epoch",
	})
	c.updateDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "update_duration_seconds",
		Help:      "Forward, backward and optimizer step duration",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
	})
	c.checkpoint = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkpoints_total",
		Help:      "Saved checkpoints by kind",
	}, []string{"kind"})

	for _, m := range []prometheus.Collector{c.updates, c.skipped, c.cost, c.classCost, c.entropy,
		c.validErr, c.epoch, c.updateDur, c.checkpoint} {
		if err := c.register(m); err != nil {
			return nil, errors.Wrap(err, "can't register metric")
		}
	}
	return c, nil
}

// register tries to register or reregister a metric.
func (c *Collector) register(m prometheus.Collector) error {
	err := c.registry.Register(m)
	if err != nil {
		c.registry.Unregister(m)
		err = c.registry.Register(m)
	}
	return err
}

// Registry returns the registry holding the metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveUpdate records one applied update of the given style decoder.
func (c *Collector) ObserveUpdate(style int, cost, class, entropy float64, took time.Duration) {
	if c == nil {
		return
	}
	s := strconv.Itoa(style)
	c.updates.WithLabelValues(s).Inc()
	c.cost.WithLabelValues(s).Set(cost)
	c.classCost.Set(class)
	c.entropy.Set(entropy)
	c.updateDur.Observe(took.Seconds())
}

// SkipBatch counts an empty minibatch.
func (c *Collector) SkipBatch() {
	if c == nil {
		return
	}
	c.skipped.Inc()
}

// SetValidation records a validation error.
func (c *Collector) SetValidation(err float64) {
	if c == nil {
		return
	}
	c.validErr.Set(err)
}

// SetEpoch records the current epoch.
func (c *Collector) SetEpoch(epoch int) {
	if c == nil {
		return
	}
	c.epoch.Set(float64(epoch))
}

// Checkpoint counts a saved checkpoint of kind "latest", "best" or "iter".
func (c *Collector) Checkpoint(kind string) {
	if c == nil {
		return
	}
	c.checkpoint.WithLabelValues(kind).Inc()
}
