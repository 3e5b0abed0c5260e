// Package metrics exposes the controller's Prometheus metrics: registry
// size, decisions emitted by command, and vehicles reaped. These are purely
// observational and never feed back into decision logic.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the controller's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	RegistrySize   prometheus.Gauge
	DecisionsTotal *prometheus.CounterVec
	ReapedTotal    prometheus.Counter
}

// New registers and returns the controller's collectors on a fresh
// Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RegistrySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "htcs_registry_size",
			Help: "Current number of vehicles tracked by the controller.",
		}),
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "htcs_decisions_total",
			Help: "Decisions emitted by the decision engine, by command.",
		}, []string{"command"}),
		ReapedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "htcs_reaped_total",
			Help: "Vehicles evicted by the zombie reaper.",
		}),
	}
}

// IncDecision increments the decisions-emitted counter for command. It
// implements decision.Recorder without this package needing to import
// internal/decision.
func (m *Metrics) IncDecision(command string) {
	m.DecisionsTotal.WithLabelValues(command).Inc()
}

// IncReaped increments the zombies-evicted counter.
func (m *Metrics) IncReaped() {
	m.ReapedTotal.Inc()
}

// SetRegistrySize sets the current tracked-vehicle gauge.
func (m *Metrics) SetRegistrySize(n int) {
	m.RegistrySize.Set(float64(n))
}

// Serve starts a blocking HTTP server exposing /metrics on addr, until ctx
// is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
