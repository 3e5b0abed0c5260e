// Package reaper periodically evicts vehicles that have stopped publishing
// state, since a vehicle simulator process may die without ever sending an
// exit message.
package reaper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/config"
	"github.com/htcs-sim/controller/internal/registry"
)

// Exiter is the subset of *dispatcher.Dispatcher the reaper needs: a way to
// unsubscribe and evict a vehicle through the same path a real exit message
// takes.
type Exiter interface {
	Exit(id string)
}

// Recorder is the subset of *metrics.Metrics the reaper needs.
type Recorder interface {
	IncReaped()
}

// Reaper sweeps reg every interval, evicting any vehicle whose last update
// is older than threshold.
type Reaper struct {
	reg       *registry.Registry
	exiter    Exiter
	logger    *logrus.Logger
	interval  time.Duration
	threshold time.Duration
	recorder  Recorder

	now func() time.Time // overridable for tests
}

// New returns a Reaper using the default interval/threshold from
// internal/config (5s/5s). recorder may be nil.
func New(reg *registry.Registry, exiter Exiter, logger *logrus.Logger, recorder Recorder) *Reaper {
	return &Reaper{
		reg:       reg,
		exiter:    exiter,
		logger:    logger,
		interval:  config.ReapInterval,
		threshold: config.ReapThreshold,
		recorder:  recorder,
		now:       time.Now,
	}
}

// WithInterval overrides the sweep interval and zombie threshold; intended
// for tests and for the rare deployment that configures a different cadence.
func (r *Reaper) WithInterval(interval, threshold time.Duration) *Reaper {
	r.interval = interval
	r.threshold = threshold
	return r
}

// Run blocks, sweeping on every tick, until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep takes a registry snapshot and evicts every vehicle whose last
// update is older than the threshold. A vehicle with
// now - last_update < threshold is never evicted.
func (r *Reaper) sweep() {
	cutoff := r.now().Add(-r.threshold)
	for _, v := range r.reg.Snapshot() {
		if v.State.LastUpdateTimestamp.Before(cutoff) {
			r.logger.WithField("car_id", v.ID).Info("reaper: evicting zombie")
			r.exiter.Exit(v.ID)
			if r.recorder != nil {
				r.recorder.IncReaped()
			}
		}
	}
}
