package decision

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/registry"
	"github.com/htcs-sim/controller/internal/vehicle"
)

// Publisher is the subset of *pool.Pool the engine needs to emit a command.
type Publisher interface {
	PublishCommand(id string, payload []byte) error
}

// Recorder is the subset of *metrics.Metrics the engine needs.
type Recorder interface {
	IncDecision(command string)
}

// Notifier is the subset of *eventbus.Bus the engine needs; it takes the
// vehicle id, command, and timestamp rather than an eventbus.DecisionEvent
// directly so this package does not need to import eventbus.
type Notifier interface {
	NotifyDecision(vehicleID string, cmd vehicle.Command, at time.Time)
}

// Engine runs the decision loop: on every tick, it snapshots the registry,
// decides a command for every vehicle, and publishes it if it differs from
// the last command decided for that vehicle.
type Engine struct {
	reg       *registry.Registry
	publisher Publisher
	cache     *Cache
	logger    *logrus.Logger

	recorder Recorder
	notifier Notifier

	interval time.Duration
}

// Option configures optional Engine dependencies.
type Option func(*Engine)

// WithMetrics attaches a Recorder that observes every emitted decision.
func WithMetrics(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithEventBus attaches a Notifier that observes every emitted decision.
func WithEventBus(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithTickInterval overrides the default decision tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// NewEngine returns an Engine ticking at a 1 second default interval.
func NewEngine(reg *registry.Registry, publisher Publisher, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		reg:       reg,
		publisher: publisher,
		cache:     NewCache(),
		logger:    logger,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run blocks, deciding and publishing on every tick, until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	snapshot := e.reg.Snapshot()
	now := time.Now()

	for _, v := range snapshot {
		cmd := Decide(v, snapshot)
		if !e.cache.Changed(v.ID, cmd) {
			continue
		}

		v.RecordCommand(cmd)
		if err := e.publisher.PublishCommand(v.ID, []byte{cmd.Byte()}); err != nil {
			e.logger.WithError(err).WithField("car_id", v.ID).Warn("decision: failed to publish command")
			continue
		}

		if e.recorder != nil {
			e.recorder.IncDecision(cmd.String())
		}
		if e.notifier != nil {
			e.notifier.NotifyDecision(v.ID, cmd, now)
		}
	}
}

// Forget drops any cached decision state for id; called when a vehicle
// leaves the registry.
func (e *Engine) Forget(id string) {
	e.cache.Forget(id)
}
