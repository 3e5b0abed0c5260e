// Package dispatcher routes bus messages — join, state, and the optional
// obituary — into the registry, via the pool's subscription plumbing.
package dispatcher

import (
	"strings"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/registry"
	"github.com/htcs-sim/controller/internal/vehicle"
	"github.com/htcs-sim/controller/internal/wire"
)

// Forgetter is the subset of *decision.Engine the dispatcher needs: a way to
// drop cached decision state when a vehicle leaves the registry.
type Forgetter interface {
	Forget(id string)
}

// StatePool is the subset of *pool.Pool the dispatcher drives: per-vehicle
// state subscription management and command publishing.
type StatePool interface {
	SubscribeState(id string, handler mqttlib.MessageHandler) error
	UnsubscribeState(id string, onAck func(id string)) error
	PublishCommand(id string, payload []byte) error
}

// Dispatcher parses and applies join/state/obituary traffic against a
// Registry, issuing subscribe/unsubscribe calls through a StatePool as
// vehicles join and leave.
type Dispatcher struct {
	registry  *registry.Registry
	pool      StatePool
	logger    *logrus.Logger
	forgetter Forgetter

	// onShutdown is invoked from the obituary handler on every obituary
	// message, if an obituary topic is configured.
	onShutdown func()
}

// New returns a Dispatcher wired to reg and p. onShutdown and forgetter may
// be nil; onShutdown is nil if obituary handling is not configured.
func New(reg *registry.Registry, p StatePool, logger *logrus.Logger, forgetter Forgetter, onShutdown func()) *Dispatcher {
	return &Dispatcher{registry: reg, pool: p, logger: logger, forgetter: forgetter, onShutdown: onShutdown}
}

// vehicleIDFromTopic extracts <id> from base_topic/vehicles/<id>/<kind>.
func vehicleIDFromTopic(topic string) (id string, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", "", false
	}
	kind = parts[len(parts)-1]
	id = parts[len(parts)-2]
	return id, kind, true
}

// OnJoin handles a join/exit message: a non-empty payload is a join (specs
// and initial state); an empty payload is an exit.
func (d *Dispatcher) OnJoin(_ mqttlib.Client, msg mqttlib.Message) {
	id, _, ok := vehicleIDFromTopic(msg.Topic())
	if !ok {
		d.logger.WithField("topic", msg.Topic()).Warn("dispatcher: malformed join topic")
		return
	}
	payload := string(msg.Payload())

	if payload == "" {
		d.handleExit(id)
		return
	}
	d.handleJoin(id, payload)
}

func (d *Dispatcher) handleJoin(id, payload string) {
	if existing := d.registry.Get(id); existing != nil {
		d.logger.WithField("car_id", id).Warn("dispatcher: join for already-registered car, dropping")
		return
	}

	specs, state, err := wire.ParseJoinPayload(payload)
	if err != nil {
		d.logger.WithError(err).WithField("car_id", id).Warn("dispatcher: malformed join payload, dropping")
		return
	}

	v := vehicle.New(id, specs, state)
	if err := d.registry.Insert(v); err != nil {
		d.logger.WithError(err).WithField("car_id", id).Warn("dispatcher: insert failed, dropping")
		return
	}

	if err := d.pool.SubscribeState(id, d.OnState); err != nil {
		d.logger.WithError(err).WithField("car_id", id).Error("dispatcher: failed to subscribe car to state topic")
		d.registry.Remove(id)
		return
	}

	d.logger.WithFields(logrus.Fields{"car_id": id, "lane": state.Lane, "distance": state.DistanceTaken}).
		Info("dispatcher: car joined")
}

// handleExit unsubscribes id's state topic through the pool; the registry
// entry is only removed once the broker acknowledges the unsubscribe, so a
// state message already in flight can't repopulate a half-removed vehicle.
func (d *Dispatcher) handleExit(id string) {
	if d.registry.Get(id) == nil {
		return
	}
	if err := d.pool.UnsubscribeState(id, func(id string) {
		d.registry.Remove(id)
		if d.forgetter != nil {
			d.forgetter.Forget(id)
		}
		d.logger.WithField("car_id", id).Info("dispatcher: car exited")
	}); err != nil {
		d.logger.WithError(err).WithField("car_id", id).Error("dispatcher: unsubscribe failed")
	}
}

// OnState handles a state update for a known car. An update for an unknown
// id is a protocol error: log a warning and drop. This also harmlessly
// absorbs late deliveries that arrive after an unsubscribe has
// been acknowledged but whose in-flight publish had already left the
// broker.
func (d *Dispatcher) OnState(_ mqttlib.Client, msg mqttlib.Message) {
	id, _, ok := vehicleIDFromTopic(msg.Topic())
	if !ok {
		d.logger.WithField("topic", msg.Topic()).Warn("dispatcher: malformed state topic")
		return
	}

	state, err := wire.ParseState(string(msg.Payload()))
	if err != nil {
		d.logger.WithError(err).WithField("car_id", id).Warn("dispatcher: malformed state payload, dropping")
		return
	}

	if !d.registry.Update(id, state.Lane, state.DistanceTaken, state.Speed, state.AccelerationState) {
		d.logger.WithField("car_id", id).Warn("dispatcher: state for unrecognized car, dropping")
	}
}

// OnObituary triggers the configured global shutdown callback, if any.
func (d *Dispatcher) OnObituary(_ mqttlib.Client, _ mqttlib.Message) {
	d.logger.Info("dispatcher: obituary received, initiating shutdown")
	if d.onShutdown != nil {
		d.onShutdown()
	}
}

// Exit is the programmatic equivalent of handleExit, exposed so the reaper
// can evict zombies through the same path a real exit message takes.
func (d *Dispatcher) Exit(id string) {
	d.handleExit(id)
}
