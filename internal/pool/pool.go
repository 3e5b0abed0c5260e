package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/config"
)

// stateShard owns one state connection and the bookkeeping of which car ids
// are subscribed on it. The car_id -> pending_mid map is written from the
// control connection's join callback (subscribe) and from whichever
// goroutine drives an exit (unsubscribe, including the reaper), and read by
// ownerOf's scans; mu guards every access.
type stateShard struct {
	conn *Conn

	mu      sync.Mutex
	pending map[string]uint64 // car_id -> pending unsubscribe mid; 0 means actively subscribed
}

// Pool is the fixed fan-out of N state connections plus one control
// connection. The control connection carries join/obituary traffic; state
// connections are assigned round-robin at subscription time and never
// rebalanced.
type Pool struct {
	cfg    *config.Config
	logger *logrus.Logger

	control *Conn
	shards  []*stateShard

	// rrCounter is the round-robin placement counter. It is mutated only
	// from the control client's join callback (a single goroutine), so it
	// needs no lock of its own; it is declared atomic purely so that it
	// can be read from another goroutine without a race.
	rrCounter atomic.Uint64

	// nextMid generates synthetic pending-unsubscribe ids. paho's
	// synchronous Token API resolves an unsubscribe before Unsubscribe
	// returns, so there is no real async ack to key off of; this counter
	// preserves the pending-mid bookkeeping so IsPendingUnsubscribe still
	// has something meaningful to check during the call.
	nextMid atomic.Uint64
}

// Dial establishes the control connection and N state connections.
func Dial(cfg *config.Config, logger *logrus.Logger) (*Pool, error) {
	control, err := dial(cfg.Address, "htcs-controller-control", cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("pool: control connection: %w", err)
	}

	shards := make([]*stateShard, cfg.StateClientPoolSize)
	for i := range shards {
		conn, err := dial(cfg.Address, fmt.Sprintf("htcs-controller-state-%d", i), cfg, logger)
		if err != nil {
			control.Disconnect(0)
			for j := 0; j < i; j++ {
				shards[j].conn.Disconnect(0)
			}
			return nil, fmt.Errorf("pool: state connection %d: %w", i, err)
		}
		shards[i] = &stateShard{conn: conn, pending: make(map[string]uint64)}
	}

	return &Pool{cfg: cfg, logger: logger, control: control, shards: shards}, nil
}

// SubscribeControl wires the control connection's two wildcard topics: the
// per-vehicle join topic and, if obituaryHandler is non-nil, the optional
// global shutdown topic.
func (p *Pool) SubscribeControl(joinHandler, obituaryHandler mqttlib.MessageHandler) error {
	if err := p.control.Subscribe(p.cfg.JoinTopic(), p.cfg.QualityOfService, joinHandler); err != nil {
		return err
	}
	if obituaryHandler != nil {
		if err := p.control.Subscribe(p.cfg.ObituaryTopic(), p.cfg.QualityOfService, obituaryHandler); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeState assigns the next state connection to id by a process-wide
// round-robin counter and issues the subscription. Placement is permanent:
// the id is never moved to a different shard for the lifetime of its
// subscription.
func (p *Pool) SubscribeState(id string, handler mqttlib.MessageHandler) error {
	n := uint64(len(p.shards))
	idx := p.rrCounter.Add(1) - 1
	shard := p.shards[idx%n]

	if err := shard.conn.Subscribe(p.cfg.StateTopic(id), p.cfg.QualityOfService, handler); err != nil {
		return err
	}

	shard.mu.Lock()
	shard.pending[id] = 0
	shard.mu.Unlock()
	return nil
}

// UnsubscribeState finds the shard owning id, issues the unsubscribe, and
// invokes onAck once the broker has acknowledged it. Until onAck fires, the
// registry entry for id must remain in place so that any state message still
// in flight from the broker is routed to a known (if doomed) vehicle rather
// than logged as an unknown-id protocol error.
func (p *Pool) UnsubscribeState(id string, onAck func(id string)) error {
	shard := p.ownerOf(id)
	if shard == nil {
		return fmt.Errorf("pool: no shard owns car %q", id)
	}

	mid := p.nextMid.Add(1)
	shard.mu.Lock()
	shard.pending[id] = mid
	shard.mu.Unlock()

	if err := shard.conn.Unsubscribe(p.cfg.StateTopic(id)); err != nil {
		return err
	}

	shard.mu.Lock()
	delete(shard.pending, id)
	shard.mu.Unlock()

	if onAck != nil {
		onAck(id)
	}
	return nil
}

// ownerOf does a linear scan over every shard to find which one owns id.
func (p *Pool) ownerOf(id string) *stateShard {
	for _, shard := range p.shards {
		shard.mu.Lock()
		_, ok := shard.pending[id]
		shard.mu.Unlock()
		if ok {
			return shard
		}
	}
	return nil
}

// IsPendingUnsubscribe reports whether id has an unsubscribe in flight
// (non-zero pending mid) on whichever shard owns it.
func (p *Pool) IsPendingUnsubscribe(id string) bool {
	shard := p.ownerOf(id)
	if shard == nil {
		return false
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.pending[id] != 0
}

// PublishCommand publishes a command payload to id's command topic over the
// control connection.
func (p *Pool) PublishCommand(id string, payload []byte) error {
	return p.control.Publish(p.cfg.CommandTopic(id), p.cfg.QualityOfService, payload)
}

// Shutdown disconnects every connection in the pool. In-flight unsubscribes
// are abandoned, not awaited.
func (p *Pool) Shutdown() {
	p.control.Disconnect(0)
	for _, shard := range p.shards {
		shard.conn.Disconnect(0)
	}
}

// ShardCounts returns, for testing/observability, the number of actively
// subscribed (non-pending) car ids per shard — used to assert round-robin
// fairness across connections.
func (p *Pool) ShardCounts() []int {
	counts := make([]int, len(p.shards))
	for i, shard := range p.shards {
		shard.mu.Lock()
		for _, mid := range shard.pending {
			if mid == 0 {
				counts[i]++
			}
		}
		shard.mu.Unlock()
	}
	return counts
}
