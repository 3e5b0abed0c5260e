package dispatcher

import (
	"io"
	"testing"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/registry"
)

// fakeMessage implements mqttlib.Message with a fixed topic and payload.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakePool records subscribe/unsubscribe/publish calls without touching a
// real broker.
type fakePool struct {
	subscribed   map[string]mqttlib.MessageHandler
	unsubscribed []string
	published    map[string][]byte
	failSubscribe bool
}

func newFakePool() *fakePool {
	return &fakePool{
		subscribed: make(map[string]mqttlib.MessageHandler),
		published:  make(map[string][]byte),
	}
}

func (p *fakePool) SubscribeState(id string, handler mqttlib.MessageHandler) error {
	if p.failSubscribe {
		return errFake
	}
	p.subscribed[id] = handler
	return nil
}

func (p *fakePool) UnsubscribeState(id string, onAck func(id string)) error {
	p.unsubscribed = append(p.unsubscribed, id)
	delete(p.subscribed, id)
	if onAck != nil {
		onAck(id)
	}
	return nil
}

func (p *fakePool) PublishCommand(id string, payload []byte) error {
	p.published[id] = payload
	return nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errFake = fakeErr("fake subscribe failure")

type fakeForgetter struct {
	forgotten []string
}

func (f *fakeForgetter) Forget(id string) {
	f.forgotten = append(f.forgotten, id)
}

func newTestDispatcher() (*Dispatcher, *registry.Registry, *fakePool, *fakeForgetter) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := registry.New()
	p := newFakePool()
	f := &fakeForgetter{}
	d := New(reg, p, logger, f, nil)
	return d, reg, p, f
}

// Join/state/exit round trip: a join registers the car and subscribes its
// state topic; a state update repositions it; an exit unsubscribes and
// removes it from the registry.
func TestJoinStateExitRoundTrip(t *testing.T) {
	d, reg, p, f := newTestDispatcher()

	d.OnJoin(nil, fakeMessage{
		topic:   "htcs/vehicles/car-1/join",
		payload: []byte("(50,120,5,5,4)|(1,0,0,0)"),
	})

	if reg.Get("car-1") == nil {
		t.Fatal("expected car-1 to be registered after join")
	}
	if _, ok := p.subscribed["car-1"]; !ok {
		t.Fatal("expected car-1 to be subscribed after join")
	}

	d.OnState(nil, fakeMessage{
		topic:   "htcs/vehicles/car-1/state",
		payload: []byte("(1,30,10,1)"),
	})
	if got := reg.Get("car-1").State.DistanceTaken; got != 30 {
		t.Fatalf("distance after state update = %v, want 30", got)
	}

	d.OnJoin(nil, fakeMessage{topic: "htcs/vehicles/car-1/join", payload: nil})
	if reg.Get("car-1") != nil {
		t.Fatal("expected car-1 to be removed after exit")
	}
	if len(p.unsubscribed) != 1 || p.unsubscribed[0] != "car-1" {
		t.Fatalf("unsubscribed = %v, want [car-1]", p.unsubscribed)
	}
	if len(f.forgotten) != 1 || f.forgotten[0] != "car-1" {
		t.Fatalf("forgotten = %v, want [car-1]", f.forgotten)
	}
}

// A duplicate join for an already-registered id is dropped, not applied.
func TestDuplicateJoinIgnored(t *testing.T) {
	d, reg, _, _ := newTestDispatcher()

	join := fakeMessage{topic: "htcs/vehicles/car-1/join", payload: []byte("(50,120,5,5,4)|(1,0,0,0)")}
	d.OnJoin(nil, join)
	first := reg.Get("car-1")

	d.OnJoin(nil, fakeMessage{
		topic:   "htcs/vehicles/car-1/join",
		payload: []byte("(99,99,9,9,9)|(3,999,99,1)"),
	})

	if reg.Get("car-1") != first {
		t.Fatal("expected duplicate join to be dropped, not applied")
	}
	if reg.Get("car-1").State.DistanceTaken != 0 {
		t.Fatal("duplicate join must not overwrite existing state")
	}
}

func TestStateForUnknownCarIsDropped(t *testing.T) {
	d, reg, _, _ := newTestDispatcher()
	d.OnState(nil, fakeMessage{topic: "htcs/vehicles/ghost/state", payload: []byte("(1,30,10,1)")})
	if reg.Get("ghost") != nil {
		t.Fatal("state for an unknown car must not create a registry entry")
	}
}

func TestMalformedJoinTopicDropped(t *testing.T) {
	d, reg, _, _ := newTestDispatcher()
	d.OnJoin(nil, fakeMessage{topic: "malformed", payload: []byte("x")})
	if reg.Len() != 0 {
		t.Fatal("malformed topic should not register a car")
	}
}

func TestObituaryTriggersShutdown(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	reg := registry.New()
	p := newFakePool()

	called := false
	d := New(reg, p, logger, nil, func() { called = true })
	d.OnObituary(nil, fakeMessage{topic: "htcs/obituary"})
	if !called {
		t.Fatal("expected onShutdown to be invoked")
	}
}
