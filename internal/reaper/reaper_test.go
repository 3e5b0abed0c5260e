package reaper

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/registry"
	"github.com/htcs-sim/controller/internal/vehicle"
)

type fakeExiter struct {
	exited []string
}

func (f *fakeExiter) Exit(id string) {
	f.exited = append(f.exited, id)
}

type fakeRecorder struct {
	reaped int
}

func (f *fakeRecorder) IncReaped() { f.reaped++ }

func newVehicleAt(id string, distance float64, lastUpdate time.Time) *vehicle.Vehicle {
	v := vehicle.New(id, vehicle.Specs{}, vehicle.State{DistanceTaken: distance})
	v.State.LastUpdateTimestamp = lastUpdate
	return v
}

// Zombie reap: a vehicle whose last update is older than the threshold is
// evicted through Exiter; a fresh vehicle is left alone.
func TestSweepEvictsOnlyZombies(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := registry.New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	zombie := newVehicleAt("zombie", 0, now.Add(-10*time.Second))
	fresh := newVehicleAt("fresh", 10, now.Add(-1*time.Second))
	if err := reg.Insert(zombie); err != nil {
		t.Fatal(err)
	}
	if err := reg.Insert(fresh); err != nil {
		t.Fatal(err)
	}

	exiter := &fakeExiter{}
	rec := &fakeRecorder{}
	r := New(reg, exiter, logger, rec).WithInterval(time.Second, 5*time.Second)
	r.now = func() time.Time { return now }

	r.sweep()

	if len(exiter.exited) != 1 || exiter.exited[0] != "zombie" {
		t.Fatalf("exited = %v, want [zombie]", exiter.exited)
	}
	if rec.reaped != 1 {
		t.Fatalf("reaped count = %d, want 1", rec.reaped)
	}
}

// No vehicle with now - last_update < threshold is ever evicted.
func TestSweepNeverEvictsWithinThreshold(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := registry.New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v := newVehicleAt("car-1", 0, now.Add(-4*time.Second))
	if err := reg.Insert(v); err != nil {
		t.Fatal(err)
	}

	exiter := &fakeExiter{}
	r := New(reg, exiter, logger, nil).WithInterval(time.Second, 5*time.Second)
	r.now = func() time.Time { return now }

	r.sweep()

	if len(exiter.exited) != 0 {
		t.Fatalf("expected no evictions, got %v", exiter.exited)
	}
}

func TestSweepWithNilRecorderDoesNotPanic(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := registry.New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v := newVehicleAt("car-1", 0, now.Add(-10*time.Second))
	if err := reg.Insert(v); err != nil {
		t.Fatal(err)
	}

	exiter := &fakeExiter{}
	r := New(reg, exiter, logger, nil).WithInterval(time.Second, 5*time.Second)
	r.now = func() time.Time { return now }

	r.sweep()

	if len(exiter.exited) != 1 {
		t.Fatalf("expected one eviction, got %v", exiter.exited)
	}
}
