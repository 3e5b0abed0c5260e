package registry

import (
	"testing"

	"github.com/htcs-sim/controller/internal/vehicle"
)

func newVehicle(id string, distance float64, lane vehicle.Lane) *vehicle.Vehicle {
	return vehicle.New(id, vehicle.Specs{}, vehicle.State{Lane: lane, DistanceTaken: distance})
}

func assertSorted(t *testing.T, r *Registry) {
	t.Helper()
	snap := r.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].State.DistanceTaken > snap[i].State.DistanceTaken {
			t.Fatalf("by_distance not sorted: %+v", snap)
		}
	}
}

func TestInsertGetRemove(t *testing.T) {
	r := New()
	v := newVehicle("A", 10, vehicle.TrafficLane)

	if err := r.Insert(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Get("A"); got != v {
		t.Fatalf("Get(A) = %v, want %v", got, v)
	}
	if err := r.Insert(v); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got := r.Remove("A"); got != v {
		t.Fatalf("Remove(A) = %v, want %v", got, v)
	}
	if got := r.Get("A"); got != nil {
		t.Fatalf("Get(A) after remove = %v, want nil", got)
	}
}

// Sort maintenance: insert A(0), B(20); update A to 30; by_distance
// becomes [B, A] after a single swap.
func TestSortMaintenance(t *testing.T) {
	r := New()
	a := newVehicle("A", 0, vehicle.TrafficLane)
	b := newVehicle("B", 20, vehicle.TrafficLane)

	if err := r.Insert(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert(b); err != nil {
		t.Fatal(err)
	}
	assertSorted(t, r)

	if !r.Update("A", vehicle.TrafficLane, 30, 5, vehicle.Maintaining) {
		t.Fatal("Update(A) returned false")
	}

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].ID != "B" || snap[1].ID != "A" {
		t.Fatalf("unexpected order after update: %v, %v", snap[0].ID, snap[1].ID)
	}
	assertSorted(t, r)
}

// by_id and by_distance must always reference the same set of vehicles.
func TestMembershipInvariant(t *testing.T) {
	r := New()
	ids := []string{"A", "B", "C", "D"}
	for i, id := range ids {
		if err := r.Insert(newVehicle(id, float64(i*10), vehicle.TrafficLane)); err != nil {
			t.Fatal(err)
		}
	}
	r.Remove("B")
	r.Update("C", vehicle.TrafficLane, 1000, 1, vehicle.Maintaining)

	snap := r.Snapshot()
	seen := make(map[string]bool, len(snap))
	for _, v := range snap {
		seen[v.ID] = true
	}
	for _, id := range []string{"A", "C", "D"} {
		if !seen[id] {
			t.Errorf("expected %s in by_distance snapshot", id)
		}
		if r.Get(id) == nil {
			t.Errorf("expected %s in by_id", id)
		}
	}
	if seen["B"] {
		t.Error("B should have been removed from by_distance")
	}
	if r.Get("B") != nil {
		t.Error("B should have been removed from by_id")
	}
	assertSorted(t, r)
}

func TestNeighbourAheadBehind(t *testing.T) {
	r := New()
	a := newVehicle("A", 0, vehicle.TrafficLane)
	b := newVehicle("B", 10, vehicle.ExpressLane)
	c := newVehicle("C", 20, vehicle.TrafficLane)

	for _, v := range []*vehicle.Vehicle{a, b, c} {
		if err := r.Insert(v); err != nil {
			t.Fatal(err)
		}
	}

	snap := r.Snapshot()

	if got := NeighbourAhead(snap, a, vehicle.TrafficLane); got != c {
		t.Fatalf("NeighbourAhead(A, TRAFFIC) = %v, want C", got)
	}
	if got := NeighbourAhead(snap, a, vehicle.ExpressLane); got != b {
		t.Fatalf("NeighbourAhead(A, EXPRESS) = %v, want B", got)
	}
	if got := NeighbourBehind(snap, c, vehicle.TrafficLane); got != a {
		t.Fatalf("NeighbourBehind(C, TRAFFIC) = %v, want A", got)
	}
	if got := NeighbourBehind(snap, a, vehicle.TrafficLane); got != nil {
		t.Fatalf("NeighbourBehind(A, TRAFFIC) = %v, want nil", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	r := New()
	if r.Update("ghost", vehicle.TrafficLane, 0, 0, vehicle.Maintaining) {
		t.Fatal("Update on unknown id should return false")
	}
}
