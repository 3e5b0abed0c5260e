// Package registry maintains the position-sorted, concurrency-safe view of
// every tracked vehicle. It is the sole mutable shared structure in the
// controller; a single mutex guards both of its indices.
package registry

import (
	"errors"
	"sync"

	"github.com/htcs-sim/controller/internal/vehicle"
)

// ErrAlreadyExists is returned by Insert when the id is already registered.
var ErrAlreadyExists = errors.New("registry: vehicle already exists")

// Registry is the sorted-by-distance-taken vehicle registry. The zero value
// is not usable; construct with New.
type Registry struct {
	mu         sync.Mutex
	byID       map[string]*vehicle.Vehicle
	byDistance []*vehicle.Vehicle
}

// New returns a ready-to-use, empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*vehicle.Vehicle)}
}

// Insert places v in both indices. It fails if v.ID is already present.
func (r *Registry) Insert(v *vehicle.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[v.ID]; exists {
		return ErrAlreadyExists
	}
	r.byID[v.ID] = v
	r.insertSorted(v)
	return nil
}

// insertSorted places v at the correct position in byDistance. Ties break by
// insertion order (the first index whose distance strictly exceeds v's).
func (r *Registry) insertSorted(v *vehicle.Vehicle) {
	idx := len(r.byDistance)
	for i, other := range r.byDistance {
		if other.State.DistanceTaken > v.State.DistanceTaken {
			idx = i
			break
		}
	}
	r.byDistance = append(r.byDistance, nil)
	copy(r.byDistance[idx+1:], r.byDistance[idx:])
	r.byDistance[idx] = v
}

// Get returns the vehicle for id, or nil if absent.
func (r *Registry) Get(id string) *vehicle.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// Remove deletes id from both indices and returns the removed vehicle, or nil
// if it was not present.
func (r *Registry) Remove(id string) *vehicle.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	for i, other := range r.byDistance {
		if other.ID == id {
			r.byDistance = append(r.byDistance[:i], r.byDistance[i+1:]...)
			break
		}
	}
	return v
}

// Update mutates the stored vehicle's state and repositions it in
// byDistance. Since a car cannot move backwards, at most one rightward
// adjacent swap is performed when its new distance exceeds its successor's;
// this amortises to O(1) per update when arrivals are roughly in-order.
func (r *Registry) Update(id string, lane vehicle.Lane, distance, speed float64, accel vehicle.AccelerationState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byID[id]
	if !ok {
		return false
	}
	v.UpdateState(lane, distance, speed, accel)

	idx := -1
	for i, other := range r.byDistance {
		if other.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return true // should not happen: byID/byDistance out of sync
	}
	if idx < len(r.byDistance)-1 && r.byDistance[idx+1].State.DistanceTaken < v.State.DistanceTaken {
		r.byDistance[idx], r.byDistance[idx+1] = r.byDistance[idx+1], r.byDistance[idx]
	}
	return true
}

// Snapshot returns a point-in-time copy of the ordered view. Callers iterate
// the copy without holding the registry's lock, so long-running predicate
// evaluation never blocks ingestion.
func (r *Registry) Snapshot() []*vehicle.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*vehicle.Vehicle, len(r.byDistance))
	copy(out, r.byDistance)
	return out
}

// Len returns the current number of tracked vehicles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// NeighbourAhead scans a snapshot from v's position toward increasing index,
// returning the first vehicle whose effective lane matches lane.
func NeighbourAhead(snapshot []*vehicle.Vehicle, v *vehicle.Vehicle, lane vehicle.Lane) *vehicle.Vehicle {
	idx := indexOf(snapshot, v)
	if idx < 0 {
		return nil
	}
	for i := idx + 1; i < len(snapshot); i++ {
		if snapshot[i].EffectiveLane() == lane {
			return snapshot[i]
		}
	}
	return nil
}

// NeighbourBehind scans a snapshot from v's position toward decreasing
// index, returning the first vehicle whose effective lane matches lane.
func NeighbourBehind(snapshot []*vehicle.Vehicle, v *vehicle.Vehicle, lane vehicle.Lane) *vehicle.Vehicle {
	idx := indexOf(snapshot, v)
	if idx < 0 {
		return nil
	}
	for i := idx - 1; i >= 0; i-- {
		if snapshot[i].EffectiveLane() == lane {
			return snapshot[i]
		}
	}
	return nil
}

func indexOf(snapshot []*vehicle.Vehicle, v *vehicle.Vehicle) int {
	for i, other := range snapshot {
		if other == v {
			return i
		}
	}
	return -1
}
