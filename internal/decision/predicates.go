// Package decision implements the kinematic lane-maneuver predicates and the
// command-emission policy that composes them. The predicates are ported
// bit-for-bit from the source controller's Car/DetailedCarTracker methods;
// see DESIGN.md for the one corrected operator-precedence bug
// (vehicle.Vehicle.TimeToSpeed) and the two retained asymmetries (the
// unexplained 2.0 overtake-ahead safety factor, and can_merge_in's extra
// factor of 2 on its behind-check).
package decision

import (
	"github.com/htcs-sim/controller/internal/config"
	"github.com/htcs-sim/controller/internal/registry"
	"github.com/htcs-sim/controller/internal/vehicle"
)

// CanOvertake reports whether v, currently in the raw traffic lane, may move
// into the express lane. Consults at most one express-lane vehicle ahead
// and one behind, from snapshot.
func CanOvertake(v *vehicle.Vehicle, snapshot []*vehicle.Vehicle) bool {
	if v.State.Lane != vehicle.TrafficLane {
		return false
	}

	ahead := registry.NeighbourAhead(snapshot, v, vehicle.ExpressLane)
	if ahead != nil {
		if ahead.State.Speed > v.State.Speed {
			if ahead.State.DistanceTaken-ahead.Specs.Size < v.State.DistanceTaken {
				return false
			}
		} else if v.MatchSpeedDistanceChange(ahead, config.OvertakeMatchSpeedSafetyFactor) > v.DistanceBetween(ahead) {
			return false
		}
	}

	behind := registry.NeighbourBehind(snapshot, v, vehicle.ExpressLane)
	if behind != nil && behind.State.Speed > v.State.Speed &&
		behind.MatchSpeedDistanceChange(v, config.OvertakeMatchSpeedSafetyFactor) > behind.DistanceBetween(v) {
		return false
	}

	return true
}

// CanMergeIn reports whether v, currently in the merge lane at or above 70%
// of its preferred speed, may move into the traffic lane.
func CanMergeIn(v *vehicle.Vehicle, snapshot []*vehicle.Vehicle) bool {
	if v.State.Lane != vehicle.MergeLane {
		return false
	}
	if v.State.Speed < config.MergeInMinSpeedFraction*v.Specs.PreferredSpeed {
		return false
	}

	ahead := registry.NeighbourAhead(snapshot, v, vehicle.TrafficLane)
	if ahead != nil {
		if ahead.State.Speed > v.State.Speed {
			if ahead.State.DistanceTaken-ahead.Specs.Size < v.State.DistanceTaken {
				return false
			}
		} else if v.MatchSpeedDistanceChange(ahead, config.MergeInMatchSpeedSafetyFactor) > ahead.State.DistanceTaken-v.State.DistanceTaken {
			return false
		}
	}

	behind := registry.NeighbourBehind(snapshot, v, vehicle.TrafficLane)
	if behind != nil && behind.State.Speed > v.State.Speed &&
		behind.MatchSpeedDistanceChange(v, config.MergeInMatchSpeedSafetyFactor)*config.MergeInBehindSafetyFactor > v.State.DistanceTaken-behind.State.DistanceTaken {
		return false
	}

	return true
}

// CanReturnToTrafficLane reports whether v, currently in the express lane at
// or above its preferred speed, may move back into the traffic lane.
func CanReturnToTrafficLane(v *vehicle.Vehicle, snapshot []*vehicle.Vehicle) bool {
	if v.State.Lane != vehicle.ExpressLane {
		return false
	}
	if v.State.Speed < v.Specs.PreferredSpeed {
		return false
	}

	behind := registry.NeighbourBehind(snapshot, v, vehicle.TrafficLane)
	if behind != nil && behind.State.DistanceTaken+config.ReturnToTrafficMinGapM > v.State.DistanceTaken {
		return false
	}

	ahead := registry.NeighbourAhead(snapshot, v, vehicle.TrafficLane)
	if ahead != nil && ahead.State.Speed < v.Specs.PreferredSpeed &&
		ahead.State.DistanceTaken-v.State.DistanceTaken < v.FollowDistance(config.ReturnToTrafficFollowSafetyFactor) {
		return false
	}

	return true
}
