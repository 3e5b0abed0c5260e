package decision

import (
	"github.com/htcs-sim/controller/internal/config"
	"github.com/htcs-sim/controller/internal/registry"
	"github.com/htcs-sim/controller/internal/vehicle"
)

// Decide composes the maneuver predicates with a simple follow-distance/
// speed-maintenance policy into a single command for v, given a registry
// snapshot. Each vehicle is considered locally against its two nearest
// neighbours in the relevant lane only; there is no global optimization
// across the whole highway.
func Decide(v *vehicle.Vehicle, snapshot []*vehicle.Vehicle) vehicle.Command {
	switch v.State.Lane {
	case vehicle.MergeLane:
		if CanMergeIn(v, snapshot) {
			return vehicle.ChangeLane
		}
	case vehicle.TrafficLane:
		if CanOvertake(v, snapshot) && v.State.Speed < v.Specs.PreferredSpeed {
			return vehicle.ChangeLane
		}
	case vehicle.ExpressLane:
		if CanReturnToTrafficLane(v, snapshot) {
			return vehicle.ChangeLane
		}
	}

	return maintainFollowDistance(v, snapshot)
}

// maintainFollowDistance falls back to plain car-following behaviour: brake
// if the gap to whatever is ahead in the same effective lane has closed
// inside the safe follow distance, accelerate while under the preferred
// speed and the road ahead is clear, brake while above the preferred speed,
// otherwise hold.
func maintainFollowDistance(v *vehicle.Vehicle, snapshot []*vehicle.Vehicle) vehicle.Command {
	lane := v.EffectiveLane()
	ahead := registry.NeighbourAhead(snapshot, v, lane)

	if ahead != nil && v.DistanceBetween(ahead) < v.FollowDistance(config.FollowDistanceSafetyFactor) {
		return vehicle.Brake
	}

	if v.State.Speed < v.Specs.PreferredSpeed {
		if ahead == nil || v.DistanceBetween(ahead) > v.FollowDistance(config.FollowDistanceSafetyFactor) {
			return vehicle.Accelerate
		}
	}

	if v.State.Speed > v.Specs.PreferredSpeed {
		return vehicle.Brake
	}

	return vehicle.MaintainSpeed
}
