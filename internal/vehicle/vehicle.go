// Package vehicle models a single tracked car: its immutable specs, its
// mutable kinematic state, and the derived quantities the decision engine
// consults (follow distance, time/distance to a target speed).
package vehicle

import "time"

// Lane is the raw, wire-level lane code. Three of the six values are
// transient (in the middle of a lane change). The predicates gate on the
// vehicle's own raw lane, but neighbour lookups match on EffectiveLane().
type Lane int

const (
	MergeLane        Lane = 0
	MergeToTraffic   Lane = 1
	TrafficLane      Lane = 2
	TrafficToExpress Lane = 3
	ExpressToTraffic Lane = 4
	ExpressLane      Lane = 5
)

func (l Lane) String() string {
	switch l {
	case MergeLane:
		return "MERGE_LANE"
	case MergeToTraffic:
		return "MERGE_TO_TRAFFIC"
	case TrafficLane:
		return "TRAFFIC_LANE"
	case TrafficToExpress:
		return "TRAFFIC_TO_EXPRESS"
	case ExpressToTraffic:
		return "EXPRESS_TO_TRAFFIC"
	case ExpressLane:
		return "EXPRESS_LANE"
	default:
		return "UNKNOWN_LANE"
	}
}

// effectiveLanes collapses the three transient lanes onto the stable lane a
// car is kinematically occupying. Indexed by raw Lane value.
var effectiveLanes = [6]Lane{MergeLane, TrafficLane, TrafficLane, ExpressLane, TrafficLane, ExpressLane}

// AccelerationState is the simulator-reported throttle/brake state.
type AccelerationState int

const (
	Maintaining  AccelerationState = 0
	Accelerating AccelerationState = 1
	Braking      AccelerationState = 2
)

func (a AccelerationState) String() string {
	switch a {
	case Maintaining:
		return "MAINTAINING"
	case Accelerating:
		return "ACCELERATING"
	case Braking:
		return "BRAKING"
	default:
		return "UNKNOWN_ACCEL_STATE"
	}
}

// Command is published back to a vehicle's command topic as a single ASCII
// decimal digit.
type Command int

const (
	MaintainSpeed Command = 0
	Accelerate    Command = 1
	Brake         Command = 2
	ChangeLane    Command = 3
	Terminate     Command = 4
)

func (c Command) String() string {
	switch c {
	case MaintainSpeed:
		return "MAINTAIN_SPEED"
	case Accelerate:
		return "ACCELERATE"
	case Brake:
		return "BRAKE"
	case ChangeLane:
		return "CHANGE_LANE"
	case Terminate:
		return "TERMINATE"
	default:
		return "UNKNOWN_COMMAND"
	}
}

// Byte returns the wire representation: a single ASCII decimal digit.
func (c Command) Byte() byte { return byte('0' + c) }

// Specs are the car's immutable physical parameters, all SI units.
type Specs struct {
	PreferredSpeed float64 // m/s
	MaxSpeed       float64 // m/s
	Acceleration   float64 // m/s^2
	BrakingPower   float64 // m/s^2
	Size           float64 // m
}

// IsTruck reports whether the car's size crosses the truck threshold. Purely
// informational, consulted by nothing in this package.
func (s Specs) IsTruck() bool { return s.Size > 7.5 }

// State is the car's mutable kinematic state, as last reported on its state
// topic.
type State struct {
	Lane                Lane
	DistanceTaken       float64
	Speed               float64
	AccelerationState   AccelerationState
	LastUpdateTimestamp time.Time
	LastCommand         *Command
	LaneWhenLastCommand Lane
}

// Vehicle is a tracked car: a stable id, its specs, and its current state.
type Vehicle struct {
	ID    string
	Specs Specs
	State State
}

// New constructs a Vehicle from parsed specs and initial state. The
// lane-when-last-command snapshot starts equal to the initial lane.
func New(id string, specs Specs, state State) *Vehicle {
	state.LaneWhenLastCommand = state.Lane
	state.LastUpdateTimestamp = time.Now()
	return &Vehicle{ID: id, Specs: specs, State: state}
}

// UpdateState overwrites the mutable fields carried by a state message and
// bumps the liveness timestamp. Command bookkeeping is left untouched; it is
// only mutated when the decision engine actually issues a command.
func (v *Vehicle) UpdateState(lane Lane, distance, speed float64, accel AccelerationState) {
	v.State.Lane = lane
	v.State.DistanceTaken = distance
	v.State.Speed = speed
	v.State.AccelerationState = accel
	v.State.LastUpdateTimestamp = time.Now()
}

// RecordCommand snapshots the lane the vehicle was in when a command was
// issued, used by callers that want to detect a lane change in progress.
func (v *Vehicle) RecordCommand(c Command) {
	v.State.LastCommand = &c
	v.State.LaneWhenLastCommand = v.State.Lane
}

// EffectiveLane collapses transient lanes to the stable lane the car is
// kinematically occupying.
func (v *Vehicle) EffectiveLane() Lane {
	return effectiveLanes[v.State.Lane]
}

// SignedDistanceBetween returns other's position minus v's; positive means
// other is ahead.
func (v *Vehicle) SignedDistanceBetween(other *Vehicle) float64 {
	if other == nil {
		return 0
	}
	return other.State.DistanceTaken - v.State.DistanceTaken
}

// DistanceBetween is the unsigned gap between v and other.
func (v *Vehicle) DistanceBetween(other *Vehicle) float64 {
	d := v.State.DistanceTaken - other.State.DistanceTaken
	if d < 0 {
		return -d
	}
	return d
}

// FollowDistance is the distance travelled while coming to a full stop from
// the current speed, scaled by safetyFactor. Default safety factor is 1.0.
func (v *Vehicle) FollowDistance(safetyFactor float64) float64 {
	d := (v.State.Speed / 2.0) * (v.State.Speed / v.Specs.BrakingPower)
	return safetyFactor * d
}

// DistanceWhileReachingSpeed is the distance travelled while accelerating or
// braking from the current speed to targetSpeed (area under the trapezoid of
// speed over time).
func (v *Vehicle) DistanceWhileReachingSpeed(targetSpeed float64) float64 {
	if v.State.Speed < targetSpeed {
		return (targetSpeed + v.State.Speed) / 2 * (targetSpeed - v.State.Speed) / v.Specs.Acceleration
	}
	return (targetSpeed + v.State.Speed) / 2 * (v.State.Speed - targetSpeed) / v.Specs.BrakingPower
}

// TimeToSpeed is the time needed to reach targetSpeed from the current speed.
//
// The source this was ported from computes this with a precedence bug:
// `target_speed - self.speed / accel` instead of
// `(target_speed - self.speed) / accel`. This implementation uses the
// mathematically correct parenthesisation; see DESIGN.md for the divergence.
func (v *Vehicle) TimeToSpeed(targetSpeed float64) float64 {
	if v.State.Speed < targetSpeed {
		return (targetSpeed - v.State.Speed) / v.Specs.Acceleration
	}
	return (v.State.Speed - targetSpeed) / v.Specs.BrakingPower
}

// MatchSpeedDistanceChange returns how much closer v gets to other while v
// matches other's speed: v's own travelled distance minus the distance other
// covers over that same interval, scaled by safetyFactor.
func (v *Vehicle) MatchSpeedDistanceChange(other *Vehicle, safetyFactor float64) float64 {
	selfTravelled := v.DistanceWhileReachingSpeed(other.State.Speed)
	otherTravelled := v.TimeToSpeed(other.State.Speed) * other.State.Speed
	return safetyFactor * (selfTravelled - otherTravelled)
}
