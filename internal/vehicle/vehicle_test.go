package vehicle

import (
	"math"
	"testing"
)

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Follow distance is the stopping distance scaled linearly by the safety factor.
func TestFollowDistance(t *testing.T) {
	v := &Vehicle{Specs: Specs{BrakingPower: 10}, State: State{Speed: 20}}

	if got := v.FollowDistance(1.0); !nearlyEqual(got, 20) {
		t.Fatalf("FollowDistance(1.0) = %v, want 20", got)
	}
	if got := v.FollowDistance(1.3); !nearlyEqual(got, 26) {
		t.Fatalf("FollowDistance(1.3) = %v, want 26", got)
	}
}

func TestEffectiveLane(t *testing.T) {
	cases := []struct {
		lane Lane
		want Lane
	}{
		{MergeLane, MergeLane},
		{MergeToTraffic, TrafficLane},
		{TrafficLane, TrafficLane},
		{TrafficToExpress, ExpressLane},
		{ExpressToTraffic, TrafficLane},
		{ExpressLane, ExpressLane},
	}
	for _, c := range cases {
		v := &Vehicle{State: State{Lane: c.lane}}
		if got := v.EffectiveLane(); got != c.want {
			t.Errorf("EffectiveLane(%v) = %v, want %v", c.lane, got, c.want)
		}
	}
}

// TimeToSpeed uses the correct parenthesisation: (target - speed) / accel,
// not the division-only-on-speed form that a stray precedence error would
// produce.
func TestTimeToSpeedCorrectedPrecedence(t *testing.T) {
	v := &Vehicle{
		Specs: Specs{Acceleration: 5, BrakingPower: 10},
		State: State{Speed: 10},
	}

	got := v.TimeToSpeed(20)
	want := (20.0 - 10.0) / 5.0
	if !nearlyEqual(got, want) {
		t.Fatalf("TimeToSpeed(20) = %v, want %v", got, want)
	}

	buggy := 20.0 - 10.0/5.0
	if nearlyEqual(got, buggy) {
		t.Fatalf("TimeToSpeed used the wrong operator precedence: got %v", got)
	}
}

func TestDistanceWhileReachingSpeed(t *testing.T) {
	v := &Vehicle{
		Specs: Specs{Acceleration: 2, BrakingPower: 4},
		State: State{Speed: 10},
	}

	// Accelerating case: target above current speed.
	got := v.DistanceWhileReachingSpeed(20)
	want := (20.0 + 10.0) / 2 * (20.0 - 10.0) / 2.0
	if !nearlyEqual(got, want) {
		t.Fatalf("accelerating case = %v, want %v", got, want)
	}

	// Braking case: target below current speed.
	got = v.DistanceWhileReachingSpeed(5)
	want = (5.0 + 10.0) / 2 * (10.0 - 5.0) / 4.0
	if !nearlyEqual(got, want) {
		t.Fatalf("braking case = %v, want %v", got, want)
	}
}

func TestCommandByte(t *testing.T) {
	cases := map[Command]byte{
		MaintainSpeed: '0',
		Accelerate:    '1',
		Brake:         '2',
		ChangeLane:    '3',
		Terminate:     '4',
	}
	for cmd, want := range cases {
		if got := cmd.Byte(); got != want {
			t.Errorf("%v.Byte() = %c, want %c", cmd, got, want)
		}
	}
}

func TestNewSetsLaneWhenLastCommand(t *testing.T) {
	v := New("A", Specs{}, State{Lane: TrafficLane})
	if v.State.LaneWhenLastCommand != TrafficLane {
		t.Fatalf("LaneWhenLastCommand = %v, want %v", v.State.LaneWhenLastCommand, TrafficLane)
	}
}
