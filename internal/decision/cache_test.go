package decision

import (
	"testing"

	"github.com/htcs-sim/controller/internal/vehicle"
)

func TestCacheChangedFirstObservationAlwaysTrue(t *testing.T) {
	c := NewCache()
	if !c.Changed("car-1", vehicle.MaintainSpeed) {
		t.Fatal("first observation for an id must report changed")
	}
}

func TestCacheChangedOnlyWhenDifferent(t *testing.T) {
	c := NewCache()
	c.Changed("car-1", vehicle.MaintainSpeed)

	if c.Changed("car-1", vehicle.MaintainSpeed) {
		t.Fatal("repeating the same command must report unchanged")
	}
	if !c.Changed("car-1", vehicle.Accelerate) {
		t.Fatal("a different command must report changed")
	}
}

func TestCacheForgetResetsState(t *testing.T) {
	c := NewCache()
	c.Changed("car-1", vehicle.MaintainSpeed)
	c.Forget("car-1")

	if !c.Changed("car-1", vehicle.MaintainSpeed) {
		t.Fatal("after Forget, the next observation must report changed")
	}
}
