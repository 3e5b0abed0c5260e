// Package wire implements a deterministic parser for the parenthesised,
// comma-separated tuple payloads carried on join/state topics.
package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/htcs-sim/controller/internal/vehicle"
)

// ErrProtocol marks a malformed payload. Callers treat it as a protocol
// error: log a warning and drop the message, never abort.
type ErrProtocol struct {
	Payload string
	Reason  string
}

func (e *ErrProtocol) Error() string {
	return fmt.Sprintf("protocol error: %s (payload=%q)", e.Reason, e.Payload)
}

// splitTuple strips the surrounding parentheses from a "(a, b, c)" literal
// and returns its comma-separated fields.
func splitTuple(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, &ErrProtocol{Payload: s, Reason: "missing enclosing parentheses"}
	}
	inner := s[1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return nil, &ErrProtocol{Payload: s, Reason: "empty tuple"}
	}
	fields := strings.Split(inner, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields, nil
}

func parseFloat(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ErrProtocol{Payload: s, Reason: fmt.Sprintf("field %q: not a number", field)}
	}
	return v, nil
}

func parseInt(s, field string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ErrProtocol{Payload: s, Reason: fmt.Sprintf("field %q: not an integer", field)}
	}
	return v, nil
}

// ParseSpecs parses a "(preferred_speed, max_speed, acceleration,
// braking_power, size)" tuple.
func ParseSpecs(s string) (vehicle.Specs, error) {
	fields, err := splitTuple(s)
	if err != nil {
		return vehicle.Specs{}, err
	}
	if len(fields) != 5 {
		return vehicle.Specs{}, &ErrProtocol{Payload: s, Reason: fmt.Sprintf("expected 5 fields, got %d", len(fields))}
	}

	preferred, err := parseFloat(fields[0], "preferred_speed")
	if err != nil {
		return vehicle.Specs{}, err
	}
	maxSpeed, err := parseFloat(fields[1], "max_speed")
	if err != nil {
		return vehicle.Specs{}, err
	}
	accel, err := parseFloat(fields[2], "acceleration")
	if err != nil {
		return vehicle.Specs{}, err
	}
	brake, err := parseFloat(fields[3], "braking_power")
	if err != nil {
		return vehicle.Specs{}, err
	}
	size, err := parseFloat(fields[4], "size")
	if err != nil {
		return vehicle.Specs{}, err
	}

	return vehicle.Specs{
		PreferredSpeed: preferred,
		MaxSpeed:       maxSpeed,
		Acceleration:   accel,
		BrakingPower:   brake,
		Size:           size,
	}, nil
}

// ParseState parses a "(lane, distance_taken, speed, acceleration_state)"
// tuple.
func ParseState(s string) (vehicle.State, error) {
	fields, err := splitTuple(s)
	if err != nil {
		return vehicle.State{}, err
	}
	if len(fields) != 4 {
		return vehicle.State{}, &ErrProtocol{Payload: s, Reason: fmt.Sprintf("expected 4 fields, got %d", len(fields))}
	}

	lane, err := parseInt(fields[0], "lane")
	if err != nil {
		return vehicle.State{}, err
	}
	if lane < int(vehicle.MergeLane) || lane > int(vehicle.ExpressLane) {
		return vehicle.State{}, &ErrProtocol{Payload: s, Reason: "lane out of range"}
	}
	distance, err := parseFloat(fields[1], "distance_taken")
	if err != nil {
		return vehicle.State{}, err
	}
	speed, err := parseFloat(fields[2], "speed")
	if err != nil {
		return vehicle.State{}, err
	}
	accelState, err := parseInt(fields[3], "acceleration_state")
	if err != nil {
		return vehicle.State{}, err
	}
	if accelState < int(vehicle.Maintaining) || accelState > int(vehicle.Braking) {
		return vehicle.State{}, &ErrProtocol{Payload: s, Reason: "acceleration_state out of range"}
	}

	return vehicle.State{
		Lane:              vehicle.Lane(lane),
		DistanceTaken:     distance,
		Speed:             speed,
		AccelerationState: vehicle.AccelerationState(accelState),
	}, nil
}

// ParseJoinPayload parses a non-empty join payload of the form
// "<specs>|<state>".
func ParseJoinPayload(payload string) (vehicle.Specs, vehicle.State, error) {
	parts := strings.SplitN(payload, "|", 2)
	if len(parts) != 2 {
		return vehicle.Specs{}, vehicle.State{}, &ErrProtocol{Payload: payload, Reason: "expected '<specs>|<state>'"}
	}
	specs, err := ParseSpecs(parts[0])
	if err != nil {
		return vehicle.Specs{}, vehicle.State{}, err
	}
	state, err := ParseState(parts[1])
	if err != nil {
		return vehicle.Specs{}, vehicle.State{}, err
	}
	return specs, state, nil
}
