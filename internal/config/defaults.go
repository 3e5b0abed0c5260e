package config

import "time"

// Central place for all application-wide timing constants and decision
// safety factors. Changing a value here immediately affects all components
// that import github.com/htcs-sim/controller/internal/config.

const (
	// Reaper
	ReapInterval  = 5 * time.Second // how often the reaper sweeps the registry
	ReapThreshold = 5 * time.Second // zombie cutoff: last_update older than this gets evicted

	// Pool
	DefaultStateClientPoolSize = 8

	// Bus operation timeouts for the synchronous connect/subscribe/publish
	// WaitTimeout calls against the broker.
	SubscribeTimeout   = 5 * time.Second
	UnsubscribeTimeout = 5 * time.Second
	PublishTimeout     = 5 * time.Second
	ConnectTimeout     = 5 * time.Second

	// Decision engine safety factors.
	FollowDistanceSafetyFactor        = 1.0
	ReturnToTrafficFollowSafetyFactor = 1.3
	OvertakeMatchSpeedSafetyFactor    = 2.0
	MergeInMatchSpeedSafetyFactor     = 2.0
	MergeInBehindSafetyFactor         = 2.0 // extra margin kept on the trailing gap when merging in

	MergeInMinSpeedFraction = 0.7  // v.speed must be >= 0.7 * preferred_speed to merge in
	ReturnToTrafficMinGapM  = 50.0 // minimum gap (m) to the vehicle behind before returning to traffic lane
)
