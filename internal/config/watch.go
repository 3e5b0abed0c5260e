package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch re-parses path whenever it changes on disk and reports live-safe
// field changes through onChange. Only PositionBound and MaxCarSize are
// ever applied live; a pool-size edit is logged as requiring a restart,
// never applied, because the pool's round-robin counter and connection
// count are fixed once at startup.
//
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, current *Config, logger *logrus.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloaded, err := Load(path)
			if err != nil {
				logger.WithError(err).Warn("config: reload failed, keeping previous configuration")
				continue
			}
			applyLiveChanges(current, reloaded, logger)
			if onChange != nil {
				onChange(current)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("config: watcher error")
		}
	}
}

func applyLiveChanges(current, reloaded *Config, logger *logrus.Logger) {
	if reloaded.PositionBound != current.PositionBound {
		logger.WithFields(logrus.Fields{
			"old": current.PositionBound, "new": reloaded.PositionBound,
		}).Info("config: position_bound updated live")
		current.PositionBound = reloaded.PositionBound
	}
	if reloaded.MaxCarSize != current.MaxCarSize {
		logger.WithFields(logrus.Fields{
			"old": current.MaxCarSize, "new": reloaded.MaxCarSize,
		}).Info("config: max_car_size updated live")
		current.MaxCarSize = reloaded.MaxCarSize
	}
	if reloaded.StateClientPoolSize != current.StateClientPoolSize {
		logger.WithFields(logrus.Fields{
			"configured": reloaded.StateClientPoolSize, "active": current.StateClientPoolSize,
		}).Warn("config: state_client_pool_size changed on disk but requires a restart to take effect")
	}
}
