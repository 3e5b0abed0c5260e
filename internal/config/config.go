package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration options for the highway traffic controller,
// read from a key=value text file per the bus/registry wiring it describes.
type Config struct {
	Address             string `json:"address"`               // broker address, e.g. tcp://localhost:1883
	Username            string `json:"username"`              // broker auth username
	Password            string `json:"password"`              // broker auth password
	BaseTopic           string `json:"base_topic"`            // topic prefix for all vehicle topics
	QualityOfService    byte   `json:"quality_of_service"`    // 0, 1, or 2
	PositionBound       int    `json:"position_bound"`        // highway length in meters
	MaxCarSize          int    `json:"max_car_size"`          // informational truck-size cutoff in meters
	StateClientPoolSize int    `json:"state_client_pool_size"` // number of state-topic connections
}

// GetDefaultConfig returns a configuration with sensible defaults. Address,
// BaseTopic and credentials are left empty; Validate rejects an empty
// Address and BaseTopic since those have no safe default.
func GetDefaultConfig() *Config {
	return &Config{
		QualityOfService:    1,
		PositionBound:       10000,
		MaxCarSize:          8,
		StateClientPoolSize: DefaultStateClientPoolSize,
	}
}

// Load reads a key=value configuration file, overlaying its values onto the
// defaults from GetDefaultConfig. Lines are whitespace-insensitive; a line
// whose trimmed form starts with '#' is a comment and is skipped.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := GetDefaultConfig()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.Join(strings.Fields(scanner.Text()), "")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config: %s:%d: missing '=' in %q", path, lineNo, scanner.Text())
		}

		if err := cfg.apply(key, value); err != nil {
			return nil, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(key, value string) error {
	switch key {
	case "address":
		c.Address = value
	case "username":
		c.Username = value
	case "password":
		c.Password = value
	case "base_topic":
		c.BaseTopic = value
	case "quality_of_service":
		qos, err := strconv.Atoi(value)
		if err != nil || qos < 0 || qos > 2 {
			return fmt.Errorf("quality_of_service must be 0, 1 or 2, got %q", value)
		}
		c.QualityOfService = byte(qos)
	case "position_bound":
		bound, err := strconv.Atoi(value)
		if err != nil || bound <= 0 {
			return fmt.Errorf("position_bound must be a positive integer, got %q", value)
		}
		c.PositionBound = bound
	case "max_car_size":
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			return fmt.Errorf("max_car_size must be a positive integer, got %q", value)
		}
		c.MaxCarSize = size
	case "state_client_pool_size":
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			return fmt.Errorf("state_client_pool_size must be a positive integer, got %q", value)
		}
		c.StateClientPoolSize = size
	default:
		return fmt.Errorf("unrecognized config key %q", key)
	}
	return nil
}

// Validate checks that the configuration is complete enough to start the
// controller. A missing/unparseable required key is a fatal configuration
// error.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("config: address is required")
	}
	if c.BaseTopic == "" {
		return fmt.Errorf("config: base_topic is required")
	}
	if c.QualityOfService > 2 {
		return fmt.Errorf("config: quality_of_service must be 0, 1 or 2")
	}
	if c.PositionBound <= 0 {
		return fmt.Errorf("config: position_bound must be positive")
	}
	if c.MaxCarSize <= 0 {
		return fmt.Errorf("config: max_car_size must be positive")
	}
	if c.StateClientPoolSize <= 0 {
		return fmt.Errorf("config: state_client_pool_size must be positive")
	}
	return nil
}

// JoinTopic returns the wildcard join subscription topic.
func (c *Config) JoinTopic() string { return c.BaseTopic + "/vehicles/+/join" }

// ObituaryTopic returns the optional global shutdown topic.
func (c *Config) ObituaryTopic() string { return c.BaseTopic + "/obituary" }

// StateTopic returns the per-vehicle state subscription topic.
func (c *Config) StateTopic(id string) string { return c.BaseTopic + "/vehicles/" + id + "/state" }

// CommandTopic returns the per-vehicle outbound command topic.
func (c *Config) CommandTopic(id string) string { return c.BaseTopic + "/vehicles/" + id + "/command" }
