// Package config loads the YAML configuration a stagecastd process
// starts from: one video format and monitor transport per channel.
//
// Grounded on References/orion-prototipe/internal/config/config.go: same
// yaml.v3 struct-tag shape, same Load/Validate split, same
// read-file-then-unmarshal-then-validate error wrapping.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level stagecastd configuration: one or more channels
// and the shared defaults for their monitor transport.
type Config struct {
	InstanceID       string          `yaml:"instance_id"`
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"`
	Channels         []ChannelConfig `yaml:"channels"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
}

// ChannelConfig configures one Stage: its channel index and video
// timing.
type ChannelConfig struct {
	Index     int     `yaml:"index"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FrameRate float64 `yaml:"frame_rate"`
}

// MQTTConfig configures the shared MQTT broker every channel's monitor
// publishes to. All channels publish under the same TopicRoot; event
// paths do not carry the channel index.
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	TopicRoot string `yaml:"topic_root"`
	QoS       byte   `yaml:"qos"`
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that cfg describes at least one channel with a
// positive frame rate and that channel indices are unique.
func Validate(cfg *Config) error {
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("config: no channels defined")
	}
	seen := make(map[int]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		if ch.FrameRate <= 0 {
			return fmt.Errorf("config: channel %d: frame_rate must be positive", ch.Index)
		}
		if seen[ch.Index] {
			return fmt.Errorf("config: duplicate channel index %d", ch.Index)
		}
		seen[ch.Index] = true
	}
	return nil
}
