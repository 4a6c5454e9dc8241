package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stagecast.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadParsesChannelsAndMQTT(t *testing.T) {
	path := writeTempConfig(t, `
instance_id: stage-01
shutdown_timeout_s: 10
channels:
  - index: 0
    width: 1920
    height: 1080
    frame_rate: 50
  - index: 1
    width: 1280
    height: 720
    frame_rate: 25
mqtt:
  broker: tcp://localhost:1883
  topic_root: /stagecast
  qos: 1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstanceID != "stage-01" {
		t.Fatalf("InstanceID = %q, want stage-01", cfg.InstanceID)
	}
	if len(cfg.Channels) != 2 {
		t.Fatalf("len(Channels) = %d, want 2", len(cfg.Channels))
	}
	if cfg.Channels[1].FrameRate != 25 {
		t.Fatalf("Channels[1].FrameRate = %v, want 25", cfg.Channels[1].FrameRate)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Fatalf("MQTT.Broker = %q, want tcp://localhost:1883", cfg.MQTT.Broker)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/stagecast.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  - index: 0
    frame_rate: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a non-positive frame_rate")
	}
}

func TestValidateRejectsNoChannels(t *testing.T) {
	if err := Validate(&Config{}); err == nil {
		t.Fatal("expected an error for a config with no channels")
	}
}

func TestValidateRejectsDuplicateChannelIndex(t *testing.T) {
	cfg := &Config{
		Channels: []ChannelConfig{
			{Index: 0, FrameRate: 50},
			{Index: 0, FrameRate: 25},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for duplicate channel indices")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		Channels: []ChannelConfig{
			{Index: 0, FrameRate: 50},
			{Index: 1, FrameRate: 25},
		},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
