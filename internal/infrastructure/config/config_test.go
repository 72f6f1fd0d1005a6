package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "vrx:\n  enabled: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("broker port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.VRx.MaxSeat != 7 {
		t.Errorf("max_seat = %d, want 7", cfg.VRx.MaxSeat)
	}
	if cfg.VRx.FrequencyCountdown != 10 {
		t.Errorf("frequency_countdown = %d, want 10", cfg.VRx.FrequencyCountdown)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
vrx:
  enabled: true
  host: broker.race.local
  max_seat: 3
mqtt:
  broker:
    port: 8883
    tls: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VRx.Host != "broker.race.local" {
		t.Errorf("vrx.host = %q", cfg.VRx.Host)
	}
	if cfg.VRx.MaxSeat != 3 {
		t.Errorf("max_seat = %d, want 3", cfg.VRx.MaxSeat)
	}
	if !cfg.MQTT.Broker.TLS || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("broker = %+v, want TLS on port 8883", cfg.MQTT.Broker)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidateBadPort(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  broker:\n    port: 99999\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for bad port")
	}
}

func TestWarningsFallBack(t *testing.T) {
	cfg := &Config{}
	warnings := cfg.Warnings()

	if len(warnings) == 0 {
		t.Fatal("Warnings() expected fallback messages for empty vrx section")
	}
	if cfg.VRx.Host != "localhost" {
		t.Errorf("vrx.host = %q, want fallback localhost", cfg.VRx.Host)
	}
	if cfg.VRx.FrequencyCountdown != 10 {
		t.Errorf("frequency_countdown = %d, want fallback 10", cfg.VRx.FrequencyCountdown)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VRXLINK_VRX_HOST", "10.0.0.5")
	t.Setenv("VRXLINK_VRX_ENABLED", "false")

	path := writeConfig(t, "vrx:\n  enabled: true\n  host: ignored\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VRx.Host != "10.0.0.5" {
		t.Errorf("vrx.host = %q, want env override", cfg.VRx.Host)
	}
	if cfg.VRx.Enabled {
		t.Error("vrx.enabled = true, want env override false")
	}
}
