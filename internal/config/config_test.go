package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":80" || cfg.Probe.PeriodSeconds != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OTA.Addr != ":8266" {
		t.Errorf("OTA addr: got %q", cfg.OTA.Addr)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http_addr: ":8080"
tick: 250ms
probe:
  address: 192.168.1.254
  period_seconds: 30
relay:
  line: 17
  active_low: true
mqtt:
  broker: tcp://broker.local:1883
  heartbeat: 5m
ota:
  window: 2m
provisioning:
  paths: [/tmp/a.conf, /tmp/b.conf]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" || cfg.Tick != 250*time.Millisecond {
		t.Errorf("top level: %+v", cfg)
	}
	want := watchdog.ProbeTarget{Address: "192.168.1.254", PeriodSeconds: 30}
	if cfg.Target() != want {
		t.Errorf("target: got %+v, want %+v", cfg.Target(), want)
	}
	if cfg.Relay.Line != 17 || !cfg.Relay.ActiveLow || cfg.Relay.Chip != "gpiochip0" {
		t.Errorf("relay: %+v", cfg.Relay)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" || cfg.MQTT.Heartbeat != 5*time.Minute || cfg.MQTT.Prefix == "" {
		t.Errorf("mqtt: %+v", cfg.MQTT)
	}
	if cfg.OTA.Window != 2*time.Minute || cfg.OTA.Addr != ":8266" {
		t.Errorf("ota: %+v", cfg.OTA)
	}
	if len(cfg.Provisioning.Paths) != 2 {
		t.Errorf("provisioning: %v", cfg.Provisioning.Paths)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, "probe: [not, a, map\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("got %v, want parse error", err)
	}
}

func TestLoadReadError(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("got %v, want read error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero period", func(c *Config) { c.Probe.PeriodSeconds = 0 }},
		{"long address", func(c *Config) { c.Probe.Address = strings.Repeat("a", 65) }},
		{"zero tick", func(c *Config) { c.Tick = 0 }},
		{"short reboot delay", func(c *Config) { c.RebootDelay = 500 * time.Millisecond }},
		{"zero probe timeout", func(c *Config) { c.Probe.Timeout = 0 }},
		{"no chip", func(c *Config) { c.Relay.Chip = "" }},
		{"negative line", func(c *Config) { c.Relay.Line = -1 }},
		{"zero pulse", func(c *Config) { c.Relay.PulseWidth = 0 }},
		{"negative heartbeat", func(c *Config) { c.MQTT.Heartbeat = -time.Second }},
		{"broker without prefix", func(c *Config) { c.MQTT.Broker = "tcp://x:1883"; c.MQTT.Prefix = "" }},
		{"zero window", func(c *Config) { c.OTA.Window = 0 }},
		{"short ota reboot", func(c *Config) { c.OTA.RebootDelay = 0 }},
		{"zero firmware limit", func(c *Config) { c.Firmware.MaxBytes = 0 }},
		{"window beyond clock range", func(c *Config) { c.OTA.Window = 30 * 24 * time.Hour }},
		{"reboot delay beyond clock range", func(c *Config) { c.RebootDelay = watchdog.MaxDelay + time.Millisecond }},
		{"heartbeat beyond clock range", func(c *Config) { c.MQTT.Heartbeat = 60 * 24 * time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateAcceptsMaxDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OTA.Window = watchdog.MaxDelay
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateWrapsTargetError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probe.PeriodSeconds = -1
	if err := cfg.Validate(); !errors.Is(err, watchdog.ErrInvalidPeriod) {
		t.Errorf("got %v, want ErrInvalidPeriod", err)
	}
}
