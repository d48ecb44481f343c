// Package config loads the daemon configuration from YAML. Command-line
// flags in main override individual values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/net-watchdog/internal/firmware"
	"github.com/sweeney/net-watchdog/internal/gpio"
	"github.com/sweeney/net-watchdog/internal/mqtt"
	"github.com/sweeney/net-watchdog/internal/ota"
	"github.com/sweeney/net-watchdog/internal/relay"
	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "/etc/net-watchdog/config.yaml"

// Config is the daemon configuration.
type Config struct {
	HTTPAddr    string        `yaml:"http_addr"`
	Tick        time.Duration `yaml:"tick"`
	RebootDelay time.Duration `yaml:"reboot_delay"`
	StorePath   string        `yaml:"store_path"`

	Probe        Probe        `yaml:"probe"`
	Relay        Relay        `yaml:"relay"`
	MQTT         MQTT         `yaml:"mqtt"`
	OTA          OTA          `yaml:"ota"`
	Firmware     Firmware     `yaml:"firmware"`
	Network      Network      `yaml:"network"`
	Provisioning Provisioning `yaml:"provisioning"`
}

// Probe is the default target, used until one is committed.
type Probe struct {
	Address       string        `yaml:"address"`
	PeriodSeconds int           `yaml:"period_seconds"`
	Timeout       time.Duration `yaml:"timeout"`
	Privileged    bool          `yaml:"privileged"`
}

// Relay selects the output line.
type Relay struct {
	Chip       string        `yaml:"chip"`
	Line       int           `yaml:"line"`
	ActiveLow  bool          `yaml:"active_low"`
	PulseWidth time.Duration `yaml:"pulse_width"`
}

// MQTT configures event publishing. An empty broker disables it.
type MQTT struct {
	Broker     string        `yaml:"broker"`
	Prefix     string        `yaml:"prefix"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	OutboxSize int           `yaml:"outbox_size"`
}

// OTA configures the maintenance session.
type OTA struct {
	Addr        string        `yaml:"addr"`
	Window      time.Duration `yaml:"window"`
	RebootDelay time.Duration `yaml:"reboot_delay"`
	Instance    string        `yaml:"instance"`
	Interface   string        `yaml:"interface"`
	MDNS        bool          `yaml:"mdns"`
}

// Firmware configures staging. An empty path means the running executable.
type Firmware struct {
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Network names the uplink interface for link-quality readings.
type Network struct {
	Interface string `yaml:"interface"`
}

// Provisioning lists the files that hold the network identity.
type Provisioning struct {
	Paths []string `yaml:"paths"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":80",
		Tick:        100 * time.Millisecond,
		RebootDelay: watchdog.DefaultRebootDelay,
		StorePath:   "/var/lib/net-watchdog/target.bin",
		Probe: Probe{
			Address:       "8.8.8.8",
			PeriodSeconds: 3,
			Timeout:       2 * time.Second,
		},
		Relay: Relay{
			Chip:       gpio.DefaultChip,
			Line:       gpio.DefaultLine,
			PulseWidth: relay.DefaultPulseWidth,
		},
		MQTT: MQTT{
			Prefix:     mqtt.DefaultPrefix,
			Heartbeat:  15 * time.Minute,
			OutboxSize: mqtt.DefaultOutboxSize,
		},
		OTA: OTA{
			Addr:        ota.DefaultAddr,
			Window:      watchdog.DefaultMaintenanceWindow,
			RebootDelay: watchdog.DefaultOTARebootDelay,
			Instance:    ota.DefaultInstance,
			MDNS:        true,
		},
		Firmware: Firmware{MaxBytes: firmware.DefaultMaxBytes},
		Network:  Network{Interface: "wlan0"},
		Provisioning: Provisioning{
			Paths: []string{"/etc/wpa_supplicant/wpa_supplicant-net-watchdog.conf"},
		},
	}
}

// Load reads configuration from a YAML file over the defaults. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Target returns the default probe target.
func (c Config) Target() watchdog.ProbeTarget {
	return watchdog.ProbeTarget{Address: c.Probe.Address, PeriodSeconds: c.Probe.PeriodSeconds}
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if err := c.Target().Validate(); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	if c.Tick <= 0 {
		return errors.New("tick must be positive")
	}
	if c.RebootDelay < time.Second {
		return errors.New("reboot_delay must be at least 1s")
	}
	if c.Probe.Timeout <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if c.Relay.Chip == "" {
		return errors.New("relay chip is required")
	}
	if c.Relay.Line < 0 {
		return fmt.Errorf("relay line %d is invalid", c.Relay.Line)
	}
	if c.Relay.PulseWidth <= 0 {
		return errors.New("relay pulse_width must be positive")
	}
	if c.MQTT.Heartbeat < 0 {
		return errors.New("mqtt heartbeat must not be negative")
	}
	if c.MQTT.Broker != "" && c.MQTT.Prefix == "" {
		return errors.New("mqtt prefix is required with a broker")
	}
	if c.OTA.Window <= 0 {
		return errors.New("ota window must be positive")
	}
	if c.OTA.RebootDelay < time.Second {
		return errors.New("ota reboot_delay must be at least 1s")
	}
	for name, d := range map[string]time.Duration{
		"reboot_delay":     c.RebootDelay,
		"mqtt heartbeat":   c.MQTT.Heartbeat,
		"ota window":       c.OTA.Window,
		"ota reboot_delay": c.OTA.RebootDelay,
	} {
		if d > watchdog.MaxDelay {
			return fmt.Errorf("%s must be at most %v", name, watchdog.MaxDelay)
		}
	}
	if c.Firmware.MaxBytes <= 0 {
		return errors.New("firmware max_bytes must be positive")
	}
	return nil
}
