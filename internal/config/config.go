// Package config loads the application configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	SeekStepSeconds int   `koanf:"seek_step_seconds"` // transport seek step (default: 10)
	Notifications   *bool `koanf:"notifications"`     // desktop notifications on item change (default: true)
	Mpris           *bool `koanf:"mpris"`             // system media surface mirroring (default: true)

	Embed EmbedConfig `koanf:"embed"`
}

// EmbedConfig holds embedded-player bridge settings.
type EmbedConfig struct {
	Player         string `koanf:"player"`           // player binary (default: "mpv")
	SocketDir      string `koanf:"socket_dir"`       // IPC socket directory (default: system temp)
	PollIntervalMs int    `koanf:"poll_interval_ms"` // position/state poll cadence (default: 500)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Embed.SocketDir != "" {
		cfg.Embed.SocketDir = expandPath(cfg.Embed.SocketDir)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/mixtape/config.toml
		filepath.Join(xdg.ConfigHome, "mixtape", "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// SeekStep returns the seek step with the default applied.
func (c *Config) SeekStep() time.Duration {
	if c.SeekStepSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.SeekStepSeconds) * time.Second
}

// PollInterval returns the embed poll cadence with the default applied.
func (c *Config) PollInterval() time.Duration {
	if c.Embed.PollIntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Embed.PollIntervalMs) * time.Millisecond
}

// NotificationsEnabled returns the notifications flag, defaulting to true.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications == nil || *c.Notifications
}

// MprisEnabled returns the mpris flag, defaulting to true.
func (c *Config) MprisEnabled() bool {
	return c.Mpris == nil || *c.Mpris
}
