package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.securechat/config.toml. Every interval the
// chat core schedules against is a field here rather than a hard-coded
// constant, so deployments (and tests) can tune them.
type Config struct {
	DefaultProfile string `toml:"default_profile"`

	// SeedDemoContacts controls whether a fresh profile is populated with a
	// small illustrative contact list on first run.
	SeedDemoContacts bool `toml:"seed_demo_contacts"`

	// Default settings stamped onto newly created conversations.
	AutoDelete    bool  `toml:"auto_delete"`
	Encryption    bool  `toml:"encryption"`
	DeleteTimerMs int64 `toml:"delete_timer_ms"`

	// DeleteGraceMs is the pause between a message being marked as deleting
	// and its actual removal, so observers can show a transient state.
	DeleteGraceMs int64 `toml:"delete_grace_ms"`

	// TypingExpiryMs is how long a typing indicator stays set without being
	// refreshed.
	TypingExpiryMs int64 `toml:"typing_expiry_ms"`

	// SaveCooldownMs is the window after a persistence write during which
	// further writes to the same collection are suppressed.
	SaveCooldownMs int64 `toml:"save_cooldown_ms"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DefaultProfile:   "main",
		SeedDemoContacts: true,
		AutoDelete:       true,
		Encryption:       true,
		DeleteTimerMs:    5000,
		DeleteGraceMs:    200,
		TypingExpiryMs:   3000,
		SaveCooldownMs:   50,
	}
}

// DeleteTimer returns the default auto-delete delay for new conversations.
func (c *Config) DeleteTimer() time.Duration {
	return time.Duration(c.DeleteTimerMs) * time.Millisecond
}

// DeleteGrace returns the two-phase deletion grace interval.
func (c *Config) DeleteGrace() time.Duration {
	return time.Duration(c.DeleteGraceMs) * time.Millisecond
}

// TypingExpiry returns the typing indicator expiry interval.
func (c *Config) TypingExpiry() time.Duration {
	return time.Duration(c.TypingExpiryMs) * time.Millisecond
}

// SaveCooldown returns the write-suppression window.
func (c *Config) SaveCooldown() time.Duration {
	return time.Duration(c.SaveCooldownMs) * time.Millisecond
}

// Load reads config from the given path. Returns zero config and error if
// file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault reads config from the given path, falling back to Default
// when the file does not exist.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
