package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/skywatch/skywatch/internal/gate"
)

type Config struct {
	Alerts  AlertsConfig
	Storage StorageConfig
	Refresh RefreshConfig
}

type AlertsConfig struct {
	MinSeverityPriority       int      `toml:"min_severity_priority"`
	GlobalCooldownMinutes     int      `toml:"global_cooldown_minutes"`
	PerAlertCooldownMinutes   int      `toml:"per_alert_cooldown_minutes"`
	EscalationCooldownMinutes int      `toml:"escalation_cooldown_minutes"`
	FreshnessWindowMinutes    int      `toml:"freshness_window_minutes"`
	IgnoredCategories         []string `toml:"ignored_categories"`
	NotificationsEnabled      bool     `toml:"notifications_enabled"`
	SoundEnabled              bool     `toml:"sound_enabled"`
	MaxNotificationsPerHour   int      `toml:"max_notifications_per_hour"`
}

type StorageConfig struct {
	StatePath     string `toml:"state_path"`
	HistoryDBPath string `toml:"history_db_path"`
	RetentionDays int    `toml:"retention_days"`
}

type RefreshConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	AlertsPath      string `toml:"alerts_path"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	s := gate.DefaultSettings()
	return Config{
		Alerts: AlertsConfig{
			MinSeverityPriority:       s.MinSeverityPriority,
			GlobalCooldownMinutes:     int(s.GlobalCooldown / time.Minute),
			PerAlertCooldownMinutes:   int(s.PerAlertCooldown / time.Minute),
			EscalationCooldownMinutes: int(s.EscalationCooldown / time.Minute),
			FreshnessWindowMinutes:    int(s.FreshnessWindow / time.Minute),
			NotificationsEnabled:      s.NotificationsEnabled,
			SoundEnabled:              s.SoundEnabled,
			MaxNotificationsPerHour:   s.MaxNotificationsPerHour,
		},
		Storage: StorageConfig{
			StatePath:     "~/.config/skywatch/alert_state.json",
			HistoryDBPath: "~/.config/skywatch/history.db",
			RetentionDays: 30,
		},
		Refresh: RefreshConfig{
			IntervalMinutes: 5,
		},
	}
}

// Settings converts the alerts section into the engine's policy object.
func (c AlertsConfig) Settings() gate.Settings {
	return gate.Settings{
		MinSeverityPriority:     c.MinSeverityPriority,
		GlobalCooldown:          time.Duration(c.GlobalCooldownMinutes) * time.Minute,
		PerAlertCooldown:        time.Duration(c.PerAlertCooldownMinutes) * time.Minute,
		EscalationCooldown:      time.Duration(c.EscalationCooldownMinutes) * time.Minute,
		FreshnessWindow:         time.Duration(c.FreshnessWindowMinutes) * time.Minute,
		IgnoredCategories:       c.IgnoredCategories,
		NotificationsEnabled:    c.NotificationsEnabled,
		SoundEnabled:            c.SoundEnabled,
		MaxNotificationsPerHour: c.MaxNotificationsPerHour,
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "skywatch", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return &LoadResult{Config: cfg}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

func LoadFromString(data string) (*LoadResult, error) {
	cfg := DefaultConfig()
	result := &LoadResult{Config: cfg}

	if data == "" {
		return result, nil
	}

	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	knownTopLevel := map[string]bool{
		"alerts":  true,
		"storage": true,
		"refresh": true,
	}
	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	var tf tomlFile
	if _, err := toml.Decode(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	mergeFromRaw(&result.Config, &tf, raw)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

type tomlFile struct {
	Alerts  *AlertsConfig  `toml:"alerts"`
	Storage *StorageConfig `toml:"storage"`
	Refresh *RefreshConfig `toml:"refresh"`
}

// mergeFromRaw copies only the keys actually present in the file over the
// defaults, so an omitted key never clobbers its default (in particular the
// boolean toggles, whose zero value differs from their default).
func mergeFromRaw(cfg *Config, tf *tomlFile, raw map[string]any) {
	if tf.Alerts != nil {
		if section, ok := rawSection(raw, "alerts"); ok {
			if _, exists := section["min_severity_priority"]; exists {
				cfg.Alerts.MinSeverityPriority = tf.Alerts.MinSeverityPriority
			}
			if _, exists := section["global_cooldown_minutes"]; exists {
				cfg.Alerts.GlobalCooldownMinutes = tf.Alerts.GlobalCooldownMinutes
			}
			if _, exists := section["per_alert_cooldown_minutes"]; exists {
				cfg.Alerts.PerAlertCooldownMinutes = tf.Alerts.PerAlertCooldownMinutes
			}
			if _, exists := section["escalation_cooldown_minutes"]; exists {
				cfg.Alerts.EscalationCooldownMinutes = tf.Alerts.EscalationCooldownMinutes
			}
			if _, exists := section["freshness_window_minutes"]; exists {
				cfg.Alerts.FreshnessWindowMinutes = tf.Alerts.FreshnessWindowMinutes
			}
			if _, exists := section["ignored_categories"]; exists {
				cfg.Alerts.IgnoredCategories = tf.Alerts.IgnoredCategories
			}
			if _, exists := section["notifications_enabled"]; exists {
				cfg.Alerts.NotificationsEnabled = tf.Alerts.NotificationsEnabled
			}
			if _, exists := section["sound_enabled"]; exists {
				cfg.Alerts.SoundEnabled = tf.Alerts.SoundEnabled
			}
			if _, exists := section["max_notifications_per_hour"]; exists {
				cfg.Alerts.MaxNotificationsPerHour = tf.Alerts.MaxNotificationsPerHour
			}
		}
	}
	if tf.Storage != nil {
		if section, ok := rawSection(raw, "storage"); ok {
			if _, exists := section["state_path"]; exists {
				cfg.Storage.StatePath = tf.Storage.StatePath
			}
			if _, exists := section["history_db_path"]; exists {
				cfg.Storage.HistoryDBPath = tf.Storage.HistoryDBPath
			}
			if _, exists := section["retention_days"]; exists {
				cfg.Storage.RetentionDays = tf.Storage.RetentionDays
			}
		}
	}
	if tf.Refresh != nil {
		if section, ok := rawSection(raw, "refresh"); ok {
			if _, exists := section["interval_minutes"]; exists {
				cfg.Refresh.IntervalMinutes = tf.Refresh.IntervalMinutes
			}
			if _, exists := section["alerts_path"]; exists {
				cfg.Refresh.AlertsPath = tf.Refresh.AlertsPath
			}
		}
	}
}

func rawSection(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Alerts.MinSeverityPriority < 1 || cfg.Alerts.MinSeverityPriority > 5 {
		errs = append(errs, fmt.Sprintf("min_severity_priority must be 1-5, got %d", cfg.Alerts.MinSeverityPriority))
	}
	if cfg.Alerts.GlobalCooldownMinutes < 0 {
		errs = append(errs, fmt.Sprintf("global_cooldown_minutes must not be negative, got %d", cfg.Alerts.GlobalCooldownMinutes))
	}
	if cfg.Alerts.PerAlertCooldownMinutes < 0 {
		errs = append(errs, fmt.Sprintf("per_alert_cooldown_minutes must not be negative, got %d", cfg.Alerts.PerAlertCooldownMinutes))
	}
	if cfg.Alerts.EscalationCooldownMinutes < 0 {
		errs = append(errs, fmt.Sprintf("escalation_cooldown_minutes must not be negative, got %d", cfg.Alerts.EscalationCooldownMinutes))
	}
	if cfg.Alerts.FreshnessWindowMinutes < 0 {
		errs = append(errs, fmt.Sprintf("freshness_window_minutes must not be negative, got %d", cfg.Alerts.FreshnessWindowMinutes))
	}
	if cfg.Alerts.MaxNotificationsPerHour < 1 {
		errs = append(errs, fmt.Sprintf("max_notifications_per_hour must be positive, got %d", cfg.Alerts.MaxNotificationsPerHour))
	}

	if cfg.Storage.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("storage retention_days must be positive, got %d", cfg.Storage.RetentionDays))
	}

	if cfg.Refresh.IntervalMinutes < 1 {
		errs = append(errs, fmt.Sprintf("refresh interval_minutes must be positive, got %d", cfg.Refresh.IntervalMinutes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExpandTilde resolves a leading "~/" against the user's home directory.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
