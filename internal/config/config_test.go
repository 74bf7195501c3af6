package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Alerts.MinSeverityPriority != 2 {
		t.Errorf("expected default min_severity_priority 2, got %d", cfg.Alerts.MinSeverityPriority)
	}
	if cfg.Alerts.PerAlertCooldownMinutes != 60 {
		t.Errorf("expected default per_alert_cooldown_minutes 60, got %d", cfg.Alerts.PerAlertCooldownMinutes)
	}
	if !cfg.Alerts.NotificationsEnabled {
		t.Error("expected notifications enabled by default")
	}
	if cfg.Refresh.IntervalMinutes != 5 {
		t.Errorf("expected default interval_minutes 5, got %d", cfg.Refresh.IntervalMinutes)
	}
}

func TestLoadFromString_MergesOverDefaults(t *testing.T) {
	data := `
[alerts]
min_severity_priority = 3
ignored_categories = ["test message", "air quality alert"]

[refresh]
interval_minutes = 10
alerts_path = "/var/run/skywatch/alerts.json"
`
	result, err := LoadFromString(data)
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}

	cfg := result.Config
	if cfg.Alerts.MinSeverityPriority != 3 {
		t.Errorf("expected min_severity_priority 3, got %d", cfg.Alerts.MinSeverityPriority)
	}
	if len(cfg.Alerts.IgnoredCategories) != 2 {
		t.Errorf("expected 2 ignored categories, got %d", len(cfg.Alerts.IgnoredCategories))
	}
	// Keys absent from the file keep their defaults.
	if cfg.Alerts.PerAlertCooldownMinutes != 60 {
		t.Errorf("expected default per_alert_cooldown_minutes 60, got %d", cfg.Alerts.PerAlertCooldownMinutes)
	}
	if !cfg.Alerts.NotificationsEnabled {
		t.Error("expected notifications_enabled to keep its true default")
	}
	if cfg.Refresh.IntervalMinutes != 10 {
		t.Errorf("expected interval_minutes 10, got %d", cfg.Refresh.IntervalMinutes)
	}
	if cfg.Refresh.AlertsPath != "/var/run/skywatch/alerts.json" {
		t.Errorf("unexpected alerts_path %q", cfg.Refresh.AlertsPath)
	}
}

func TestLoadFromString_BooleanFalseIsRespected(t *testing.T) {
	data := `
[alerts]
notifications_enabled = false
`
	result, err := LoadFromString(data)
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
	if result.Config.Alerts.NotificationsEnabled {
		t.Error("expected explicit notifications_enabled = false to override the default")
	}
}

func TestLoadFromString_UnknownKeyWarning(t *testing.T) {
	data := `
[alertz]
min_severity_priority = 3
`
	result, err := LoadFromString(data)
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "alertz") {
		t.Errorf("expected unknown-key warning for 'alertz', got %v", result.Warnings)
	}
}

func TestLoadFromString_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "severity out of range",
			data: "[alerts]\nmin_severity_priority = 9\n",
			want: "min_severity_priority",
		},
		{
			name: "negative cooldown",
			data: "[alerts]\nper_alert_cooldown_minutes = -1\n",
			want: "per_alert_cooldown_minutes",
		},
		{
			name: "zero hourly cap",
			data: "[alerts]\nmax_notifications_per_hour = 0\n",
			want: "max_notifications_per_hour",
		},
		{
			name: "zero interval",
			data: "[refresh]\ninterval_minutes = 0\n",
			want: "interval_minutes",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromString(tc.data)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected validation error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	result, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if result.Config.Alerts.MaxNotificationsPerHour != 10 {
		t.Errorf("expected default config, got %+v", result.Config.Alerts)
	}
}

func TestLoadFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[storage]\nretention_days = 14\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	result, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if result.Config.Storage.RetentionDays != 14 {
		t.Errorf("expected retention_days 14, got %d", result.Config.Storage.RetentionDays)
	}
}

func TestAlertsConfigSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alerts.GlobalCooldownMinutes = 7
	cfg.Alerts.MaxNotificationsPerHour = 25

	s := cfg.Alerts.Settings()
	if s.GlobalCooldown != 7*time.Minute {
		t.Errorf("expected global cooldown 7m, got %v", s.GlobalCooldown)
	}
	if s.MaxNotificationsPerHour != 25 {
		t.Errorf("expected hourly cap 25, got %d", s.MaxNotificationsPerHour)
	}
}
