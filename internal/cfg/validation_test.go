package cfg

import (
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		ModelDir:        "trained model final",
		LegacyModelPath: "best_xgb_model.json",
		DatasetPath:     "ref.csv",
		LabelColumn:     "device_category",
		Port:            5000,
		MetricsPort:     8080,
		DataPath:        "data",
		LogLevel:        "info",
		LogMaxSizeMB:    100,
		InputPolicy:     "tolerant",
		CacheSize:       1024,
		CacheTTL:        10 * time.Minute,
		RequestTimeout:  10 * time.Second,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	if err := validateSettings(createValidSettings()); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"empty model dir", func(s *Settings) { s.ModelDir = " " }},
		{"empty dataset path", func(s *Settings) { s.DatasetPath = "" }},
		{"empty label column", func(s *Settings) { s.LabelColumn = "" }},
		{"port zero", func(s *Settings) { s.Port = 0 }},
		{"port too high", func(s *Settings) { s.Port = 70000 }},
		{"privileged metrics port", func(s *Settings) { s.MetricsPort = 80 }},
		{"port collision", func(s *Settings) { s.Port = s.MetricsPort }},
		{"unknown input policy", func(s *Settings) { s.InputPolicy = "loose" }},
		{"negative cache size", func(s *Settings) { s.CacheSize = -1 }},
		{"cache TTL too short", func(s *Settings) { s.CacheTTL = time.Millisecond }},
		{"request timeout too short", func(s *Settings) { s.RequestTimeout = time.Millisecond }},
		{"request timeout too long", func(s *Settings) { s.RequestTimeout = time.Hour }},
		{"unknown log level", func(s *Settings) { s.LogLevel = "verbose" }},
		{"zero log size", func(s *Settings) { s.LogMaxSizeMB = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.modify(settings)
			if err := validateSettings(settings); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestValidateSettings_CacheTTLIgnoredWhenCacheDisabled(t *testing.T) {
	settings := createValidSettings()
	settings.CacheSize = 0
	settings.CacheTTL = 0

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected disabled cache to skip TTL validation, got %v", err)
	}
}

func TestValidateSettings_BoundaryValues(t *testing.T) {
	settings := createValidSettings()
	settings.Port = 1
	settings.MetricsPort = 65535
	settings.RequestTimeout = 100 * time.Millisecond
	settings.CacheTTL = time.Second
	settings.LogLevel = "DEBUG"

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected boundary values to pass, got %v", err)
	}
}
