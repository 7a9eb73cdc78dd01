package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"iot-device-id/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelDir        string
	LegacyModelPath string
	DatasetPath     string
	LabelColumn     string
	Port            int
	MetricsPort     int
	DataPath        string
	LogLevel        string
	LogFile         string
	LogMaxSizeMB    int
	InputPolicy     string
	ParallelScoring bool
	CacheSize       int
	CacheTTL        time.Duration
	WatchModels     bool
	RequestTimeout  time.Duration
}

type ConfigFile struct {
	Model struct {
		Dir             string `yaml:"dir"`
		LegacyPath      string `yaml:"legacyPath"`
		InputPolicy     string `yaml:"inputPolicy"`
		ParallelScoring bool   `yaml:"parallelScoring"`
		CacheSize       *int   `yaml:"cacheSize"`
		CacheTTL        string `yaml:"cacheTTL"`
		Watch           bool   `yaml:"watch"`
	} `yaml:"model"`

	Dataset struct {
		Path        string `yaml:"path"`
		LabelColumn string `yaml:"labelColumn"`
	} `yaml:"dataset"`

	Server struct {
		Port           int    `yaml:"port"`
		MetricsPort    int    `yaml:"metricsPort"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`

	System struct {
		DataPath     string `yaml:"dataPath"`
		LogLevel     string `yaml:"logLevel"`
		LogFile      string `yaml:"logFile"`
		LogMaxSizeMB int    `yaml:"logMaxSizeMB"`
	} `yaml:"system"`
}

const (
	defaultPort           = 5000
	defaultMetricsPort    = 8080
	defaultDataPath       = "data"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 100
	defaultCacheSize      = 1024
	defaultCacheTTL       = 10 * time.Minute
	defaultRequestTimeout = 10 * time.Second
)

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	cacheTTL, err := time.ParseDuration(config.Model.CacheTTL)
	if err != nil {
		cacheTTL = defaultCacheTTL
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = defaultRequestTimeout
	}

	cacheSize := defaultCacheSize
	if config.Model.CacheSize != nil {
		cacheSize = *config.Model.CacheSize
	}

	settings := Settings{
		ModelDir:        getEnvOrDefault(common.EnvModelDir, orDefault(config.Model.Dir, common.DefaultModelDir)),
		LegacyModelPath: getEnvOrDefault(common.EnvLegacyModelPath, orDefault(config.Model.LegacyPath, common.DefaultLegacyModelPath)),
		DatasetPath:     getEnvOrDefault(common.EnvDatasetPath, orDefault(config.Dataset.Path, common.DefaultDatasetPath)),
		LabelColumn:     getEnvOrDefault(common.EnvLabelColumn, orDefault(config.Dataset.LabelColumn, common.DefaultLabelColumn)),
		Port:            getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, defaultPort),
		MetricsPort:     getIntFromEnvOrConfig(common.EnvMetricsPort, config.Server.MetricsPort, defaultMetricsPort),
		DataPath:        getEnvOrDefault(common.EnvDataPath, orDefault(config.System.DataPath, defaultDataPath)),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, defaultLogLevel)),
		LogFile:         getEnvOrDefault(common.EnvLogFile, config.System.LogFile),
		LogMaxSizeMB:    getIntFromEnvOrConfig(common.EnvLogMaxSizeMB, config.System.LogMaxSizeMB, defaultLogMaxSizeMB),
		InputPolicy:     strings.ToLower(getEnvOrDefault(common.EnvInputPolicy, orDefault(config.Model.InputPolicy, common.InputPolicyTolerant))),
		ParallelScoring: getBoolFromEnvOrConfig(common.EnvParallelScoring, config.Model.ParallelScoring),
		CacheSize:       getIntOrDefault(common.EnvCacheSize, cacheSize),
		CacheTTL:        getDurationOrDefault(common.EnvCacheTTL, cacheTTL),
		WatchModels:     getBoolFromEnvOrConfig(common.EnvWatchModels, config.Model.Watch),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelDir:        getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		LegacyModelPath: getEnvOrDefault(common.EnvLegacyModelPath, common.DefaultLegacyModelPath),
		DatasetPath:     getEnvOrDefault(common.EnvDatasetPath, common.DefaultDatasetPath),
		LabelColumn:     getEnvOrDefault(common.EnvLabelColumn, common.DefaultLabelColumn),
		Port:            getIntOrDefault(common.EnvPort, defaultPort),
		MetricsPort:     getIntOrDefault(common.EnvMetricsPort, defaultMetricsPort),
		DataPath:        getEnvOrDefault(common.EnvDataPath, defaultDataPath),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, defaultLogLevel),
		LogFile:         os.Getenv(common.EnvLogFile), // optional
		LogMaxSizeMB:    getIntOrDefault(common.EnvLogMaxSizeMB, defaultLogMaxSizeMB),
		InputPolicy:     strings.ToLower(getEnvOrDefault(common.EnvInputPolicy, common.InputPolicyTolerant)),
		ParallelScoring: getBoolOrDefault(common.EnvParallelScoring, false),
		CacheSize:       getIntOrDefault(common.EnvCacheSize, defaultCacheSize),
		CacheTTL:        getDurationOrDefault(common.EnvCacheTTL, defaultCacheTTL),
		WatchModels:     getBoolOrDefault(common.EnvWatchModels, false),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, defaultRequestTimeout),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// CatalogEnabled reports whether model loads are recorded under DataPath.
func (s *Settings) CatalogEnabled() bool {
	return s.DataPath != "" && s.DataPath != "-"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate paths
	if strings.TrimSpace(settings.ModelDir) == "" {
		return fmt.Errorf("model directory cannot be empty")
	}
	if strings.TrimSpace(settings.DatasetPath) == "" {
		return fmt.Errorf("dataset path cannot be empty")
	}
	if strings.TrimSpace(settings.LabelColumn) == "" {
		return fmt.Errorf("label column cannot be empty")
	}

	// Validate ports
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.Port == settings.MetricsPort {
		return fmt.Errorf("port and metrics port must differ, both are %d", settings.Port)
	}

	// Validate prediction settings
	switch settings.InputPolicy {
	case common.InputPolicyTolerant, common.InputPolicyStrict:
	default:
		return fmt.Errorf("input policy must be %q or %q, got %q",
			common.InputPolicyTolerant, common.InputPolicyStrict, settings.InputPolicy)
	}
	if settings.CacheSize < 0 || settings.CacheSize > 1_000_000 {
		return fmt.Errorf("cache size must be between 0 and 1000000, got %d", settings.CacheSize)
	}
	if settings.CacheSize > 0 && (settings.CacheTTL < time.Second || settings.CacheTTL > 24*time.Hour) {
		return fmt.Errorf("cache TTL must be between 1s and 24h, got %v", settings.CacheTTL)
	}

	// Validate time durations
	if settings.RequestTimeout < 100*time.Millisecond || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 100ms and 5m, got %v", settings.RequestTimeout)
	}

	// Validate logging
	switch strings.ToLower(settings.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}
	if settings.LogMaxSizeMB <= 0 || settings.LogMaxSizeMB > 10_000 {
		return fmt.Errorf("log max size must be between 1 and 10000 MB, got %d", settings.LogMaxSizeMB)
	}

	return nil
}
