// Package config handles configuration loading for Kisan Mitra.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Mandi   MandiConfig   `mapstructure:"mandi"   yaml:"mandi"`
	Weather WeatherConfig `mapstructure:"weather" yaml:"weather"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Profile ProfileConfig `mapstructure:"profile" yaml:"profile"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// MandiConfig holds market intelligence settings.
type MandiConfig struct {
	BaseURL             string `mapstructure:"base_url"              yaml:"base_url"`
	LookbackDays        int    `mapstructure:"lookback_days"         yaml:"lookback_days"`
	MaxAlternateMarkets int    `mapstructure:"max_alternate_markets" yaml:"max_alternate_markets"`
	AdapterTimeoutSec   int    `mapstructure:"adapter_timeout_sec"   yaml:"adapter_timeout_sec"`
	RetryAttempts       int    `mapstructure:"retry_attempts"        yaml:"retry_attempts"`
	RequestsPerSec      int    `mapstructure:"requests_per_sec"      yaml:"requests_per_sec"`
}

// AdapterTimeout returns the per-attempt source timeout as a duration.
func (c MandiConfig) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSec) * time.Second
}

// WeatherConfig holds OpenWeatherMap settings.
type WeatherConfig struct {
	APIKey      string `mapstructure:"api_key"       yaml:"api_key"`
	CacheTTLMin int    `mapstructure:"cache_ttl_min" yaml:"cache_ttl_min"`
}

// CacheTTL returns the weather cache TTL as a duration.
func (c WeatherConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// NewsConfig holds agri news feed settings.
type NewsConfig struct {
	Limit int `mapstructure:"limit" yaml:"limit"` // default article count
}

// ProfileConfig points at the farmer profile file.
type ProfileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.kisanmitra/config.yaml (home directory)
//  3. /etc/kisanmitra/config.yaml (system)
//
// Environment variables override config file values.
// Format: KISANMITRA_<SECTION>_<KEY>, e.g., KISANMITRA_WEATHER_API_KEY
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".kisanmitra"))
	v.AddConfigPath("/etc/kisanmitra")

	// Environment variable settings
	v.SetEnvPrefix("KISANMITRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("KISANMITRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Mandi defaults
	v.SetDefault("mandi.base_url", "https://agmarknet.gov.in")
	v.SetDefault("mandi.lookback_days", 7)
	v.SetDefault("mandi.max_alternate_markets", 3)
	v.SetDefault("mandi.adapter_timeout_sec", 10)
	v.SetDefault("mandi.retry_attempts", 2)
	v.SetDefault("mandi.requests_per_sec", 2)

	// Weather defaults
	v.SetDefault("weather.cache_ttl_min", 30)

	// News defaults
	v.SetDefault("news.limit", 10)

	// Profile defaults
	v.SetDefault("profile.path", "context/farmer_profile.json")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("KISANMITRA_WEATHER_API_KEY"); key != "" {
		cfg.Weather.APIKey = key
	}
	// Accept the conventional variable name too.
	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
