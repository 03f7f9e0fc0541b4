package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	// Unset any env vars that would interfere
	envVars := []string{
		"KISANMITRA_WEATHER_API_KEY", "OPENWEATHER_API_KEY",
		"KISANMITRA_API_PORT", "KISANMITRA_MANDI_LOOKBACK_DAYS",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Mandi defaults
	if cfg.Mandi.BaseURL != "https://agmarknet.gov.in" {
		t.Errorf("Mandi.BaseURL: got %q", cfg.Mandi.BaseURL)
	}
	if cfg.Mandi.LookbackDays != 7 {
		t.Errorf("Mandi.LookbackDays: got %d, want 7", cfg.Mandi.LookbackDays)
	}
	if cfg.Mandi.MaxAlternateMarkets != 3 {
		t.Errorf("Mandi.MaxAlternateMarkets: got %d, want 3", cfg.Mandi.MaxAlternateMarkets)
	}
	if cfg.Mandi.AdapterTimeoutSec != 10 {
		t.Errorf("Mandi.AdapterTimeoutSec: got %d, want 10", cfg.Mandi.AdapterTimeoutSec)
	}
	if cfg.Mandi.RetryAttempts != 2 {
		t.Errorf("Mandi.RetryAttempts: got %d, want 2", cfg.Mandi.RetryAttempts)
	}
	if cfg.Mandi.RequestsPerSec != 2 {
		t.Errorf("Mandi.RequestsPerSec: got %d, want 2", cfg.Mandi.RequestsPerSec)
	}
	if cfg.Mandi.AdapterTimeout() != 10*time.Second {
		t.Errorf("AdapterTimeout: got %v", cfg.Mandi.AdapterTimeout())
	}

	// Weather defaults
	if cfg.Weather.CacheTTLMin != 30 {
		t.Errorf("Weather.CacheTTLMin: got %d, want 30", cfg.Weather.CacheTTLMin)
	}
	if cfg.Weather.CacheTTL() != 30*time.Minute {
		t.Errorf("Weather.CacheTTL: got %v", cfg.Weather.CacheTTL())
	}
	if cfg.Weather.APIKey != "" {
		t.Errorf("Weather.APIKey should be empty by default, got %q", cfg.Weather.APIKey)
	}

	// News defaults
	if cfg.News.Limit != 10 {
		t.Errorf("News.Limit: got %d, want 10", cfg.News.Limit)
	}

	// Profile defaults
	if cfg.Profile.Path != "context/farmer_profile.json" {
		t.Errorf("Profile.Path: got %q", cfg.Profile.Path)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	// Create a temp config file
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
mandi:
  lookback_days: 3
  max_alternate_markets: 1
  adapter_timeout_sec: 5
weather:
  api_key: "file-weather-key-123456"
  cache_ttl_min: 15
profile:
  path: "testdata/profile.json"
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	// Unset env vars
	os.Unsetenv("KISANMITRA_WEATHER_API_KEY")
	os.Unsetenv("OPENWEATHER_API_KEY")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Mandi.LookbackDays != 3 {
		t.Errorf("Mandi.LookbackDays: got %d, want 3", cfg.Mandi.LookbackDays)
	}
	if cfg.Mandi.MaxAlternateMarkets != 1 {
		t.Errorf("Mandi.MaxAlternateMarkets: got %d, want 1", cfg.Mandi.MaxAlternateMarkets)
	}
	if cfg.Mandi.AdapterTimeoutSec != 5 {
		t.Errorf("Mandi.AdapterTimeoutSec: got %d, want 5", cfg.Mandi.AdapterTimeoutSec)
	}
	// Unspecified mandi keys keep defaults.
	if cfg.Mandi.RetryAttempts != 2 {
		t.Errorf("Mandi.RetryAttempts: got %d, want default 2", cfg.Mandi.RetryAttempts)
	}
	if cfg.Weather.APIKey != "file-weather-key-123456" {
		t.Errorf("Weather.APIKey: got %q", cfg.Weather.APIKey)
	}
	if cfg.Weather.CacheTTLMin != 15 {
		t.Errorf("Weather.CacheTTLMin: got %d, want 15", cfg.Weather.CacheTTLMin)
	}
	if cfg.Profile.Path != "testdata/profile.json" {
		t.Errorf("Profile.Path: got %q", cfg.Profile.Path)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	cfg := &Config{}

	os.Setenv("KISANMITRA_WEATHER_API_KEY", "env-weather-key-123456")
	defer os.Unsetenv("KISANMITRA_WEATHER_API_KEY")

	overrideFromEnv(cfg)

	if cfg.Weather.APIKey != "env-weather-key-123456" {
		t.Errorf("Weather.APIKey: got %q", cfg.Weather.APIKey)
	}
}

func TestOverrideFromEnvFallbackVar(t *testing.T) {
	cfg := &Config{}

	os.Unsetenv("KISANMITRA_WEATHER_API_KEY")
	os.Setenv("OPENWEATHER_API_KEY", "owm-conventional-key-789")
	defer os.Unsetenv("OPENWEATHER_API_KEY")

	overrideFromEnv(cfg)

	if cfg.Weather.APIKey != "owm-conventional-key-789" {
		t.Errorf("Weather.APIKey: got %q, want fallback env value", cfg.Weather.APIKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	os.Unsetenv("KISANMITRA_WEATHER_API_KEY")
	os.Unsetenv("OPENWEATHER_API_KEY")

	cfg := &Config{
		Weather: WeatherConfig{APIKey: "from-config"},
	}
	overrideFromEnv(cfg)

	// Should retain the original value when env is not set
	if cfg.Weather.APIKey != "from-config" {
		t.Errorf("Weather.APIKey should stay as 'from-config' when env is unset, got %q", cfg.Weather.APIKey)
	}
}

// ── maskKey ──

func TestMaskKeyShort(t *testing.T) {
	// Keys with 8 or fewer characters should be fully masked
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"a", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMaskKeyLong(t *testing.T) {
	// Keys with more than 8 characters show first 3 + ... + last 3
	tests := []struct {
		input string
		want  string
	}{
		{"123456789", "123...789"},
		{"be1aacd35c28c14b6c62ad0fa78ac6ec", "be1...6ec"},
		{"ABCDEFGHIJKLMNOP", "ABC...NOP"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	os.Unsetenv("KISANMITRA_WEATHER_API_KEY")
	os.Unsetenv("OPENWEATHER_API_KEY")

	cfg := &Config{}
	statuses := CheckAPIKeys(cfg)

	if len(statuses) != 1 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 1", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet {
			t.Errorf("Key %q should not be set", s.Name)
		}
		if s.Source != KeySourceNone {
			t.Errorf("Key %q source: got %q, want %q", s.Name, s.Source, KeySourceNone)
		}
	}
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	os.Unsetenv("KISANMITRA_WEATHER_API_KEY")
	os.Unsetenv("OPENWEATHER_API_KEY")

	cfg := &Config{
		Weather: WeatherConfig{APIKey: "config-weather-key-value"},
	}
	statuses := CheckAPIKeys(cfg)

	s := statuses[0]
	if !s.IsSet {
		t.Error("weather key should be set")
	}
	if s.Source != KeySourceConfig {
		t.Errorf("Source: got %q, want %q", s.Source, KeySourceConfig)
	}
	if s.Masked != "con...lue" {
		t.Errorf("Masked: got %q, want %q", s.Masked, "con...lue")
	}
}

func TestCheckAPIKeysFromEnv(t *testing.T) {
	os.Setenv("KISANMITRA_WEATHER_API_KEY", "env-weather-key-value")
	defer os.Unsetenv("KISANMITRA_WEATHER_API_KEY")

	cfg := &Config{
		Weather: WeatherConfig{APIKey: "env-weather-key-value"},
	}
	statuses := CheckAPIKeys(cfg)

	if statuses[0].Source != KeySourceEnv {
		t.Errorf("Source: got %q, want %q", statuses[0].Source, KeySourceEnv)
	}
}

func TestCheckKeySourceDetection(t *testing.T) {
	// No env, no value
	os.Unsetenv("TEST_VAR")
	s := checkKey("Test", "", "TEST_VAR")
	if s.Source != KeySourceNone {
		t.Errorf("empty value: got source %q, want %q", s.Source, KeySourceNone)
	}
	if s.IsSet {
		t.Error("empty value should not be set")
	}

	// Value from config (no env)
	s = checkKey("Test", "config-value-long-enough", "TEST_VAR")
	if s.Source != KeySourceConfig {
		t.Errorf("config value: got source %q, want %q", s.Source, KeySourceConfig)
	}
	if !s.IsSet {
		t.Error("config value should be set")
	}

	// Value from env
	os.Setenv("TEST_VAR", "env-value-long-enough")
	defer os.Unsetenv("TEST_VAR")
	s = checkKey("Test", "env-value-long-enough", "TEST_VAR")
	if s.Source != KeySourceEnv {
		t.Errorf("env value: got source %q, want %q", s.Source, KeySourceEnv)
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	h := homeDir()
	if h == "" {
		t.Error("homeDir() should not return empty string")
	}
}

// ── APIKeySource constants ──

func TestAPIKeySourceConstants(t *testing.T) {
	if string(KeySourceEnv) != "env" {
		t.Errorf("KeySourceEnv: got %q", KeySourceEnv)
	}
	if string(KeySourceConfig) != "config" {
		t.Errorf("KeySourceConfig: got %q", KeySourceConfig)
	}
	if string(KeySourceNone) != "none" {
		t.Errorf("KeySourceNone: got %q", KeySourceNone)
	}
}
