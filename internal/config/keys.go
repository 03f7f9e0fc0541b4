package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "be1...6ec"
}

// CheckAPIKeys returns the status of all optional API keys. Everything
// except weather works without credentials; the agmarknet scraper and RSS
// feeds are public.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	envVar := "KISANMITRA_WEATHER_API_KEY"
	if os.Getenv(envVar) == "" && os.Getenv("OPENWEATHER_API_KEY") != "" {
		envVar = "OPENWEATHER_API_KEY"
	}
	return []KeyStatus{
		checkKey("OpenWeatherMap API Key", cfg.Weather.APIKey, envVar),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value != "" {
		// Check if it came from env
		if os.Getenv(envVar) != "" {
			status.Source = KeySourceEnv
		} else {
			status.Source = KeySourceConfig
		}
		status.Masked = maskKey(value)
	} else {
		status.Source = KeySourceNone
	}

	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
