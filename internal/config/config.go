package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Maps      MapsConfig
	Session   SessionConfig
	Redis     RedisConfig
	Firebase  FirebaseConfig
	NewRelic  NewRelicConfig
	WebSocket WebSocketConfig
	Log       LogConfig
	Defaults  DefaultsConfig
}

type ServerConfig struct {
	Port string
	Env  string
	Host string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Map providers
const (
	ProviderNominatim        = "nominatim"
	ProviderOpenRouteService = "openrouteservice"
	ProviderGoogle           = "google"
)

type MapsConfig struct {
	Geocoder      string
	Router        string
	NominatimURL  string
	UserAgent     string
	ORSAPIKey     string
	ORSBaseURL    string
	GoogleAPIKey  string
	GoogleBaseURL string
}

// Token store kinds
const (
	SessionMemory = "memory"
	SessionFile   = "file"
	SessionRedis  = "redis"
)

type SessionConfig struct {
	Store     string
	TokenFile string
	DeviceID  string
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	Timeout    time.Duration
	KeyPrefix  string
}

type FirebaseConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
}

type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// DefaultsConfig holds the point both map markers start from
type DefaultsConfig struct {
	Latitude  float64
	Longitude float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
			Timeout: parseDuration(getEnv("BACKEND_TIMEOUT", "30s"), 30*time.Second),
		},
		Maps: MapsConfig{
			Geocoder:      getEnv("MAPS_GEOCODER", ProviderNominatim),
			Router:        getEnv("MAPS_ROUTER", ProviderOpenRouteService),
			NominatimURL:  getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:     getEnv("MAPS_USER_AGENT", "karpool-client/1.0"),
			ORSAPIKey:     getEnv("ORS_API_KEY", ""),
			ORSBaseURL:    getEnv("ORS_BASE_URL", "https://api.openrouteservice.org"),
			GoogleAPIKey:  getEnv("GOOGLE_MAPS_API_KEY", ""),
			GoogleBaseURL: getEnv("GOOGLE_MAPS_BASE_URL", ""),
		},
		Session: SessionConfig{
			Store:     getEnv("SESSION_STORE", SessionFile),
			TokenFile: getEnv("SESSION_TOKEN_FILE", defaultTokenFile()),
			DeviceID:  getEnv("SESSION_DEVICE_ID", "default"),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			MaxRetries: getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:   getEnvAsInt("REDIS_POOL_SIZE", 10),
			Timeout:    parseDuration(getEnv("REDIS_TIMEOUT", "3s"), 3*time.Second),
			KeyPrefix:  getEnv("REDIS_KEY_PREFIX", "karpool"),
		},
		Firebase: FirebaseConfig{
			Enabled:         getEnvAsBool("FIREBASE_ENABLED", false),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		NewRelic: NewRelicConfig{
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			AppName:    getEnv("NEW_RELIC_APP_NAME", "Karpool-Client"),
			Enabled:    getEnvAsBool("NEW_RELIC_ENABLED", false),
			LogLevel:   getEnv("NEW_RELIC_LOG_LEVEL", "info"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
			AllowedOrigins:  getEnvAsList("WS_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Defaults: DefaultsConfig{
			Latitude:  getEnvAsFloat64("DEFAULT_LATITUDE", 24.8607),
			Longitude: getEnvAsFloat64("DEFAULT_LONGITUDE", 67.1011),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("BACKEND_URL must be an http(s) URL")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}

	switch c.Maps.Geocoder {
	case ProviderNominatim:
	case ProviderGoogle:
		if c.Maps.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google geocoder")
		}
	default:
		return fmt.Errorf("unknown MAPS_GEOCODER %q", c.Maps.Geocoder)
	}
	switch c.Maps.Router {
	case ProviderOpenRouteService:
		if c.Maps.ORSAPIKey == "" && c.Server.Env == "production" {
			return fmt.Errorf("ORS_API_KEY must be set in production")
		}
	case ProviderGoogle:
		if c.Maps.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google router")
		}
	default:
		return fmt.Errorf("unknown MAPS_ROUTER %q", c.Maps.Router)
	}

	switch c.Session.Store {
	case SessionMemory:
	case SessionFile:
		if c.Session.TokenFile == "" {
			return fmt.Errorf("SESSION_TOKEN_FILE is required for the file store")
		}
	case SessionRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.Session.Store)
	}

	if c.Firebase.Enabled && c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required when Firebase is enabled")
	}
	if c.Defaults.Latitude < -90 || c.Defaults.Latitude > 90 ||
		c.Defaults.Longitude < -180 || c.Defaults.Longitude > 180 {
		return fmt.Errorf("DEFAULT_LATITUDE/DEFAULT_LONGITUDE out of range")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "karpool", "token")
}
