package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BotToken string
	AppEnv   string
	Database DatabaseConfig
	Backend  BackendConfig
	Auth     AuthConfig
	UI       UIConfig

	StateKey      string
	MetricsAddr   string
	RetentionDays int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// BackendConfig holds the divination backend client settings
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSec     float64
	Burst          int
}

// AuthConfig holds the auth provider settings
type AuthConfig struct {
	SupabaseURL      string
	SupabaseAnonKey  string
	RedirectURL      string
	RefreshThreshold time.Duration
	ProbeTimeout     time.Duration
	Watchdog         time.Duration
}

// UIConfig holds timings of the wizard
type UIConfig struct {
	ErrorDisplay    time.Duration
	LoadingDuration time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		AppEnv:   getEnv("APP_ENV", "production"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "uranai"),
			User:     getEnv("DB_USER", "uranai"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		Backend: BackendConfig{
			BaseURL:        os.Getenv("API_BASE_URL"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 45*time.Second),
			RatePerSec:     getEnvFloat("BACKEND_RATE_PER_SEC", 5),
			Burst:          getEnvInt("BACKEND_BURST", 10),
		},
		Auth: AuthConfig{
			SupabaseURL:      os.Getenv("SUPABASE_URL"),
			SupabaseAnonKey:  os.Getenv("SUPABASE_ANON_KEY"),
			RedirectURL:      os.Getenv("AUTH_REDIRECT_URL"),
			RefreshThreshold: getEnvDuration("TOKEN_REFRESH_THRESHOLD", 5*time.Minute),
			ProbeTimeout:     getEnvDuration("AUTH_PROBE_TIMEOUT", 2*time.Second),
			Watchdog:         getEnvDuration("AUTH_WATCHDOG", 5*time.Second),
		},
		UI: UIConfig{
			ErrorDisplay:    getEnvDuration("ERROR_DISPLAY", 3*time.Second),
			LoadingDuration: getEnvDuration("LOADING_DURATION", 3*time.Second),
		},
		StateKey:      getEnv("APP_STATE_KEY", "uranai-app-storage"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		RetentionDays: getEnvInt("STATE_RETENTION_DAYS", 60),
	}
	if value, set := os.LookupEnv("METRICS_ADDR"); set && value == "" {
		cfg.MetricsAddr = ""
	}

	// Validate required fields
	required := []struct {
		key   string
		value string
	}{
		{"BOT_TOKEN", cfg.BotToken},
		{"API_BASE_URL", cfg.Backend.BaseURL},
		{"SUPABASE_URL", cfg.Auth.SupabaseURL},
		{"SUPABASE_ANON_KEY", cfg.Auth.SupabaseAnonKey},
		{"DB_PASSWORD", cfg.Database.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s is required", r.key)
		}
	}

	return cfg, nil
}

// Development reports whether the development logger should be used
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// StateKeyFor returns the persisted-record key of a chat
func (c *Config) StateKeyFor(chatID int64) string {
	return fmt.Sprintf("%s:%d", c.StateKey, chatID)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

// getEnvDuration falls back to defaultValue when the variable is unset or malformed
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
