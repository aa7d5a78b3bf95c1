package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Paris 등 시간대 (컨테이너에 zoneinfo 없음)

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External data sources
	Yahoo     YahooConfig
	Wikipedia WikipediaConfig

	// Strategy YAML path (empty = built-in defaults)
	StrategyConfigPath string

	// Scheduling
	EnableAutoScheduling bool
	Timezone             string

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds the run store configuration.
// URL selects the driver: postgres://, postgresql:// or sqlite://
type DatabaseConfig struct {
	URL string

	// Connection Pool (PostgreSQL only)
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

// WikipediaConfig holds the constituents source configuration
type WikipediaConfig struct {
	BaseURL   string
	UserAgent string
}

// Driver names returned by DatabaseConfig.Driver
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "sqlite://./database/momentor.db"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Yahoo: YahooConfig{
			BaseURL:        getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			Timeout:        getEnvAsDuration("YAHOO_TIMEOUT", "15s"),
			RequestsPerSec: getEnvAsFloat("YAHOO_RATE_LIMIT", 4),
			Burst:          getEnvAsInt("YAHOO_BURST", 2),
		},

		Wikipedia: WikipediaConfig{
			BaseURL:   getEnv("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org"),
			UserAgent: getEnv("WIKIPEDIA_USER_AGENT", "MoMentor/1.0 (+https://github.com/CedricEugeni/MoMentor)"),
		},

		StrategyConfigPath: getEnv("STRATEGY_CONFIG", ""),

		EnableAutoScheduling: getEnvAsBool("ENABLE_AUTO_SCHEDULING", true),
		Timezone:             getEnv("TZ", "Europe/Paris"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Driver returns the database driver implied by the URL scheme
func (d DatabaseConfig) Driver() string {
	switch {
	case strings.HasPrefix(d.URL, "postgres://"), strings.HasPrefix(d.URL, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(d.URL, "sqlite://"):
		return DriverSQLite
	default:
		return ""
	}
}

// SQLitePath returns the file path of a sqlite:// URL.
// "sqlite:///./database/momentor.db" and "sqlite://./database/momentor.db" are both accepted.
func (d DatabaseConfig) SQLitePath() string {
	path := strings.TrimPrefix(d.URL, "sqlite://")
	if strings.HasPrefix(path, "/./") {
		path = path[1:]
	}
	return path
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.Driver() == "" {
		return fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite://")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TZ %q is not a valid location: %w", c.Timezone, err)
	}

	if c.Yahoo.RequestsPerSec <= 0 {
		return fmt.Errorf("YAHOO_RATE_LIMIT must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
