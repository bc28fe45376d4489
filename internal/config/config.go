package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB       DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	StockX   StockXConfig
	RapidAPI RapidAPIConfig
	Scraper  ScraperConfig
	Worker   WorkerConfig
	Admin    AdminConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig controls the below-retail page cache.
type CacheConfig struct {
	TTL time.Duration
}

// StockXConfig contains credentials for the official StockX catalog API.
type StockXConfig struct {
	APIKey  string
	BaseURL string
}

// RapidAPIConfig contains credentials for the RapidAPI StockX proxy.
type RapidAPIConfig struct {
	APIKey  string
	BaseURL string
}

// ScraperConfig controls the HTML scraper data source.
type ScraperConfig struct {
	UserAgent    string
	RequestDelay time.Duration
}

// WorkerConfig contains configuration for background workers and the
// top-level deadline applied to a single orchestrated fetch.
type WorkerConfig struct {
	RefreshInterval time.Duration
	RefreshBrands   []string
	FetchTimeout    time.Duration
}

// AdminConfig contains the bootstrap admin credentials. When both fields are
// set, the account is created at startup if it does not already exist.
type AdminConfig struct {
	Email    string
	Password string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Upstream sources
	cfg.StockX = StockXConfig{
		APIKey:  getEnv("STOCKX_API_KEY", ""),
		BaseURL: getEnv("STOCKX_BASE_URL", "https://gateway.stockx.com/api/v3"),
	}
	cfg.RapidAPI = RapidAPIConfig{
		APIKey:  getEnv("RAPIDAPI_KEY", ""),
		BaseURL: getEnv("RAPIDAPI_BASE_URL", "https://stockx1.p.rapidapi.com"),
	}
	cfg.Scraper = ScraperConfig{
		UserAgent: getEnv("SCRAPER_USER_AGENT", "RetailRadar/1.0.0"),
	}

	// Admin bootstrap
	cfg.Admin = AdminConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
	}

	// Durations
	var err error
	if cfg.Cache.TTL, err = parseDurationEnv("CACHE_TTL", "30m"); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.Scraper.RequestDelay, err = parseDurationEnv("SCRAPER_REQUEST_DELAY", "2s"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_REQUEST_DELAY: %w", err)
	}
	if cfg.Worker.RefreshInterval, err = parseDurationEnv("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if cfg.Worker.FetchTimeout, err = parseDurationEnv("SOURCE_FETCH_TIMEOUT", "2m"); err != nil {
		return nil, fmt.Errorf("invalid SOURCE_FETCH_TIMEOUT: %w", err)
	}
	cfg.Worker.RefreshBrands = splitList(getEnv("REFRESH_BRANDS", "Supreme"))

	// Basic validation for DB parameters.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for admin authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// splitList splits a comma-separated env value into trimmed, non-empty items.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
