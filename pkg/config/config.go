package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	RedisURL           string
	JWTSecret          string
	TokenTTL           time.Duration
	CORSAllowedOrigins []string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RateLimitRequests  int
	RateLimitWindow    time.Duration
	AuthRateLimit      int // stricter limit applied to /api/register and /api/login
	StatsInterval      time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	// Single explicit token lifetime default. The legacy system carried two
	// (30 minutes at the login call site, 15 minutes as an internal
	// fallback); 30 minutes is what logins actually produced, so that is
	// the one default here.
	tokenTTLMinutes, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	rateLimitRequests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}

	rateLimitWindowSec, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}

	authRateLimit, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT_REQUESTS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT_REQUESTS: %w", err)
	}

	statsIntervalSec, err := strconv.Atoi(getEnv("STATS_INTERVAL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_INTERVAL_SECONDS: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenTTL:    time.Duration(tokenTTLMinutes) * time.Minute,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "activities"),
		DBPassword: getEnv("DB_PASSWORD", "dev"),
		DBName:     getEnv("DB_NAME", "activities"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RateLimitRequests: rateLimitRequests,
		RateLimitWindow:   time.Duration(rateLimitWindowSec) * time.Second,
		AuthRateLimit:     authRateLimit,
		StatsInterval:     time.Duration(statsIntervalSec) * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
