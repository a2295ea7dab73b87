package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Booking engine configuration
	Booking BookingConfig

	// Search engine configuration
	Search SearchConfig

	// Redis cache configuration
	Redis RedisConfig

	// Message queue configuration
	Queue QueueConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// BookingConfig holds hold and commit protocol configuration
type BookingConfig struct {
	HoldTTL       time.Duration // how long a seat lock stays valid
	CommitGrace   time.Duration // expiry extension while a payment commit runs
	SweepSchedule string        // cron spec for the expired-lock sweep
}

// SearchConfig holds itinerary search configuration
type SearchConfig struct {
	DirectWindow  time.Duration // window scanned for direct departures
	Horizon       time.Duration // bounded horizon for the transfer search
	MinConnection time.Duration // minimum time between legs of different routes
	Workers       int           // worker pool size for per-origin-segment searches
	MaxResults    int
}

// RedisConfig holds search cache configuration. Caching is disabled when
// Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// QueueConfig holds message broker configuration. Publishing is disabled
// when URL is empty.
type QueueConfig struct {
	URL string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Booking: BookingConfig{
			HoldTTL:       time.Duration(getEnvAsInt("HOLD_TTL_MINUTES", 20)) * time.Minute,
			CommitGrace:   time.Duration(getEnvAsInt("COMMIT_GRACE_MINUTES", 5)) * time.Minute,
			SweepSchedule: getEnv("HOLD_SWEEP_SCHEDULE", "0 * * * * *"),
		},
		Search: SearchConfig{
			DirectWindow:  time.Duration(getEnvAsInt("SEARCH_DIRECT_WINDOW_HOURS", 24)) * time.Hour,
			Horizon:       time.Duration(getEnvAsInt("SEARCH_HORIZON_HOURS", 72)) * time.Hour,
			MinConnection: time.Duration(getEnvAsInt("SEARCH_MIN_CONNECTION_MINUTES", 15)) * time.Minute,
			Workers:       getEnvAsInt("SEARCH_WORKERS", 4),
			MaxResults:    getEnvAsInt("SEARCH_MAX_RESULTS", 20),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("REDIS_SEARCH_TTL_SECONDS", 30)) * time.Second,
		},
		Queue: QueueConfig{
			URL: getEnv("AMQP_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL_MINUTES must be positive")
	}

	if c.Search.Workers < 1 {
		return fmt.Errorf("SEARCH_WORKERS must be at least 1")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
