package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	Environment          string
	MigrationsDir        string
	SeedAdminEmail       string
	SeedAdminPassword    string
	RunMigrations        bool
	RunSeed              bool
	MaxBodyBytes         int64
	MetricsEnabled       bool
	LeaveExcludeHolidays bool
	LeaveCarryOverCap    float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, without overriding variables already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		Environment:          getEnv("APP_ENV", "development"),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		SeedAdminEmail:       getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
		SeedAdminPassword:    getEnv("SEED_ADMIN_PASSWORD", ""),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:              getEnvBool("RUN_SEED", true),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		LeaveExcludeHolidays: getEnvBool("LEAVE_EXCLUDE_HOLIDAYS", true),
		LeaveCarryOverCap:    getEnvFloat("LEAVE_CARRY_OVER_CAP", 0),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.LeaveCarryOverCap < 0 {
		return fmt.Errorf("LEAVE_CARRY_OVER_CAP must not be negative")
	}
	return nil
}
