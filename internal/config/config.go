package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Port                   string
	Env                    string
	DBPath                 string
	MigrationsDir          string
	JWTSecret              string
	TokenTTL               time.Duration
	RefreshTTL             time.Duration
	CORSOrigins            []string
	LogLevel               string
	LogFormat              string
	RedisURL               string
	CloseAbandonedSessions bool
	TickInterval           time.Duration
}

// Load reads configuration from the environment. Values found in .env.local
// or .env are applied first without overriding variables that are already set.
func Load() Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	return Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    getEnv("APP_ENV", EnvDevelopment),
		DBPath:                 getEnv("DB_PATH", "./data/focusrooms.db"),
		MigrationsDir:          getEnv("MIGRATIONS_DIR", "./migrations"),
		JWTSecret:              getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:               time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		RefreshTTL:             time.Duration(getEnvInt("REFRESH_TTL_HOURS", 720)) * time.Hour,
		CORSOrigins:            getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		RedisURL:               getEnv("REDIS_URL", ""),
		CloseAbandonedSessions: getEnvBool("CLOSE_ABANDONED_SESSIONS", true),
		TickInterval:           time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
	}
}

// SecureCookies reports whether auth cookies must carry the Secure attribute.
func (c Config) SecureCookies() bool {
	return c.Env != EnvDevelopment
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
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

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
