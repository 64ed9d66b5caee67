package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                  string
	DBPath                string
	SettingsPath          string
	JWTSecret             string
	PairingPassphraseHash string
	TokenTTL              time.Duration
	CORSOrigins           []string
	LogLevel              string
	LogFormat             string
	WeekStart             string
	Timezone              string
}

func Load() Config {
	return Config{
		Port:                  getEnv("PORT", "8080"),
		DBPath:                getEnv("DB_PATH", "./data/converge.db"),
		SettingsPath:          getEnv("SETTINGS_PATH", "./data/settings.yaml"),
		JWTSecret:             getEnv("JWT_SECRET", "change-this-secret"),
		PairingPassphraseHash: getEnv("PAIRING_PASSPHRASE_HASH", ""),
		TokenTTL:              time.Duration(getEnvInt("TOKEN_TTL_HOURS", 720)) * time.Hour,
		CORSOrigins:           getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		WeekStart:             getEnv("WEEK_START", "sunday"),
		Timezone:              getEnv("TIMEZONE", ""),
	}
}

// Location resolves Timezone, defaulting to the process zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
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
