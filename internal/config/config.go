package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerAddr string
	LogLevel   string
	LogDev     bool

	CatalogPath       string
	DefaultBudget     int64
	DefaultBidTimeout int
	TickInterval      time.Duration
	SettleDelay       time.Duration
	EventQueueSize    int

	NatsURL       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	PredictURL   string
	PredictModel string
}

// Load reads an optional .env file and then the environment. Variables that
// are already set win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		ServerAddr:        GetEnv("SERVER_ADDR", ":8080"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogDev:            GetEnvBool("LOG_DEV", false),
		CatalogPath:       GetEnv("CATALOG_PATH", ""),
		DefaultBudget:     int64(GetEnvInt("DEFAULT_BUDGET", 50_000_000)),
		DefaultBidTimeout: GetEnvInt("DEFAULT_BID_TIMEOUT", 30),
		TickInterval:      GetEnvDuration("TICK_INTERVAL", time.Second),
		SettleDelay:       GetEnvDuration("SETTLE_DELAY", 2*time.Second),
		EventQueueSize:    GetEnvInt("EVENT_QUEUE_SIZE", 256),
		NatsURL:           GetEnv("NATS_URL", ""),
		RedisAddr:         GetEnv("REDIS_ADDR", ""),
		RedisPassword:     GetEnv("REDIS_PASSWORD", ""),
		RedisDB:           GetEnvInt("REDIS_DB", 0),
		DatabaseURL:       GetEnv("DATABASE_URL", ""),
		PredictURL:        GetEnv("PREDICT_URL", ""),
		PredictModel:      GetEnv("PREDICT_MODEL", "llama3"),
	}

	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if cfg.DefaultBidTimeout <= 0 {
		return nil, fmt.Errorf("DEFAULT_BID_TIMEOUT must be positive, got %d", cfg.DefaultBidTimeout)
	}
	return cfg, nil
}

func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func GetEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
