package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// App holds runtime configuration derived from env vars or files.
type App struct {
	Environment   string        `yaml:"environment"`
	LogLevel      string        `yaml:"log_level"`
	TTL           time.Duration `yaml:"ttl"`
	StorageDriver string        `yaml:"storage_driver"`
	StateFile     string        `yaml:"state_file"`
	Slot          string        `yaml:"slot"`
	DatabaseURL   string        `yaml:"database_url"`
	KafkaBrokers  []string      `yaml:"kafka_brokers"`
	KafkaTopic    string        `yaml:"kafka_topic"`
}

// Defaults returns the configuration used when nothing is set.
// A zero TTL means the usage log's own default.
func Defaults() App {
	return App{
		Environment:   "production",
		LogLevel:      "info",
		StorageDriver: "memory",
		StateFile:     "usage.json",
		Slot:          "history",
		KafkaTopic:    "usage-snapshots",
	}
}

// FromEnv loads the application configuration from environment variables.
func FromEnv() (App, error) {
	cfg := Defaults()
	if err := applyEnv(&cfg); err != nil {
		return App{}, err
	}
	return cfg, nil
}

// Load reads a YAML file and then applies environment overrides on top.
func Load(path string) (App, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return App{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return App{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return App{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *App) error {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.StateFile = getEnv("STATE_FILE", cfg.StateFile)
	cfg.Slot = getEnv("USAGE_SLOT", cfg.Slot)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = splitList(raw)
	}

	if raw := os.Getenv("USAGE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid USAGE_TTL %q: %w", raw, err)
		}
		cfg.TTL = ttl
	} else if raw := os.Getenv("USAGE_TTL_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid USAGE_TTL_DAYS %q: %w", raw, err)
		}
		cfg.TTL = time.Duration(days) * 24 * time.Hour
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
