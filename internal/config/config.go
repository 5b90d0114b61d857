package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataRoot    string
	OutRoot     string
	PublishRoot string

	StationID int
	ChunkSize int

	LiveDir        string
	LiveWindowDays int
	// RecomputeDaily rebuilds the daily aggregates from the raw store after
	// each successful live merge.
	RecomputeDaily bool

	// Cron expressions in standard five-field form. An empty IngestSchedule
	// disables scheduled ingestion.
	MigrateSchedule string
	IngestSchedule  string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// KafkaBrokers is empty when store update notifications are disabled.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	stationID, err := parsePositiveInt("STATION_ID", 16005701)
	if err != nil {
		return nil, err
	}
	chunkSize, err := parsePositiveInt("CHUNK_SIZE", 200_000)
	if err != nil {
		return nil, err
	}
	windowDays, err := parsePositiveInt("LIVE_WINDOW_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if windowDays > 366 {
		return nil, errors.New("LIVE_WINDOW_DAYS must be at most 366")
	}

	recompute, err := parseBool("MIGRATE_RECOMPUTE_DAILY", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataRoot:        sharedcfg.EnvOrDefault("DATA_ROOT", "data"),
		OutRoot:         sharedcfg.EnvOrDefault("OUT_ROOT", "data/parquet"),
		PublishRoot:     os.Getenv("PUBLISH_ROOT"),
		StationID:       stationID,
		ChunkSize:       chunkSize,
		LiveDir:         sharedcfg.EnvOrDefault("LIVE_DIR", "data/current"),
		LiveWindowDays:  windowDays,
		RecomputeDaily:  recompute,
		MigrateSchedule: sharedcfg.EnvOrDefault("MIGRATE_SCHEDULE", "0 */3 * * *"),
		IngestSchedule:  strings.TrimSpace(os.Getenv("INGEST_SCHEDULE")),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "gauge-store-updates"),
	}
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NotificationsEnabled reports whether store updates are published to Kafka.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// SlogLevel maps LogLevel onto a slog level. Unknown values yield info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) validate() error {
	if c.DataRoot == "" {
		return errors.New("DATA_ROOT is required")
	}
	if c.OutRoot == "" {
		return errors.New("OUT_ROOT is required")
	}
	if c.LiveDir == "" {
		return errors.New("LIVE_DIR is required")
	}
	if c.MigrateSchedule == "" {
		return errors.New("MIGRATE_SCHEDULE is required")
	}
	if _, err := cron.ParseStandard(c.MigrateSchedule); err != nil {
		return fmt.Errorf("invalid MIGRATE_SCHEDULE: %w", err)
	}
	if c.IngestSchedule != "" {
		if _, err := cron.ParseStandard(c.IngestSchedule); err != nil {
			return fmt.Errorf("invalid INGEST_SCHEDULE: %w", err)
		}
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	if c.NotificationsEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: want true or false", key, s)
	}
	return b, nil
}
