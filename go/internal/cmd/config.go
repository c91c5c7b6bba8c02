package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration: environment variables for
// deployment settings and an optional YAML file for league behaviour.
type Config struct {
	Port               string
	StoreDriver        string // postgres or memory
	LogLevel           string
	NATSEnabled        bool
	NATSURL            string
	SchedulerWorkers   int
	OutboxPollInterval time.Duration
	ShutdownTimeout    time.Duration
	File               FileConfig
}

// FileConfig is the YAML part of the configuration.
type FileConfig struct {
	Draft struct {
		AutopickStrategy string `yaml:"autopick_strategy"`
		AutopickSeed     uint64 `yaml:"autopick_seed"`
	} `yaml:"draft"`
	Seed struct {
		PlayersFile string          `yaml:"players_file"`
		Leagues     []LeagueFixture `yaml:"leagues"`
	} `yaml:"seed"`
}

// LeagueFixture describes a league preloaded into the memory store.
type LeagueFixture struct {
	Name         string   `yaml:"name"`
	RosterSize   int      `yaml:"roster_size"`
	StarterCount int      `yaml:"starter_count"`
	Teams        []string `yaml:"teams"`
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		StoreDriver:        getEnv("STORE_DRIVER", "postgres"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		NATSEnabled:        getEnvAsBool("NATS_ENABLED", false),
		NATSURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		SchedulerWorkers:   getEnvAsInt("SCHEDULER_WORKERS", 4),
		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	switch cfg.StoreDriver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		file, err := loadFileConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.File = *file
	}
	return cfg, nil
}

func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
