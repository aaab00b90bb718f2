package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Document
	DocumentPath string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount       int
	MaxQueueSize      int
	DecodeConcurrency int

	// Job state
	JobTTL time.Duration

	// Search
	SearchSkipExcluded bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocumentPath: os.Getenv("DOCUMENT_PATH"),

		APIKey: os.Getenv("NOTETREE_API_KEY"),

		WorkerCount:       envInt("WORKER_COUNT", 2),
		MaxQueueSize:      envInt("MAX_QUEUE_SIZE", 32),
		DecodeConcurrency: envInt("DECODE_CONCURRENCY", 8),

		JobTTL: envDuration("JOB_TTL", 15*time.Minute),

		SearchSkipExcluded: envBool("SEARCH_SKIP_EXCLUDED", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 32
	}
	if cfg.DecodeConcurrency <= 0 {
		cfg.DecodeConcurrency = 8
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 15 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DocumentPath == "" {
		return fmt.Errorf("DOCUMENT_PATH is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("NOTETREE_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
