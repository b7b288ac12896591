package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// App holds all runtime configuration for the noticed binary. Batch schedules
// are plain cron specs so operations can retune stage runs without a deploy.
type App struct {
	OpsAddr     string
	DatabaseURL string

	// ReplicaRedisURL points at the internet-facing replica. Empty disables
	// dual-store sync (dirty flags still accumulate for a later sweep).
	ReplicaRedisURL string

	LogLevel    string
	Environment string

	// CronStageRun drives the daily stage batches; CronDirtySweep retries
	// notices whose replica sync previously failed.
	CronStageRun   string
	CronDirtySweep string

	BatchWorkers int
}

// Load reads configuration from environment variables and an optional .env
// file. godotenv never overrides variables already set in the environment.
func Load() (*App, error) {
	_ = godotenv.Load()

	cfg := &App{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.OpsAddr = os.Getenv("OPS_ADDR")
	if cfg.OpsAddr == "" {
		cfg.OpsAddr = ":8080"
	}

	cfg.ReplicaRedisURL = os.Getenv("REPLICA_REDIS_URL")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronStageRun = os.Getenv("CRON_STAGE_RUN")
	if cfg.CronStageRun == "" {
		cfg.CronStageRun = "0 2 * * *"
	}

	cfg.CronDirtySweep = os.Getenv("CRON_DIRTY_SWEEP")
	if cfg.CronDirtySweep == "" {
		cfg.CronDirtySweep = "*/30 * * * *"
	}

	workers := os.Getenv("BATCH_WORKERS")
	if workers == "" {
		cfg.BatchWorkers = 4
	} else {
		n, err := strconv.Atoi(workers)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid BATCH_WORKERS: %q", workers)
		}
		cfg.BatchWorkers = n
	}

	return cfg, nil
}
