package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CADENCE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CADENCE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// APIKey returns the single API key callers must present.
// Auth is disabled when empty.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// ModelDir is where per-user model snapshots are written.
// Defaults to "models".
func ModelDir() string {
	dir := os.Getenv("MODEL_DIR")
	if dir == "" {
		return "models"
	}
	return dir
}

// PersistInterval is how often dirty models are flushed to disk.
// Defaults to 300 seconds.
func PersistInterval() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("PERSIST_INTERVAL_SECONDS"))
	if err != nil || secs <= 0 {
		return 300 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// InferenceInterval is how often the implicit-feedback sweep runs.
// Defaults to 10 minutes.
func InferenceInterval() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("INFERENCE_INTERVAL_SECONDS"))
	if err != nil || secs <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(secs) * time.Second
}

// InferenceMinAge is how old an open recommendation must be before an
// outcome is inferred for it. Defaults to 30 minutes.
func InferenceMinAge() time.Duration {
	mins, err := strconv.Atoi(os.Getenv("INFERENCE_MIN_AGE_MINUTES"))
	if err != nil || mins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(mins) * time.Minute
}

// InferenceBatchLimit bounds how many open records one sweep may scan.
// Defaults to 100.
func InferenceBatchLimit() int {
	limit, err := strconv.Atoi(os.Getenv("INFERENCE_BATCH_LIMIT"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
