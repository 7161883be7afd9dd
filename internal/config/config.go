package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration. Per-batch image settings live
// in the settings package.
type Config struct {
	WorkerCount   int
	DecodeTimeout time.Duration
	MaxInputMB    int
	LogLevel      string
	LogFormat     string

	// S3-compatible output
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Load loads configuration from environment variables with defaults. A .env
// file in the working directory is read first if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		WorkerCount:   getEnvInt("WORKER_COUNT", runtime.NumCPU()),
		DecodeTimeout: time.Duration(getEnvInt("DECODE_TIMEOUT_SEC", 30)) * time.Second,
		MaxInputMB:    getEnvInt("MAX_INPUT_MB", 50),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return cfg
}

// MaxInputBytes is MaxInputMB in bytes.
func (c *Config) MaxInputBytes() int {
	return c.MaxInputMB * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}
