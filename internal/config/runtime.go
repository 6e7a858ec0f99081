package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
)

// RuntimeConfig holds the process-wide knobs from spec.md §6, sourced from
// the environment the way the teacher's LoadConfig sources YAML defaults:
// read, validate, fall back with a pterm-visible warning.
type RuntimeConfig struct {
	MaxConcurrentRequests int
	RequestTimeout        time.Duration
	MaxRetries            int
	DefaultAPIURL         string
	DefaultAPIKey         string
	EncryptionKey         string
	DataDir               string
	RedisAddr             string
	PostgresDSN           string
	S3Bucket              string
	TracingEndpoint       string
	LogLevel              string
}

// LoadRuntimeConfig reads RuntimeConfig from the environment.
func LoadRuntimeConfig() RuntimeConfig {
	rc := RuntimeConfig{
		MaxConcurrentRequests: envInt("MAX_CONCURRENT_REQUESTS", 4),
		RequestTimeout:        envSeconds("LLM_REQUEST_TIMEOUT", 180),
		MaxRetries:            envInt("LLM_MAX_RETRIES", 3),
		DefaultAPIURL:         envStr("LLM_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		DefaultAPIKey:         os.Getenv("LLM_API_KEY"),
		EncryptionKey:         os.Getenv("ENCRYPTION_KEY"),
		DataDir:               envStr("COUNCIL_DATA_DIR", "data"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		S3Bucket:              os.Getenv("COUNCIL_S3_BUCKET"),
		TracingEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:              envStr("LOG_LEVEL", "info"),
	}
	if rc.EncryptionKey == "" {
		pterm.Warning.Println("ENCRYPTION_KEY not set; per-tenant API key storage should not be trusted in production.")
	}
	return rc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		pterm.Warning.Printf("invalid %s=%q, using default %d\n", key, v, fallback)
		return fallback
	}
	return n
}

func envSeconds(key string, fallbackSeconds float64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallbackSeconds * float64(time.Second))
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		pterm.Warning.Printf("invalid %s=%q, using default %gs\n", key, v, fallbackSeconds)
		return time.Duration(fallbackSeconds * float64(time.Second))
	}
	return time.Duration(f * float64(time.Second))
}
