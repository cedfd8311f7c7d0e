package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDSN  = "host=localhost user=postgres password=postgres dbname=dairy port=5432 sslmode=disable"
	defaultCORS = "http://localhost:3000"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string
	Environment string
	LogLevel    string

	// Uploaded images are written under UploadDir and served from PublicBaseURL + "/uploads".
	UploadDir     string
	PublicBaseURL string
	MaxUploadMB   int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	VisionModel   string
	VisionTimeout time.Duration

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", defaultCORS),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		VisionModel:   getEnv("VISION_MODEL", "gpt-4o"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "dairy.events"),
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	if cfg.VisionTimeout, err = time.ParseDuration(getEnv("VISION_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("VISION_TIMEOUT: %w", err)
	}
	if cfg.MaxUploadMB, err = strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10")); err != nil || cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return cfg, nil
}

// Warn logs settings that are fine for local development but not for production.
func (c *Config) Warn(logger *slog.Logger) {
	if c.DatabaseDSN == defaultDSN {
		logger.Warn("DATABASE_DSN uses the default local connection string")
	}
	if c.CORSOrigins == defaultCORS {
		logger.Warn("CORS_ALLOWED_ORIGINS uses the default development origin")
	}
	if c.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, image analysis will fail")
	}
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int {
	return c.MaxUploadMB * 1024 * 1024
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
