package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort           string
	MongoURI           string
	MongoDBName        string
	JWTSecret          string
	KafkaBrokers       []string
	CheckoutTopic      string
	KafkaGroupID       string
	LogLevel           string
	LogPretty          bool
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "shopdb"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		CheckoutTopic:      getEnv("CHECKOUT_TOPIC", "checkout-completed"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "cart-service-consumer"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxRequestBodySize: 1 << 20, // 1MB
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	var err error
	if cfg.LogPretty, err = strconv.ParseBool(getEnv("LOG_PRETTY", "false")); err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
