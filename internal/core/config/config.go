package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	// ReceiptWebhookURL receives payment.receipt events; empty disables them.
	ReceiptWebhookURL string

	// SettlementTimeout bounds the external authorize call.
	SettlementTimeout time.Duration
	// SettlementLatency is the simulated network delay of the demo gateway.
	SettlementLatency time.Duration

	// SweepInterval is how often the overdue sweeper runs.
	SweepInterval time.Duration
}

// LoadConfig reads .env and returns a Config struct.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	return &Config{
		Port:              getEnv("PORT", "3000"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Env:               getEnv("ENV", "development"),
		ReceiptWebhookURL: getEnv("RECEIPT_WEBHOOK_URL", ""),
		SettlementTimeout: getDuration("SETTLEMENT_TIMEOUT", 10*time.Second),
		SettlementLatency: getDuration("SETTLEMENT_LATENCY", 150*time.Millisecond),
		SweepInterval:     getDuration("SWEEP_INTERVAL", time.Minute),
	}
}

// Helper to get env with a default fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in env, using default", "key", key, "value", value)
		return fallback
	}
	return d
}
