// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Backend names for the document store.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// S3 holds S3-compatible storage settings for backups.
type S3 struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds all application settings.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Backend selects the document store: "sqlite" (default) or "file",
	// the legacy blob-per-collection fallback.
	Backend string
	DBPath  string // sqlite database file
	DataDir string // blob directory for the file backend

	// OutboundPolicy is "clamp" (legacy, silent no-op on insufficient
	// stock) or "reject".
	OutboundPolicy string

	// Low-stock push alerts.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	AlertInterval   time.Duration

	// Encrypted snapshot backups.
	BackupS3         S3
	BackupPassphrase string
	BackupInterval   time.Duration
}

// Load reads configuration from the environment, applying development
// defaults. A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:      envOrDefault("MEDIASTOCK_PORT", "8080"),
		LogLevel:  envOrDefault("MEDIASTOCK_LOG_LEVEL", "info"),
		LogFormat: envOrDefault("MEDIASTOCK_LOG_FORMAT", "text"),

		Backend: envOrDefault("MEDIASTOCK_BACKEND", BackendSQLite),
		DBPath:  envOrDefault("MEDIASTOCK_DB_PATH", "mediastock.db"),
		DataDir: envOrDefault("MEDIASTOCK_DATA_DIR", "data"),

		OutboundPolicy: envOrDefault("MEDIASTOCK_OUTBOUND_POLICY", "clamp"),

		VAPIDPublicKey:  os.Getenv("MEDIASTOCK_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("MEDIASTOCK_VAPID_PRIVATE_KEY"),

		BackupS3: S3{
			Endpoint:  os.Getenv("MEDIASTOCK_S3_ENDPOINT"),
			Bucket:    os.Getenv("MEDIASTOCK_S3_BUCKET"),
			Region:    envOrDefault("MEDIASTOCK_S3_REGION", "auto"),
			AccessKey: os.Getenv("MEDIASTOCK_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("MEDIASTOCK_S3_SECRET_KEY"),
		},
		BackupPassphrase: os.Getenv("MEDIASTOCK_BACKUP_PASSPHRASE"),
	}

	var err error
	cfg.AlertInterval, err = durationOrDefault("MEDIASTOCK_ALERT_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.BackupInterval, err = durationOrDefault("MEDIASTOCK_BACKUP_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	if cfg.Backend != BackendSQLite && cfg.Backend != BackendFile {
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.OutboundPolicy != "clamp" && cfg.OutboundPolicy != "reject" {
		return nil, fmt.Errorf("unknown outbound policy %q", cfg.OutboundPolicy)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
