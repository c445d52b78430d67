package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from the environment. When GRAPHLITE_CONFIG
// names a YAML file, keys present in that file replace the env values.
func Load() (*Config, error) {
	dbPath := os.Getenv("GRAPHLITE_DB")
	if dbPath == "" {
		dbPath = "graphlite.db"
	}

	embedderConfig, err := loadEmbedderConfig()
	if err != nil {
		return nil, err
	}

	backupConfig, err := loadBackupConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:   dbPath,
		Embedder: embedderConfig,
		Storage:  loadStorageConfig(),
		Backup:   backupConfig,
	}

	if path := os.Getenv("GRAPHLITE_CONFIG"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.Storage.Enabled = cfg.Storage.AccessKey != "" && cfg.Storage.SecretKey != ""

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func loadEmbedderConfig() (EmbedderConfig, error) {
	dims := 0
	if v := os.Getenv("EMBEDDER_DIMENSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return EmbedderConfig{}, fmt.Errorf("invalid EMBEDDER_DIMENSIONS: %s", v)
		}
		dims = n
	}

	return EmbedderConfig{
		Provider:   os.Getenv("EMBEDDER_PROVIDER"),
		BaseURL:    os.Getenv("EMBEDDER_URL"),
		Model:      os.Getenv("EMBEDDER_MODEL"),
		Dimensions: dims,
	}, nil
}

func loadStorageConfig() StorageConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	return StorageConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
}

func loadBackupConfig() (BackupConfig, error) {
	bucket := os.Getenv("BACKUP_BUCKET")
	if bucket == "" {
		bucket = "graphlite-backups"
	}

	// nightly at 03:00
	schedule := os.Getenv("BACKUP_SCHEDULE")
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	keep := 7
	if v := os.Getenv("BACKUP_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return BackupConfig{}, fmt.Errorf("invalid BACKUP_KEEP: %s", v)
		}
		keep = n
	}

	return BackupConfig{
		Bucket:   bucket,
		Schedule: schedule,
		Keep:     keep,
	}, nil
}
