package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/utils"
)

const (
	DefaultRetentionLimit = 5
	DefaultMaxUploadBytes = 10 * 1024 * 1024
)

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type StorageConfig struct {
	// Mode is "local", "gcs" or "gcs-emulator".
	Mode         string `yaml:"mode"`
	Bucket       string `yaml:"bucket"`
	LocalDir     string `yaml:"local_dir"`
	EmulatorHost string `yaml:"emulator_host"`
}

type Config struct {
	Port           string         `yaml:"port"`
	Postgres       PostgresConfig `yaml:"postgres"`
	Storage        StorageConfig  `yaml:"storage"`
	RetentionLimit int            `yaml:"retention_limit"`
	MaxUploadBytes int64          `yaml:"max_upload_bytes"`
	ReportFontPath string         `yaml:"report_font_path"`
	CORSOrigins    []string       `yaml:"cors_origins"`
}

// Load reads the optional YAML file named by CONFIG_PATH, then applies
// environment overrides on top. Environment always wins.
func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port: "8080",
		Postgres: PostgresConfig{
			Host: "localhost",
			Port: "5432",
			User: "postgres",
			Name: "chemstat",
		},
		Storage: StorageConfig{
			Mode:     "local",
			LocalDir: "data/datasets",
		},
		RetentionLimit: DefaultRetentionLimit,
		MaxUploadBytes: DefaultMaxUploadBytes,
		CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.Postgres.Host = utils.GetEnv("POSTGRES_HOST", cfg.Postgres.Host, log)
	cfg.Postgres.Port = utils.GetEnv("POSTGRES_PORT", cfg.Postgres.Port, log)
	cfg.Postgres.User = utils.GetEnv("POSTGRES_USER", cfg.Postgres.User, log)
	cfg.Postgres.Password = utils.GetEnv("POSTGRES_PASSWORD", cfg.Postgres.Password, log)
	cfg.Postgres.Name = utils.GetEnv("POSTGRES_NAME", cfg.Postgres.Name, log)
	cfg.Storage.Mode = utils.GetEnv("STORAGE_MODE", cfg.Storage.Mode, log)
	cfg.Storage.Bucket = utils.GetEnv("DATASET_BUCKET_NAME", cfg.Storage.Bucket, log)
	cfg.Storage.LocalDir = utils.GetEnv("DATASET_LOCAL_DIR", cfg.Storage.LocalDir, log)
	cfg.Storage.EmulatorHost = utils.GetEnv("STORAGE_EMULATOR_HOST", cfg.Storage.EmulatorHost, log)
	cfg.RetentionLimit = utils.GetEnvAsInt("DATASET_RETENTION_LIMIT", cfg.RetentionLimit, log)
	cfg.MaxUploadBytes = utils.GetEnvAsInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes, log)
	cfg.ReportFontPath = utils.GetEnv("REPORT_FONT_PATH", cfg.ReportFontPath, log)

	if cfg.RetentionLimit < 1 {
		return cfg, fmt.Errorf("retention limit must be at least 1, got %d", cfg.RetentionLimit)
	}
	if cfg.MaxUploadBytes < 1 {
		return cfg, fmt.Errorf("max upload bytes must be positive, got %d", cfg.MaxUploadBytes)
	}
	return cfg, nil
}
